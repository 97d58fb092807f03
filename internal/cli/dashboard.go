package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"keymouse/internal/ui"
)

func newDashboardCmd(configPath *string) *cobra.Command {
	opts := &ctlOptions{}

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the browser dashboard of a running service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, token, err := opts.resolve(*configPath)
			if err != nil {
				return err
			}
			u := dashboardURL(addr, token)
			fmt.Fprintf(cmd.OutOrStdout(), "Opening %s\n", u)
			return ui.OpenBrowser(u)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "service address host:port (default from config)")
	cmd.Flags().StringVar(&opts.token, "token", "", "API token (default from config)")
	return cmd
}

func dashboardURL(addr, token string) string {
	u := url.URL{Scheme: "http", Host: addr, Path: "/"}
	if token != "" {
		u.RawQuery = url.Values{"token": {token}}.Encode()
	}
	return u.String()
}
