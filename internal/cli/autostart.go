package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"keymouse/internal/autostart"
)

const autostartName = "keymouse"

func newAutostartCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage starting the service on login",
	}

	enable := &cobra.Command{
		Use:   "enable",
		Short: "Start the service on login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serveArgs := []string{"serve"}
			if *configPath != "" {
				abs, err := filepath.Abs(*configPath)
				if err != nil {
					return err
				}
				serveArgs = append(serveArgs, "--config", abs)
			}
			e, err := autostart.NewEntry(autostartName, serveArgs...)
			if err != nil {
				return err
			}
			if err := autostart.Enable(e); err != nil {
				return fmt.Errorf("enabling autostart: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Autostart enabled: %s\n", e.CommandLine())
			return nil
		},
	}

	disable := &cobra.Command{
		Use:   "disable",
		Short: "Stop starting the service on login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := autostart.Disable(autostartName); err != nil {
				return fmt.Errorf("disabling autostart: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Autostart disabled")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Report whether autostart is enabled",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			state := "disabled"
			if autostart.IsEnabled(autostartName) {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Autostart %s\n", state)
		},
	}

	cmd.AddCommand(enable, disable, status)
	return cmd
}
