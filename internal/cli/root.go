// Package cli wires the command line interface.
package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"keymouse/internal/config"
)

// Version is set at build time.
var Version = "0.1.0"

// NewRootCmd creates the root keymouse command. Without a subcommand it
// runs the service.
func NewRootCmd() *cobra.Command {
	var configPath string
	var serveOpts serveOptions

	root := &cobra.Command{
		Use:   "keymouse",
		Short: "Record and replay mouse and keyboard input",
		Long: `keymouse records global mouse and keyboard input into an event buffer
and plays it back with the recorded timing, at any speed and in loops.

Recording and playback are driven by global hotkeys, the tray menu, or
the websocket Control Channel.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, serveOpts)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (.json, .yaml or .toml)")
	serveOpts.bind(root)

	root.AddCommand(
		newServeCmd(&configPath),
		newPlayCmd(&configPath),
		newInspectCmd(),
		newCaptureCmd(),
		newAutostartCmd(&configPath),
		newDashboardCmd(&configPath),
		newCtlCmd(&configPath),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "keymouse version %s\n", Version)
		},
	}
}

// loadConfig creates a manager for path and loads it. Load errors keep the
// defaults and are only logged.
func loadConfig(path string) (*config.Manager, error) {
	cfgMgr, err := config.NewManager(path)
	if err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	if err := cfgMgr.Load(); err != nil {
		log.Printf("Warning: failed to load config: %v", err)
	}
	return cfgMgr, nil
}
