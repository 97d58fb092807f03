package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"keymouse/internal/input"
	"keymouse/internal/keymap"
	"keymouse/internal/recording"
)

func newCaptureCmd() *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Print captured input until interrupted",
		Long: `Starts the platform capture source and prints every notification it
delivers. Useful to check that global capture works (on Windows some
windows require running as administrator).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := recording.ParseRecordType(typeName)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return printCapture(ctx, cmd, input.NewCapture(), rt)
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "all, mouse or keyboard")
	return cmd
}

func printCapture(ctx context.Context, cmd *cobra.Command, src input.CaptureSource, rt recording.RecordType) error {
	if err := src.Start(); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}
	defer src.Stop()

	w := cmd.OutOrStdout()
	mouse := color.New(color.FgYellow)
	key := color.New(color.FgMagenta)
	fmt.Fprintln(w, "Capturing input. Press Ctrl+C to stop.")

	events := src.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !rt.Allows(ev.Type) {
				continue
			}
			switch ev.Type {
			case input.MouseMove:
				mouse.Fprintf(w, "move  (%d, %d)\n", ev.X, ev.Y)
			case input.MouseClick:
				action := "release"
				if ev.Pressed {
					action = "press"
				}
				mouse.Fprintf(w, "click %s %s at (%d, %d)\n", keymap.TranslateButton(ev.Button), action, ev.X, ev.Y)
			case input.KeyPress:
				key.Fprintf(w, "down  %s\n", keymap.Describe(ev.Key))
			case input.KeyRelease:
				key.Fprintf(w, "up    %s\n", keymap.Describe(ev.Key))
			}
		}
	}
}
