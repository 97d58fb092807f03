package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"keymouse/internal/input"
	"keymouse/internal/playback"
	"keymouse/internal/recording"
)

func newPlayCmd(configPath *string) *cobra.Command {
	var (
		speed    float64
		loop     bool
		count    int
		failSafe bool
	)

	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Replay a saved recording without starting the service",
		Long: `Loads a recording file and replays it with the platform injector.
Press Ctrl+C to abort. Relative file names resolve against the
recordings directory.`,
		Example: `  keymouse play login.json
  keymouse play login.json --speed 2 --count 3
  keymouse play login.json --loop`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgMgr, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			cfg := cfgMgr.Get()

			pc := playback.Config{
				Speed:     cfg.Playback.Speed,
				LoopMode:  cfg.Playback.LoopMode,
				LoopCount: cfg.Playback.LoopCount,
			}
			if cmd.Flags().Changed("speed") {
				pc.Speed = speed
			}
			if cmd.Flags().Changed("loop") {
				pc.LoopMode = loop
			}
			if cmd.Flags().Changed("count") {
				pc.LoopCount = count
			}
			if !cmd.Flags().Changed("fail-safe") {
				failSafe = cfg.Playback.FailSafe
			}

			buf := recording.NewBuffer()
			path := cfgMgr.ResolveRecording(args[0])
			n, err := recording.LoadBuffer(path, buf)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			log.Printf("Loaded: %d events", n)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return play(ctx, cmd, input.NewInjector(input.Options{FailSafe: failSafe}), buf, pc)
		},
	}

	cmd.Flags().Float64Var(&speed, "speed", 1.0, "playback speed multiplier (minimum 0.1)")
	cmd.Flags().BoolVar(&loop, "loop", false, "repeat until interrupted")
	cmd.Flags().IntVar(&count, "count", 1, "number of passes when not looping")
	cmd.Flags().BoolVar(&failSafe, "fail-safe", false, "abort when the cursor is parked in a screen corner")

	return cmd
}

// play runs one playback session over buf and reports its outcome. The
// session is aborted when ctx is cancelled.
func play(ctx context.Context, cmd *cobra.Command, injector input.Injector, buf *recording.Buffer, pc playback.Config) error {
	session := playback.NewSession(injector, playback.Options{})
	if err := session.Start(buf, pc); err != nil {
		return err
	}

	go func() {
		select {
		case <-ctx.Done():
			session.Abort()
		case <-session.Done():
		}
	}()

	res := session.Wait()
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d events dispatched, %d passes)\n", res.Status(), res.Dispatched, res.Passes)
	if res.FailSafe {
		return res.Err
	}
	return nil
}
