package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"keymouse/internal/client"
	"keymouse/internal/protocol"
)

type ctlOptions struct {
	addr    string
	token   string
	timeout time.Duration
}

// resolve returns the service address and token from the flags, falling
// back to the Control Channel settings in the configuration.
func (o *ctlOptions) resolve(configPath string) (addr, token string, err error) {
	addr, token = o.addr, o.token
	if addr == "" || token == "" {
		cfgMgr, err := loadConfig(configPath)
		if err != nil {
			return "", "", err
		}
		cfg := cfgMgr.Get()
		if addr == "" {
			addr = net.JoinHostPort(localHost(cfg.General.APIHost), strconv.Itoa(cfg.General.APIPort))
		}
		if token == "" {
			token = cfg.General.APIToken
		}
	}
	return addr, token, nil
}

// dial connects to the resolved service address.
func (o *ctlOptions) dial(ctx context.Context, configPath string) (*client.Client, error) {
	addr, token, err := o.resolve(configPath)
	if err != nil {
		return nil, err
	}
	c := client.New(addr, token)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func newCtlCmd(configPath *string) *cobra.Command {
	opts := &ctlOptions{}

	cmd := &cobra.Command{
		Use:   "ctl",
		Short: "Control a running service over the Control Channel",
		Example: `  keymouse ctl record --type keyboard
  keymouse ctl stop
  keymouse ctl play --speed 2 --count 3
  keymouse ctl save demo.json
  keymouse ctl watch`,
	}

	cmd.PersistentFlags().StringVar(&opts.addr, "addr", "", "service address host:port (default from config)")
	cmd.PersistentFlags().StringVar(&opts.token, "token", "", "API token (default from config)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "request timeout")

	// oneShot runs fn against a fresh connection.
	oneShot := func(fn func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			c, err := opts.dial(ctx, *configPath)
			if err != nil {
				return err
			}
			defer c.Close()
			return fn(ctx, cmd, c, args)
		}
	}

	var recordType string
	record := &cobra.Command{
		Use:   "record",
		Short: "Start recording",
		Args:  cobra.NoArgs,
		RunE: oneShot(func(ctx context.Context, cmd *cobra.Command, c *client.Client, _ []string) error {
			snap, err := c.StartRecording(ctx, recordType)
			if err != nil {
				return err
			}
			printStatus(cmd, snap)
			return nil
		}),
	}
	record.Flags().StringVar(&recordType, "type", "", "all, mouse or keyboard")

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop recording",
		Args:  cobra.NoArgs,
		RunE: oneShot(func(ctx context.Context, cmd *cobra.Command, c *client.Client, _ []string) error {
			snap, err := c.StopRecording(ctx)
			if err != nil {
				return err
			}
			printStatus(cmd, snap)
			return nil
		}),
	}

	var (
		speed float64
		loop  bool
		count int
	)
	playCmd := &cobra.Command{
		Use:   "play",
		Short: "Start playback of the recorded events",
		Args:  cobra.NoArgs,
		RunE: oneShot(func(ctx context.Context, cmd *cobra.Command, c *client.Client, _ []string) error {
			var p protocol.StartPlaybackPayload
			if cmd.Flags().Changed("speed") {
				p.Speed = &speed
			}
			if cmd.Flags().Changed("loop") {
				p.LoopMode = &loop
			}
			if cmd.Flags().Changed("count") {
				p.LoopCount = &count
			}
			snap, err := c.StartPlayback(ctx, p)
			if err != nil {
				return err
			}
			printStatus(cmd, snap)
			return nil
		}),
	}
	playCmd.Flags().Float64Var(&speed, "speed", 1.0, "playback speed multiplier")
	playCmd.Flags().BoolVar(&loop, "loop", false, "repeat until aborted")
	playCmd.Flags().IntVar(&count, "count", 1, "number of passes")

	abort := &cobra.Command{
		Use:   "abort",
		Short: "Abort playback",
		Args:  cobra.NoArgs,
		RunE: oneShot(func(ctx context.Context, cmd *cobra.Command, c *client.Client, _ []string) error {
			snap, err := c.StopPlayback(ctx)
			if err != nil {
				return err
			}
			printStatus(cmd, snap)
			return nil
		}),
	}

	var asJSON bool
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print the current status snapshot",
		Args:  cobra.NoArgs,
		RunE: oneShot(func(ctx context.Context, cmd *cobra.Command, c *client.Client, _ []string) error {
			snap, err := c.Stats(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			printStatus(cmd, snap)
			return nil
		}),
	}
	stats.Flags().BoolVar(&asJSON, "json", false, "print the raw snapshot")

	save := &cobra.Command{
		Use:   "save [FILE]",
		Short: "Save the recorded events on the service host",
		Args:  cobra.MaximumNArgs(1),
		RunE: oneShot(func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error {
			res, err := c.Save(ctx, firstArg(args))
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		}),
	}

	load := &cobra.Command{
		Use:   "load [FILE]",
		Short: "Load a recording on the service host",
		Args:  cobra.MaximumNArgs(1),
		RunE: oneShot(func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error {
			res, err := c.Load(ctx, firstArg(args))
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		}),
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Stream status updates until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr, token, err := opts.resolve(*configPath)
			if err != nil {
				return err
			}
			c := client.New(addr, token)

			c.OnStatus = func(s protocol.StatusSnapshot) { printStatus(cmd, s) }
			c.OnResult = func(_ protocol.MessageType, r protocol.ResultPayload) { printResult(cmd, r) }
			c.OnError = func(msg string) {
				color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), msg)
			}

			return c.Watch(ctx)
		},
	}

	cmd.AddCommand(record, stop, playCmd, abort, stats, save, load, watch)
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func printStatus(cmd *cobra.Command, s protocol.StatusSnapshot) {
	w := cmd.OutOrStdout()
	state := color.New(color.FgGreen)
	switch {
	case s.IsRecording:
		state = color.New(color.FgRed, color.Bold)
	case s.IsPlaying:
		state = color.New(color.FgYellow, color.Bold)
	}
	state.Fprint(w, s.Status)
	fmt.Fprintf(w, "  events=%d mouse=%d keys=%d duration=%s eps=%.1f", s.TotalEvents, s.MouseEvents, s.KeyEvents, s.Duration, s.EventsPerSecond)
	if s.IsRecording {
		fmt.Fprintf(w, " progress=%d%%", s.Progress)
	}
	if s.LoopPass > 0 {
		fmt.Fprintf(w, " pass=%d", s.LoopPass)
	}
	fmt.Fprintf(w, "  last=%s\n", s.LastEvent)
}

func printResult(cmd *cobra.Command, r protocol.ResultPayload) error {
	if !r.Success {
		color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), r.Message)
		return fmt.Errorf("%s", r.Message)
	}
	color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), r.Message)
	return nil
}
