package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"keymouse/internal/api"
	"keymouse/internal/config"
	"keymouse/internal/controller"
	"keymouse/internal/hotkey"
	"keymouse/internal/input"
	"keymouse/internal/osutils"
	"keymouse/internal/protocol"
	"keymouse/internal/recording"
	"keymouse/internal/tray"
	"keymouse/internal/ui"
)

type serveOptions struct {
	noTray    bool
	noHotkeys bool
}

func (o *serveOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.noTray, "no-tray", false, "do not show the system tray icon")
	cmd.Flags().BoolVar(&o.noHotkeys, "no-hotkeys", false, "do not install global hotkeys")
}

func newServeCmd(configPath *string) *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recorder service (default)",
		Long: `Runs the recorder service: global hotkeys, the tray menu and the
HTTP/websocket Control Channel.

  GET  /health           Health check
  GET  /api/status       Current status snapshot
  POST /api/command      Run a command envelope
  GET  /api/recordings   Saved recordings
  WS   /ws               Control Channel`,
		Example: `  keymouse serve
  keymouse serve --config ~/.config/keymouse/config.yaml --no-tray`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

// statusFanout delivers snapshots to every registered listener.
type statusFanout struct {
	mu        sync.RWMutex
	listeners []func(protocol.StatusSnapshot)
}

func (f *statusFanout) add(fn func(protocol.StatusSnapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *statusFanout) publish(s protocol.StatusSnapshot) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, fn := range f.listeners {
		fn(s)
	}
}

func runServe(configPath string, opts serveOptions) error {
	log.Printf("keymouse %s starting...", Version)

	cfgMgr, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg := cfgMgr.Get()

	if runtime.GOOS == "windows" && !osutils.IsAdmin() {
		log.Println("Warning: not running as administrator; input to elevated windows cannot be recorded or replayed")
	}

	ctrl := controller.New(cfgMgr, input.NewCapture(), input.NewInjector(input.Options{FailSafe: cfg.Playback.FailSafe}), nil)
	defer ctrl.Close()

	fanout := &statusFanout{}
	ctrl.SetOnStatus(fanout.publish)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	var dashboard string
	if cfg.General.APIEnabled {
		srv := api.NewServer(cfgMgr, ctrl)
		fanout.add(srv.BroadcastStatus)

		if runtime.GOOS == "windows" && !isLoopback(cfg.General.APIHost) {
			go func() {
				if err := osutils.EnsureFirewallRule("keymouse Control Channel", cfg.General.APIPort); err != nil {
					log.Printf("Firewall warning: %v", err)
				}
			}()
		}

		addr := net.JoinHostPort(cfg.General.APIHost, strconv.Itoa(cfg.General.APIPort))
		dashboard = dashboardURL(net.JoinHostPort(localHost(cfg.General.APIHost), strconv.Itoa(cfg.General.APIPort)), cfg.General.APIToken)
		g.Go(func() error {
			if err := srv.Start(addr); err != nil {
				log.Printf("Note: continuing without the Control Channel: %v", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if !opts.noHotkeys {
		hk := hotkey.NewService(ctrl)
		if err := hk.Start(cfg.Hotkeys); err != nil {
			log.Printf("Warning: Hotkey Engine failed to start: %v", err)
		}
		defer hk.Stop()
		cfgMgr.RegisterChangeCallback(func() {
			hk.Register(cfgMgr.Get().Hotkeys)
		})
	}

	g.Go(func() error {
		if err := cfgMgr.Watch(ctx); err != nil {
			log.Printf("Config: Watch disabled: %v", err)
		}
		return nil
	})

	fanout.add(func(s protocol.StatusSnapshot) {
		if s.Status != "" {
			log.Printf("Status: %s (events=%d, duration=%s)", s.Status, s.TotalEvents, s.Duration)
		}
	})

	if cfg.General.ShowTray && !opts.noTray {
		t := newTray(ctrl, cfg.Hotkeys, dashboard, cancel)
		fanout.add(func(s protocol.StatusSnapshot) { t.SetStatus(s.Status, s.IsRecording) })
		g.Go(func() error {
			<-ctx.Done()
			t.Stop()
			return nil
		})
		// systray needs the main goroutine.
		t.Run()
		cancel()
	}

	err = g.Wait()
	log.Println("keymouse stopped")
	return err
}

func newTray(ctrl *controller.Controller, keys config.HotkeyConfig, dashboard string, quit func()) *tray.Tray {
	t := tray.New("keymouse", "Mouse and keyboard recorder")

	t.AddMenuItem(fmt.Sprintf("Start recording (%s)", keys.StartRecording), func() {
		logRejected("start recording", ctrl.StartRecording(""))
	})
	t.AddMenuItem(fmt.Sprintf("Stop recording (%s)", keys.StopRecording), func() {
		logRejected("stop recording", ctrl.StopRecording())
	})
	t.AddSeparator()
	t.AddMenuItem(fmt.Sprintf("Start playback (%s)", keys.StartPlayback), func() {
		logRejected("start playback", ctrl.StartPlayback(ctrl.PlaybackDefaults()))
	})
	t.AddMenuItem(fmt.Sprintf("Abort playback (%s)", keys.AbortPlayback), func() {
		logRejected("abort playback", ctrl.StopPlayback())
	})
	t.AddSeparator()
	t.AddMenuItem("Save recording", func() { ctrl.Save("") })
	t.AddMenuItem("Load recording", func() { ctrl.Load("") })
	if dashboard != "" {
		t.AddMenuItem("Open dashboard", func() {
			if err := ui.OpenBrowser(dashboard); err != nil {
				log.Printf("Tray: Failed to open browser: %v", err)
			}
		})
	}
	t.AddSeparator()
	t.AddMenuItem("Quit", quit)

	return t
}

// localHost maps a wildcard listen host to the loopback address.
func localHost(host string) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		return "127.0.0.1"
	}
	return host
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func logRejected(action string, err error) {
	if err != nil && !errors.Is(err, recording.ErrInvalidState) {
		log.Printf("Tray: Failed to %s: %v", action, err)
	}
}
