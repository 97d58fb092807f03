package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"keymouse/internal/api"
	"keymouse/internal/clock"
	"keymouse/internal/config"
	"keymouse/internal/controller"
	"keymouse/internal/input/inputtest"
	"keymouse/internal/playback"
	"keymouse/internal/recording"
)

func init() {
	color.NoColor = true
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func testCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	return cmd, &out
}

func TestCommandTree(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"serve", "play", "inspect", "capture", "autostart", "dashboard", "ctl", "version"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("Expected subcommand %q, got %v (err=%v)", name, c, err)
		}
	}
	for _, name := range []string{"record", "stop", "play", "abort", "stats", "save", "load", "watch"} {
		if c, _, err := root.Find([]string{"ctl", name}); err != nil || c.Name() != name {
			t.Errorf("Expected ctl subcommand %q, got %v (err=%v)", name, c, err)
		}
	}
	if root.Flags().Lookup("no-tray") == nil {
		t.Error("Expected root to accept --no-tray")
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "keymouse version "+Version+"\n" {
		t.Errorf("Expected version line, got %q", out)
	}
}

func TestDashboardURL(t *testing.T) {
	if got := dashboardURL("127.0.0.1:5000", ""); got != "http://127.0.0.1:5000/" {
		t.Errorf("Expected plain URL, got %q", got)
	}
	if got := dashboardURL("127.0.0.1:5000", "a b"); got != "http://127.0.0.1:5000/?token=a+b" {
		t.Errorf("Expected token in query, got %q", got)
	}
}

func TestHostHelpers(t *testing.T) {
	for host, want := range map[string]string{"": "127.0.0.1", "0.0.0.0": "127.0.0.1", "::": "127.0.0.1", "10.0.0.5": "10.0.0.5"} {
		if got := localHost(host); got != want {
			t.Errorf("Expected localHost(%q) = %q, got %q", host, want, got)
		}
	}
	for host, want := range map[string]bool{"127.0.0.1": true, "::1": true, "localhost": true, "0.0.0.0": false, "192.168.1.2": false} {
		if got := isLoopback(host); got != want {
			t.Errorf("Expected isLoopback(%q) = %v, got %v", host, want, got)
		}
	}
}

func writeRecording(t *testing.T) string {
	t.Helper()
	buf := recording.NewBuffer()
	buf.Append(recording.Move(10, 20, 0))
	buf.Append(recording.Click(10, 20, "Button.left", true, 0.5))
	buf.Append(recording.Click(10, 20, "Button.left", false, 0.6))
	buf.Append(recording.Press("'a'", 1.0))
	buf.Append(recording.Release("'a'", 1.2))
	buf.SetDuration(2 * time.Second)

	path := filepath.Join(t.TempDir(), "macro.json")
	if _, err := recording.SaveBuffer(path, buf, time.Unix(1700000000, 0)); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInspectJSON(t *testing.T) {
	path := writeRecording(t)

	out, _, err := run(t, "inspect", path, "--json")
	if err != nil {
		t.Fatal(err)
	}
	var s summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", out, err)
	}
	if s.TotalEvents != 5 || s.Moves != 1 || s.Clicks != 2 || s.KeyPresses != 1 || s.KeyReleases != 1 {
		t.Errorf("Expected 5 events (1/2/1/1), got %+v", s)
	}
	if s.Duration != 2 {
		t.Errorf("Expected duration 2, got %v", s.Duration)
	}
	if s.EPS != 2.5 {
		t.Errorf("Expected eps 2.5, got %v", s.EPS)
	}
	if s.Description != recording.DefaultDescription {
		t.Errorf("Expected default description, got %q", s.Description)
	}
	if !s.SavedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Expected saved_at from timestamp, got %v", s.SavedAt)
	}
}

func TestInspectText(t *testing.T) {
	path := writeRecording(t)

	out, _, err := run(t, "inspect", path, "--events")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Events       5", "Duration     2.000s", "move   (10, 20)", "click  Button.left press at (10, 20)", "down   'a'", "up     'a'"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestInspectMissingFile(t *testing.T) {
	if _, _, err := run(t, "inspect", filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestPlayRunsPasses(t *testing.T) {
	clk := clock.NewRealClock()
	inj := inputtest.NewInjector(clk)
	buf := recording.NewBuffer()
	buf.Append(recording.Press("'a'", 0))
	buf.Append(recording.Release("'a'", 0.01))

	cmd, out := testCmd()
	err := play(context.Background(), cmd, inj, buf, playback.Config{Speed: 1, LoopCount: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(inj.Calls()) != 4 {
		t.Errorf("Expected 4 injector calls, got %d", len(inj.Calls()))
	}
	if got := out.String(); got != "Playback finished (4 events dispatched, 2 passes)\n" {
		t.Errorf("Expected finished line, got %q", got)
	}
}

func TestPlayAbortsOnCancel(t *testing.T) {
	clk := clock.NewRealClock()
	inj := inputtest.NewInjector(clk)
	buf := recording.NewBuffer()
	buf.Append(recording.Press("'a'", 0))
	buf.Append(recording.Release("'a'", 30))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		inj.WaitCalls(1, 2*time.Second)
		cancel()
	}()

	cmd, out := testCmd()
	if err := play(ctx, cmd, inj, buf, playback.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "Playback aborted") {
		t.Errorf("Expected aborted line, got %q", out.String())
	}
}

func TestPlayEmptyBuffer(t *testing.T) {
	cmd, _ := testCmd()
	err := play(context.Background(), cmd, inputtest.NewInjector(clock.NewRealClock()), recording.NewBuffer(), playback.DefaultConfig())
	if err == nil {
		t.Error("Expected error for an empty buffer")
	}
}

func TestPrintCaptureFilters(t *testing.T) {
	src := inputtest.NewSource(clock.NewRealClock())
	cmd, out := testCmd()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- printCapture(ctx, cmd, src, recording.RecordKeyboard) }()

	deadline := time.Now().Add(2 * time.Second)
	for !src.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	src.Move(1, 2)
	src.Press("Key.space")
	src.Release("'b'")
	cancel()

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if strings.Contains(got, "move") {
		t.Errorf("Expected moves to be filtered, got:\n%s", got)
	}
	if !strings.Contains(got, "down  Key.space") || !strings.Contains(got, "up    b") {
		t.Errorf("Expected key lines, got:\n%s", got)
	}
	if src.Running() {
		t.Error("Expected source to be stopped")
	}
}

func startService(t *testing.T) (string, *inputtest.Source, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	cfgMgr, err := config.NewManager(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	cfg := cfgMgr.Get()
	cfg.Recording.HomeCursor = false
	cfgMgr.Set(cfg)

	clk := clock.NewRealClock()
	src := inputtest.NewSource(clk)
	ctrl := controller.New(cfgMgr, src, inputtest.NewInjector(clk), clk)
	srv := api.NewServer(cfgMgr, ctrl)
	ctrl.SetOnStatus(srv.BroadcastStatus)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctrl.Close()
		srv.Shutdown(context.Background())
		ts.Close()
	})

	u, _ := url.Parse(ts.URL)
	return u.Host, src, cfgPath
}

func TestCtlRecordCycle(t *testing.T) {
	addr, src, cfgPath := startService(t)

	out, _, err := run(t, "--config", cfgPath, "ctl", "--addr", addr, "record", "--type", "keyboard")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Recording...") {
		t.Errorf("Expected recording status, got %q", out)
	}

	src.Press("'x'")
	src.Release("'x'")

	out, _, err = run(t, "--config", cfgPath, "ctl", "--addr", addr, "stop")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Recording stopped. Events: 2") {
		t.Errorf("Expected stopped status, got %q", out)
	}

	out, _, err = run(t, "--config", cfgPath, "ctl", "--addr", addr, "stats", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var snap struct {
		TotalEvents int  `json:"total_events"`
		KeyEvents   int  `json:"key_events"`
		IsRecording bool `json:"is_recording"`
	}
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("Expected JSON snapshot, got %q", out)
	}
	if snap.TotalEvents != 2 || snap.KeyEvents != 2 || snap.IsRecording {
		t.Errorf("Expected 2 key events and idle, got %+v", snap)
	}

	file := filepath.Join(t.TempDir(), "saved.json")
	out, _, err = run(t, "--config", cfgPath, "ctl", "--addr", addr, "save", file)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Saved to "+file+"\n" {
		t.Errorf("Expected saved message, got %q", out)
	}

	out, _, err = run(t, "--config", cfgPath, "ctl", "--addr", addr, "load", file)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Loaded: 2 events\n" {
		t.Errorf("Expected loaded message, got %q", out)
	}
}

func TestCtlSaveWithoutData(t *testing.T) {
	addr, _, cfgPath := startService(t)

	_, errOut, err := run(t, "--config", cfgPath, "ctl", "--addr", addr, "save", filepath.Join(t.TempDir(), "x.json"))
	if err == nil {
		t.Fatal("Expected error when nothing was recorded")
	}
	if !strings.Contains(errOut, "No data to save") {
		t.Errorf("Expected 'No data to save', got %q", errOut)
	}
}

func TestCtlUnreachable(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	_, _, err := run(t, "--config", cfgPath, "ctl", "--addr", "127.0.0.1:1", "--timeout", "500ms", "stats")
	if err == nil {
		t.Error("Expected error for an unreachable service")
	}
}
