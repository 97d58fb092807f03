package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"keymouse/internal/clock"
	"keymouse/internal/config"
	"keymouse/internal/controller"
	"keymouse/internal/input/inputtest"
	"keymouse/internal/protocol"
	"keymouse/internal/recording"
)

type testEnv struct {
	srv    *Server
	ctrl   *controller.Controller
	source *inputtest.Source
	http   *httptest.Server
	token  string
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	cfgMgr, err := config.NewManager(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	cfg := cfgMgr.Get()
	cfg.General.APIToken = token
	cfg.Recording.HomeCursor = false
	cfgMgr.Set(cfg)

	clk := clock.NewRealClock()
	src := inputtest.NewSource(clk)
	ctrl := controller.New(cfgMgr, src, inputtest.NewInjector(clk), clk)
	srv := NewServer(cfgMgr, ctrl)
	ctrl.SetOnStatus(srv.BroadcastStatus)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctrl.Close()
		srv.Shutdown(context.Background())
		ts.Close()
	})
	return &testEnv{srv: srv, ctrl: ctrl, source: src, http: ts, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, e.http.URL+path, &buf)
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) command(t *testing.T, msg protocol.Message) (int, protocol.Message) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/command", msg)
	var reply protocol.Message
	json.NewDecoder(resp.Body).Decode(&reply)
	return resp.StatusCode, reply
}

func TestHealthSkipsAuth(t *testing.T) {
	env := newTestEnv(t, "secret")
	resp, err := http.Get(env.http.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, "secret")

	resp, err := http.Get(env.http.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}

	resp, err = http.Get(env.http.URL + "/api/status?token=secret")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with query token, got %d", resp.StatusCode)
	}

	if resp := env.do(t, http.MethodGet, "/api/status", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with bearer token, got %d", resp.StatusCode)
	}
}

func TestDashboardBehindAuth(t *testing.T) {
	env := newTestEnv(t, "secret")

	resp, err := http.Get(env.http.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}

	resp, err = http.Get(env.http.URL + "/?token=secret")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with query token, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected dashboard HTML, got %q", ct)
	}

	if resp := env.do(t, http.MethodGet, "/missing", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	resp := env.do(t, http.MethodGet, "/api/status", nil)

	var snap protocol.StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Status != "Ready" || snap.Duration != "00:00:00" {
		t.Errorf("Unexpected snapshot %+v", snap)
	}

	if resp := env.do(t, http.MethodPost, "/api/status", nil); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}

func TestCommandRecordingCycle(t *testing.T) {
	env := newTestEnv(t, "")

	code, reply := env.command(t, protocol.Message{Type: protocol.TypeStartRecording, Payload: protocol.StartRecordingPayload{Type: "keyboard"}})
	if code != http.StatusOK || reply.Type != protocol.TypeStatsUpdate {
		t.Fatalf("Unexpected reply %d %+v", code, reply)
	}
	env.source.Press("'a'")

	// Duplicate start is a silent no-op.
	code, _ = env.command(t, protocol.Message{Type: protocol.TypeStartRecording})
	if code != http.StatusOK {
		t.Errorf("Expected duplicate start to be ignored, got %d", code)
	}

	env.command(t, protocol.Message{Type: protocol.TypeStopRecording})
	_, reply = env.command(t, protocol.Message{Type: protocol.TypeGetStats})

	var snap protocol.StatusSnapshot
	reply.DecodePayload(&snap)
	if snap.IsRecording || snap.KeyEvents != 1 || snap.Status != "Recording stopped. Events: 1" {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
}

func TestCommandSaveLoadAndList(t *testing.T) {
	env := newTestEnv(t, "")

	_, reply := env.command(t, protocol.Message{Type: protocol.TypeSaveRecording, Payload: protocol.FilePayload{Filename: "a.json"}})
	var res protocol.ResultPayload
	reply.DecodePayload(&res)
	if reply.Type != protocol.TypeSaveResult || res.Success || res.Message != "No data to save" {
		t.Errorf("Unexpected empty save reply %+v", reply)
	}

	env.ctrl.Buffer().Replace([]recording.Event{recording.Press("'a'", 0)}, time.Second)
	_, reply = env.command(t, protocol.Message{Type: protocol.TypeSaveRecording, Payload: protocol.FilePayload{Filename: "a.json"}})
	reply.DecodePayload(&res)
	if !res.Success || !strings.HasPrefix(res.Message, "Saved to ") {
		t.Errorf("Unexpected save reply %+v", res)
	}

	_, reply = env.command(t, protocol.Message{Type: protocol.TypeLoadRecording, Payload: protocol.FilePayload{Filename: "a.json"}})
	reply.DecodePayload(&res)
	if reply.Type != protocol.TypeLoadResult || !res.Success || res.Message != "Loaded: 1 events" {
		t.Errorf("Unexpected load reply %+v", reply)
	}

	resp := env.do(t, http.MethodGet, "/api/recordings", nil)
	var list []RecordingInfo
	json.NewDecoder(resp.Body).Decode(&list)
	if len(list) != 1 || list[0].Name != "a.json" {
		t.Errorf("Unexpected recordings list %+v", list)
	}
}

func TestCommandErrors(t *testing.T) {
	env := newTestEnv(t, "")

	code, reply := env.command(t, protocol.Message{Type: "switch"})
	if code != http.StatusBadRequest || reply.Type != protocol.TypeError {
		t.Errorf("Expected error reply for unknown command, got %d %+v", code, reply)
	}

	code, _ = env.command(t, protocol.Message{Type: protocol.TypeStartPlayback})
	if code != http.StatusBadRequest {
		t.Errorf("Expected playback of empty buffer to fail, got %d", code)
	}

	resp := env.do(t, http.MethodPost, "/api/command", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty body, got %d", resp.StatusCode)
	}
}

func TestPlaybackPayloadMerging(t *testing.T) {
	env := newTestEnv(t, "")
	speed, count := 3.0, 4
	cfg := env.srv.playbackConfig(protocol.StartPlaybackPayload{Speed: &speed, LoopCount: &count})
	if cfg.Speed != 3 || cfg.LoopCount != 4 || cfg.LoopMode {
		t.Errorf("Unexpected playback config %+v", cfg)
	}
	cfg = env.srv.playbackConfig(protocol.StartPlaybackPayload{})
	if cfg.Speed != 1 || cfg.LoopCount != 1 {
		t.Errorf("Expected configured defaults, got %+v", cfg)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn, want protocol.MessageType) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg
		}
	}
}

func TestWebSocketCommands(t *testing.T) {
	env := newTestEnv(t, "secret")
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"

	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("Expected dial without token to fail")
	}

	header := http.Header{"Authorization": []string{"Bearer secret"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	greeting := readMessage(t, conn, protocol.TypeStatsUpdate)
	var snap protocol.StatusSnapshot
	greeting.DecodePayload(&snap)
	if snap.Status != "Ready" {
		t.Errorf("Unexpected greeting %+v", snap)
	}

	conn.WriteJSON(protocol.Message{Type: protocol.TypeSaveRecording, Payload: protocol.FilePayload{Filename: "x.json"}})
	reply := readMessage(t, conn, protocol.TypeSaveResult)
	var res protocol.ResultPayload
	reply.DecodePayload(&res)
	if res.Message != "No data to save" {
		t.Errorf("Unexpected save result %+v", res)
	}

	// Status pushed by the controller reaches websocket clients.
	conn.WriteJSON(protocol.Message{Type: protocol.TypeStartRecording, Payload: protocol.StartRecordingPayload{Type: "all"}})
	for {
		msg := readMessage(t, conn, protocol.TypeStatsUpdate)
		msg.DecodePayload(&snap)
		if snap.IsRecording {
			break
		}
	}

	conn.WriteJSON(protocol.Message{Type: protocol.TypePing})
	readMessage(t, conn, protocol.TypePing)
}

func TestExecuteEchoesID(t *testing.T) {
	env := newTestEnv(t, "")

	reply := env.srv.Execute(protocol.Message{ID: "r1", Type: protocol.TypeGetStats})
	if reply.ID != "r1" || reply.Type != protocol.TypeStatsUpdate {
		t.Errorf("Expected stats reply with id r1, got %+v", reply)
	}

	reply = env.srv.Execute(protocol.Message{ID: "r2", Type: protocol.TypeStartPlayback})
	if reply.ID != "r2" || reply.Type != protocol.TypeError {
		t.Errorf("Expected error reply with id r2, got %+v", reply)
	}

	reply = env.srv.Execute(protocol.Message{ID: "r3", Type: protocol.TypeSaveRecording, Payload: protocol.FilePayload{Filename: "x.json"}})
	if reply.ID != "r3" || reply.Type != protocol.TypeSaveResult {
		t.Errorf("Expected save result with id r3, got %+v", reply)
	}

	reply = env.srv.Execute(protocol.Message{Type: "switch"})
	if reply.ID != "" {
		t.Errorf("Expected no id on reply to untagged command, got %q", reply.ID)
	}
}

func TestGetStatsReachesOtherClients(t *testing.T) {
	env := newTestEnv(t, "")
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"

	sender, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer sender.Close()
	watcher, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer watcher.Close()

	readMessage(t, sender, protocol.TypeStatsUpdate)
	readMessage(t, watcher, protocol.TypeStatsUpdate)

	sender.WriteJSON(protocol.Message{ID: "s1", Type: protocol.TypeGetStats})

	// The watcher never sent anything, so a second snapshot must be a broadcast.
	msg := readMessage(t, watcher, protocol.TypeStatsUpdate)
	if msg.ID != "" {
		t.Errorf("Expected broadcast without id, got %q", msg.ID)
	}

	for {
		msg = readMessage(t, sender, protocol.TypeStatsUpdate)
		if msg.ID == "s1" {
			break
		}
	}

	sender.WriteJSON(protocol.Message{ID: "p1", Type: protocol.TypePing})
	if msg := readMessage(t, sender, protocol.TypePing); msg.ID != "p1" {
		t.Errorf("Expected ping reply with id p1, got %q", msg.ID)
	}
}
