// Package api provides the HTTP and websocket Control Channel.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"keymouse/internal/config"
	"keymouse/internal/playback"
	"keymouse/internal/protocol"
	"keymouse/internal/recording"
	"keymouse/internal/ui"
)

// Controller is the session controller driven by the Control Channel.
type Controller interface {
	StartRecording(recordType string) error
	StopRecording() error
	StartPlayback(cfg playback.Config) error
	StopPlayback() error
	PlaybackDefaults() playback.Config
	Save(name string) (string, error)
	Load(name string) (string, error)
	Snapshot() protocol.StatusSnapshot
	EmitStats()
}

// Server provides the HTTP API and websocket hub
type Server struct {
	configMgr *config.Manager
	ctrl      Controller
	hub       *Hub

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a new API server and starts its websocket hub
func NewServer(configMgr *config.Manager, ctrl Controller) *Server {
	s := &Server{
		configMgr: configMgr,
		ctrl:      ctrl,
	}
	s.hub = newHub(s)
	go s.hub.run()
	return s
}

// Handler returns the routed and wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/command", s.handleCommand)
	mux.HandleFunc("/api/recordings", s.handleRecordings)
	mux.HandleFunc("/ws", s.hub.handleWebSocket)
	mux.Handle("/", ui.NewHandler(s.configMgr))

	return s.authMiddleware(s.recoverMiddleware(mux))
}

// Start listens on addr and serves until Shutdown. It blocks.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("API: Failed to listen on %s: %v", addr, err)
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener. It blocks.
func (s *Server) Serve(ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = server
	s.mu.Unlock()

	log.Printf("API: Listening on %s", ln.Addr())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("API: Server stopped: %v", err)
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and the websocket hub
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.stop()

	s.mu.Lock()
	server := s.server
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// BroadcastStatus pushes a status snapshot to every websocket client
func (s *Server) BroadcastStatus(snap protocol.StatusSnapshot) {
	s.hub.Broadcast(protocol.Message{Type: protocol.TypeStatsUpdate, Payload: snap})
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("API: Recovered panic: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks API token if configured. Websocket clients that
// cannot set headers may pass ?token= instead.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("API: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

		// Skip auth for health check
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := s.configMgr.Get().General.APIToken
		if token != "" {
			authHeader := r.Header.Get("Authorization")
			if authHeader != "Bearer "+token && r.URL.Query().Get("token") != token {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

// handleCommand handles POST /api/command with a protocol.Message body
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var msg protocol.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&msg); err != nil {
		http.Error(w, "Invalid command", http.StatusBadRequest)
		return
	}

	reply := s.Execute(msg)
	status := http.StatusOK
	if reply.Type == protocol.TypeError {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, reply)
}

// RecordingInfo describes one saved recording
type RecordingInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// handleRecordings handles GET /api/recordings
func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	list, err := listRecordings(s.configMgr.RecordingsDir())
	if err != nil {
		log.Printf("API: Listing recordings failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func listRecordings(dir string) ([]RecordingInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []RecordingInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	list := []RecordingInfo{}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		list = append(list, RecordingInfo{Name: e.Name(), Size: info.Size(), Modified: info.ModTime()})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// Execute runs one Control Channel command and returns the reply for the
// sender, tagged with the command's ID. State rejections (start while
// active, stop while idle) are no-ops and reply with the current status.
func (s *Server) Execute(msg protocol.Message) protocol.Message {
	reply := s.execute(msg)
	reply.ID = msg.ID
	return reply
}

func (s *Server) execute(msg protocol.Message) protocol.Message {
	var err error

	switch msg.Type {
	case protocol.TypeStartRecording:
		var p protocol.StartRecordingPayload
		if err = msg.DecodePayload(&p); err == nil {
			err = s.ctrl.StartRecording(p.Type)
		}

	case protocol.TypeStopRecording:
		err = s.ctrl.StopRecording()

	case protocol.TypeStartPlayback:
		var p protocol.StartPlaybackPayload
		if err = msg.DecodePayload(&p); err == nil {
			err = s.ctrl.StartPlayback(s.playbackConfig(p))
		}

	case protocol.TypeStopPlayback:
		err = s.ctrl.StopPlayback()

	case protocol.TypeSaveRecording, protocol.TypeLoadRecording:
		return s.fileCommand(msg)

	case protocol.TypeGetStats:
		s.ctrl.EmitStats()

	default:
		return errorMessage("unknown command: " + string(msg.Type))
	}

	if err != nil && !errors.Is(err, recording.ErrInvalidState) {
		return errorMessage(err.Error())
	}
	return protocol.Message{Type: protocol.TypeStatsUpdate, Payload: s.ctrl.Snapshot()}
}

func (s *Server) fileCommand(msg protocol.Message) protocol.Message {
	var p protocol.FilePayload
	if err := msg.DecodePayload(&p); err != nil {
		return errorMessage("invalid payload: " + err.Error())
	}

	replyType, op := protocol.TypeSaveResult, s.ctrl.Save
	if msg.Type == protocol.TypeLoadRecording {
		replyType, op = protocol.TypeLoadResult, s.ctrl.Load
	}

	text, err := op(p.Filename)
	return protocol.Message{
		Type:    replyType,
		Payload: protocol.ResultPayload{Success: err == nil, Message: text},
	}
}

func (s *Server) playbackConfig(p protocol.StartPlaybackPayload) playback.Config {
	cfg := s.ctrl.PlaybackDefaults()
	if p.Speed != nil {
		cfg.Speed = *p.Speed
	}
	if p.LoopMode != nil {
		cfg.LoopMode = *p.LoopMode
	}
	if p.LoopCount != nil {
		cfg.LoopCount = *p.LoopCount
	}
	return cfg
}

func errorMessage(text string) protocol.Message {
	return protocol.Message{Type: protocol.TypeError, Payload: protocol.ErrorPayload{Message: text}}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
