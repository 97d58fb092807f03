// Package client talks to a running service over the websocket Control Channel.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"keymouse/internal/protocol"
)

// ErrNotConnected is returned by Send when no connection is open.
var ErrNotConnected = errors.New("client: not connected")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	reconnectDelay = 5 * time.Second
)

// Client handles the websocket connection to the service
type Client struct {
	addr  string
	token string

	// OnStatus is called for every stats_update message
	OnStatus func(protocol.StatusSnapshot)
	// OnResult is called for save_result and load_result messages
	OnResult func(protocol.MessageType, protocol.ResultPayload)
	// OnError is called for error replies
	OnError func(string)

	mu          sync.Mutex
	conn        *websocket.Conn
	isConnected bool
	connDone    chan struct{} // closed when the read pump exits

	pendingMu sync.Mutex
	pending   map[string]chan protocol.Message // by request ID
}

// New creates a client for the service at addr (host:port).
func New(addr, token string) *Client {
	return &Client{
		addr:    addr,
		token:   token,
		pending: make(map[string]chan protocol.Message),
	}
}

func (c *Client) url() string {
	u := url.URL{Scheme: "ws", Host: c.addr, Path: "/ws"}
	return u.String()
}

// Connect opens the connection and starts the read pump.
func (c *Client) Connect(ctx context.Context) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url(), header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("connecting to %s: unauthorized (check api_token)", c.addr)
		}
		return fmt.Errorf("connecting to %s: %w", c.addr, err)
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.isConnected = true
	c.connDone = done
	c.mu.Unlock()

	go c.readPump(conn, done)
	return nil
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.isConnected = false
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}

// Send writes one message.
func (c *Client) Send(msg protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// Request sends msg tagged with a request ID and waits for the reply
// carrying the same ID. Broadcasts have no ID and never match.
func (c *Client) Request(ctx context.Context, msg protocol.Message, want protocol.MessageType) (protocol.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	c.mu.Lock()
	done := c.connDone
	c.mu.Unlock()

	ch := make(chan protocol.Message, 1)
	c.pendingMu.Lock()
	c.pending[msg.ID] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, msg.ID)
		c.pendingMu.Unlock()
	}()

	if err := c.Send(msg); err != nil {
		return protocol.Message{}, err
	}

	select {
	case reply := <-ch:
		if reply.Type == protocol.TypeError {
			var p protocol.ErrorPayload
			reply.DecodePayload(&p)
			return reply, fmt.Errorf("server: %s", p.Message)
		}
		if reply.Type != want {
			return reply, fmt.Errorf("unexpected reply %s to %s", reply.Type, msg.Type)
		}
		return reply, nil
	case <-done:
		return protocol.Message{}, ErrNotConnected
	case <-ctx.Done():
		return protocol.Message{}, ctx.Err()
	}
}

// Watch keeps a connection open, reconnecting after failures, until ctx
// is cancelled. Status updates are delivered to OnStatus.
func (c *Client) Watch(ctx context.Context) error {
	for {
		if err := c.Connect(ctx); err != nil {
			log.Printf("Client: %v", err)
		} else {
			log.Printf("Client: Connected to %s", c.addr)
			c.pingLoop(ctx)
			c.Close()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
			log.Println("Client: Attempting reconnection...")
		}
	}
}

// pingLoop keeps the connection alive until it drops or ctx ends.
func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	c.mu.Lock()
	done := c.connDone
	c.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if !c.IsConnected() {
				return
			}
			c.mu.Lock()
			conn := c.conn
			if conn != nil {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					c.isConnected = false
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *Client) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.isConnected = false
		}
		c.mu.Unlock()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Client: Read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Client: Invalid message: %v", err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeStatsUpdate:
		var snap protocol.StatusSnapshot
		if err := msg.DecodePayload(&snap); err == nil && c.OnStatus != nil {
			c.OnStatus(snap)
		}

	case protocol.TypeSaveResult, protocol.TypeLoadResult:
		var res protocol.ResultPayload
		if err := msg.DecodePayload(&res); err == nil && c.OnResult != nil {
			c.OnResult(msg.Type, res)
		}

	case protocol.TypeError:
		var p protocol.ErrorPayload
		if err := msg.DecodePayload(&p); err == nil && c.OnError != nil {
			c.OnError(p.Message)
		}
	}

	if msg.ID == "" {
		return
	}
	c.pendingMu.Lock()
	ch := c.pending[msg.ID]
	c.pendingMu.Unlock()
	if ch != nil {
		select {
		case ch <- msg:
		default:
		}
	}
}

// StartRecording, StopRecording, StartPlayback, StopPlayback, Save, Load
// and Stats are one-shot command helpers.

func (c *Client) StartRecording(ctx context.Context, recordType string) (protocol.StatusSnapshot, error) {
	return c.statusRequest(ctx, protocol.Message{Type: protocol.TypeStartRecording, Payload: protocol.StartRecordingPayload{Type: recordType}})
}

func (c *Client) StopRecording(ctx context.Context) (protocol.StatusSnapshot, error) {
	return c.statusRequest(ctx, protocol.Message{Type: protocol.TypeStopRecording})
}

func (c *Client) StartPlayback(ctx context.Context, p protocol.StartPlaybackPayload) (protocol.StatusSnapshot, error) {
	return c.statusRequest(ctx, protocol.Message{Type: protocol.TypeStartPlayback, Payload: p})
}

func (c *Client) StopPlayback(ctx context.Context) (protocol.StatusSnapshot, error) {
	return c.statusRequest(ctx, protocol.Message{Type: protocol.TypeStopPlayback})
}

func (c *Client) Stats(ctx context.Context) (protocol.StatusSnapshot, error) {
	return c.statusRequest(ctx, protocol.Message{Type: protocol.TypeGetStats})
}

func (c *Client) Save(ctx context.Context, filename string) (protocol.ResultPayload, error) {
	return c.resultRequest(ctx, protocol.Message{Type: protocol.TypeSaveRecording, Payload: protocol.FilePayload{Filename: filename}}, protocol.TypeSaveResult)
}

func (c *Client) Load(ctx context.Context, filename string) (protocol.ResultPayload, error) {
	return c.resultRequest(ctx, protocol.Message{Type: protocol.TypeLoadRecording, Payload: protocol.FilePayload{Filename: filename}}, protocol.TypeLoadResult)
}

func (c *Client) statusRequest(ctx context.Context, msg protocol.Message) (protocol.StatusSnapshot, error) {
	var snap protocol.StatusSnapshot
	reply, err := c.Request(ctx, msg, protocol.TypeStatsUpdate)
	if err != nil {
		return snap, err
	}
	err = reply.DecodePayload(&snap)
	return snap, err
}

func (c *Client) resultRequest(ctx context.Context, msg protocol.Message, want protocol.MessageType) (protocol.ResultPayload, error) {
	var res protocol.ResultPayload
	reply, err := c.Request(ctx, msg, want)
	if err != nil {
		return res, err
	}
	err = reply.DecodePayload(&res)
	return res, err
}
