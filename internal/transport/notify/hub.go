// Package notify pushes build results to connected runtime clients over
// websocket so a running game can hot-reload its artifacts.
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	TypeArtifactBuilt = "ARTIFACT_BUILT"
	TypeBuildFailed   = "BUILD_FAILED"

	clientQueue = 16
)

type Message struct {
	Type     string    `json:"type"`
	BuildID  string    `json:"build_id,omitempty"`
	Artifact string    `json:"artifact,omitempty"`
	Version  string    `json:"config_version,omitempty"`
	Digest   string    `json:"digest,omitempty"`
	Path     string    `json:"path,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

type client struct {
	conn *websocket.Conn
	out  chan []byte
}

type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev tool, local only
		},
		clients: map[*client]struct{}{},
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues m for every client and returns how many accepted it.
// Clients whose queue is full miss the message.
func (h *Hub) Broadcast(m Message) int {
	if m.At.IsZero() {
		m.At = time.Now().UTC()
	}
	b, err := json.Marshal(m)
	if err != nil {
		h.log.Warn("notify marshal", zap.Error(err))
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	sent := 0
	for c := range h.clients {
		select {
		case c.out <- b:
			sent++
		default:
		}
	}
	return sent
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Close disconnects every client. Hijacked connections are not closed by
// http.Server.Shutdown, so callers close the hub as well.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
		_ = c.conn.Close()
	}
}

func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := &client{conn: conn, out: make(chan []byte, clientQueue)}
		h.add(c)
		defer h.remove(c)
		h.log.Info("runtime connected", zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-c.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: clients only listen; reads detect disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		cancel()
		<-done
		h.log.Info("runtime disconnected", zap.String("remote", r.RemoteAddr))
	}
}
