// Package live fans presentation updates out to viewer WebSocket clients.
// A single goroutine owns all client state; handlers talk to it through a
// command channel, so no lock is shared with the request path.
package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joeconsedine/claude-maze/internal/metrics"
)

const (
	maxClients   = 200
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

// Update is the envelope pushed to viewers on every state change.
type Update struct {
	Kind    string `json:"kind"` // "view", "laser", "video"
	Payload any    `json:"payload"`
}

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	conn  *websocket.Conn
	errCh chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	conn *websocket.Conn
}

func (cmdUnregister) hubCmd() {}

type cmdBroadcast struct {
	data []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdClientCount struct {
	replyCh chan int
}

func (cmdClientCount) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			_ = cw.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	_ = cw.conn.Close()
}

// --- Hub ---

type Hub struct {
	cmdCh   chan hubCmd
	done    chan struct{}
	clients map[*websocket.Conn]*clientWriter
}

func NewHub() *Hub {
	hub := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		done:    make(chan struct{}),
		clients: make(map[*websocket.Conn]*clientWriter),
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.conn)
		case cmdBroadcast:
			h.handleBroadcast(c.data)
		case cmdClientCount:
			c.replyCh <- len(h.clients)
		case cmdStop:
			h.handleStop()
			close(h.done)
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	if len(h.clients) >= maxClients {
		slog.Warn("Rejecting viewer: max clients reached", "max", maxClients)
		_ = c.conn.Close()
		c.errCh <- fmt.Errorf("max viewer clients (%d) reached", maxClients)
		return
	}

	h.clients[c.conn] = newClientWriter(c.conn)
	metrics.ViewerClientsConnected.Set(float64(len(h.clients)))
	slog.Debug("Viewer registered", "total_clients", len(h.clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cw, exists := h.clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, conn)
	metrics.ViewerClientsConnected.Set(float64(len(h.clients)))
	slog.Debug("Viewer unregistered", "remaining_clients", len(h.clients))
}

func (h *Hub) handleBroadcast(data []byte) {
	var slow []*websocket.Conn
	for conn, cw := range h.clients {
		select {
		case cw.sendCh <- data:
		default:
			// client cannot keep up, drop it rather than stall the hub
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow viewer client")
		metrics.ViewerSlowClientsEvicted.Inc()
		h.handleUnregister(conn)
	}
}

func (h *Hub) handleStop() {
	for conn, cw := range h.clients {
		cw.stop()
		delete(h.clients, conn)
	}
	metrics.ViewerClientsConnected.Set(0)
}

// --- Public API ---

// Every entry point guards against a stopped hub: once run() has returned,
// nothing drains cmdCh, so an unguarded send would block forever during
// shutdown.

func (h *Hub) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	select {
	case h.cmdCh <- cmdRegister{conn: conn, errCh: errCh}:
	case <-h.done:
		_ = conn.Close()
		return fmt.Errorf("hub is stopped")
	}

	select {
	case err := <-errCh:
		return err
	case <-h.done:
		// The stop may have raced a queued register; prefer the real answer
		// if it already arrived.
		select {
		case err := <-errCh:
			return err
		default:
		}
		_ = conn.Close()
		return fmt.Errorf("hub is stopped")
	}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	select {
	case h.cmdCh <- cmdUnregister{conn: conn}:
	case <-h.done:
	}
}

// Broadcast pushes an update to every connected viewer. Marshalling happens
// once, outside the hub goroutine.
func (h *Hub) Broadcast(kind string, payload any) {
	data, err := json.Marshal(Update{Kind: kind, Payload: payload})
	if err != nil {
		slog.Error("Failed to marshal viewer update", "kind", kind, "error", err)
		return
	}
	select {
	case h.cmdCh <- cmdBroadcast{data: data}:
		metrics.ViewerBroadcastsTotal.Inc()
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	select {
	case h.cmdCh <- cmdClientCount{replyCh: replyCh}:
	case <-h.done:
		return 0
	}
	select {
	case n := <-replyCh:
		return n
	case <-h.done:
		return 0
	}
}

func (h *Hub) Stop() {
	select {
	case h.cmdCh <- cmdStop{}:
	case <-h.done:
	}
}
