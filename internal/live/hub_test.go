package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialTestClient spins up an HTTP server that upgrades and registers every
// connection with the hub, then dials it. Returns the client side and the
// hub-registered server side of the connection.
func dialTestClient(t *testing.T, hub *Hub) (client, server *websocket.Conn) {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		require.NoError(t, hub.Register(conn))
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	select {
	case server = <-serverConns:
	case <-time.After(5 * time.Second):
		t.Fatal("server connection never arrived")
	}
	return conn, server
}

// dialRawConn upgrades a connection without registering it anywhere, for
// tests that drive hub internals directly.
func dialRawConn(t *testing.T) *websocket.Conn {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	// Drain so the server-side writer never backs up onto TCP buffers.
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case conn := <-serverConns:
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("server connection never arrived")
		return nil
	}
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	conn, _ := dialTestClient(t, hub)
	require.Equal(t, 1, hub.ClientCount())

	hub.Broadcast("view", map[string]int{"slide_index": 2})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var update struct {
		Kind    string         `json:"kind"`
		Payload map[string]int `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &update))
	assert.Equal(t, "view", update.Kind)
	assert.Equal(t, 2, update.Payload["slide_index"])
}

func TestHub_UnregisterRemovesClient(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	_, serverConn := dialTestClient(t, hub)
	require.Equal(t, 1, hub.ClientCount())

	hub.Unregister(serverConn)
	assert.Equal(t, 0, hub.ClientCount())

	// A second unregister of the same connection is a no-op.
	hub.Unregister(serverConn)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_BroadcastWithoutClientsDoesNotBlock(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Broadcast("view", map[string]string{"k": "v"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast blocked with zero clients")
	}
}

func TestHub_ClientCountStartsAtZero(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_EvictsSlowClientWithoutBlockingBroadcast(t *testing.T) {
	// Drive the broadcast path directly on an unstarted hub so the stalled
	// writer is deterministic: its send buffer is full and nothing drains it.
	healthyConn := dialRawConn(t)
	stalledConn := dialRawConn(t)

	healthy := newClientWriter(healthyConn)
	stalled := &clientWriter{
		conn:   stalledConn,
		sendCh: make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}

	h := &Hub{
		cmdCh: make(chan hubCmd, 256),
		done:  make(chan struct{}),
		clients: map[*websocket.Conn]*clientWriter{
			healthyConn: healthy,
			stalledConn: stalled,
		},
	}

	finished := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer+8; i++ {
			h.handleBroadcast([]byte(`{"kind":"view"}`))
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast blocked on a client that cannot keep up")
	}

	_, stalledKept := h.clients[stalledConn]
	assert.False(t, stalledKept, "stalled client must be evicted")
	_, healthyKept := h.clients[healthyConn]
	assert.True(t, healthyKept, "healthy client must survive the eviction")
}

func TestHub_RejectsRegisterAtMaxClients(t *testing.T) {
	h := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		done:    make(chan struct{}),
		clients: make(map[*websocket.Conn]*clientWriter),
	}
	for i := 0; i < maxClients; i++ {
		h.clients[&websocket.Conn{}] = nil
	}

	conn := dialRawConn(t)
	errCh := make(chan error, 1)
	h.handleRegister(cmdRegister{conn: conn, errCh: errCh})

	assert.Error(t, <-errCh)
	assert.Len(t, h.clients, maxClients, "a rejected connection must not be tracked")
}

func TestHub_SafeAfterStop(t *testing.T) {
	hub := NewHub()
	hub.Stop()

	select {
	case <-hub.done:
	case <-time.After(5 * time.Second):
		t.Fatal("hub never finished stopping")
	}

	// More sends than the command buffer holds; none may block.
	finished := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.Broadcast("view", map[string]int{"slide_index": 1})
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast blocked on a stopped hub")
	}

	conn := dialRawConn(t)
	assert.Error(t, hub.Register(conn), "register on a stopped hub must fail, not hang")
	assert.Equal(t, 0, hub.ClientCount())

	hub.Unregister(conn)
	hub.Stop()
}
