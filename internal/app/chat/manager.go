package chat

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"lobbychat/internal/pkg/logx"
	"lobbychat/internal/pkg/randx"
)

// Manager owns the broadcast bus and every live client connection.
// It creates a Session per connection and tears everything down on Shutdown.
type Manager struct {
	bus   *Bus
	creds Credentials

	// clients holds the live connections keyed by session id.
	clients map[string]*Client

	closed bool

	// mu protects clients and closed.
	mu sync.RWMutex

	// wg counts connections still being served.
	wg sync.WaitGroup

	// structured logger with Manager context.
	logger zerolog.Logger
}

// NewManager returns a Manager publishing on bus and checking credentials against creds.
func NewManager(bus *Bus, creds Credentials) *Manager {
	return &Manager{
		bus:     bus,
		creds:   creds,
		clients: make(map[string]*Client),
		logger:  logx.Component("manager"),
	}
}

// Bus returns the broadcast bus shared by all sessions.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Serve runs a chat session over conn and blocks until the connection ends.
// ctx bounds the session's credential store calls.
func (m *Manager) Serve(ctx context.Context, conn *websocket.Conn) {
	id, err := randx.SessionID()
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to generate session id.")
		conn.Close()
		return
	}

	client := NewClient(NewSession(id, m.bus, m.creds), conn)

	if !m.register(client) {
		client.Kick(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer m.unregister(client)

	go client.WritePump()

	client.ReadPump(ctx)
}

func (m *Manager) register(c *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	m.clients[c.session.ID] = c
	m.wg.Add(1)

	m.logger.Info().
		Str("session_id", c.session.ID).
		Int("connections", len(m.clients)).
		Msg("Client connected.")
	return true
}

func (m *Manager) unregister(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[c.session.ID]; !ok {
		return
	}

	delete(m.clients, c.session.ID)
	m.wg.Done()

	m.logger.Info().
		Str("session_id", c.session.ID).
		Int("connections", len(m.clients)).
		Msg("Client disconnected.")
}

// Connections returns the number of open connections, joined or not.
func (m *Manager) Connections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.clients)
}

// Online returns the display names of the sessions that have joined the chat.
func (m *Manager) Online() []string {
	m.mu.RLock()
	clients := lo.Values(m.clients)
	m.mu.RUnlock()

	active := lo.Filter(clients, func(c *Client, _ int) bool {
		return c.session.State() == StateActive
	})

	return lo.Map(active, func(c *Client, _ int) string {
		return c.session.User().DisplayName
	})
}

// Shutdown refuses new connections, closes every open one and the bus, then
// waits for the connections to finish or ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info().Msg("Shutting down chat manager...")

	m.mu.Lock()
	m.closed = true
	clients := lo.Values(m.clients)
	m.mu.Unlock()

	for _, c := range clients {
		c.Kick(websocket.CloseGoingAway, "server shutting down")
	}

	m.bus.Close()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info().Int("closed_connections", len(clients)).Msg("Chat manager shutdown complete.")
		return nil
	case <-ctx.Done():
		m.logger.Warn().Msg("Chat manager shutdown timed out with connections still open.")
		return ctx.Err()
	}
}
