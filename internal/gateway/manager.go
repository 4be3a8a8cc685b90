package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"scrollrace/internal/race"
)

// Role tags a connection. Every connection starts out as a controller; a
// joinDisplay frame flips it to display for the rest of the connection's
// life.
type Role string

const (
	RoleController Role = "controller"
	RoleDisplay    Role = "display"
)

// Config holds transport tuning for WebSocket connections.
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConfig returns the default WebSocket configuration. Controllers are
// phones on flaky wifi, so the read deadline is generous and refreshed by
// pongs.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Controllers connect from whatever origin the QR code pointed
			// at; restrict in production deployments.
			return true
		},
	}
}

// Manager owns every live WebSocket connection and implements race.Sender.
// Sends are best-effort: a slow or dead connection is dropped rather than
// allowed to stall a fan-out.
type Manager struct {
	mu       sync.RWMutex
	conns    map[string]*Conn
	upgrader websocket.Upgrader
	config   Config
}

// NewManager creates a connection manager with the given transport config.
func NewManager(config Config) *Manager {
	return &Manager{
		conns: make(map[string]*Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

func (m *Manager) register(c *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[c.id] = c

	log.Debug().
		Str("conn_id", c.id).
		Int("total_connections", len(m.conns)).
		Msg("connection registered")
}

func (m *Manager) unregister(c *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conns[c.id]; !exists {
		return
	}
	delete(m.conns, c.id)
	close(c.done)

	log.Info().
		Str("conn_id", c.id).
		Str("role", string(c.role)).
		Msg("connection unregistered")
}

func (m *Manager) setRole(c *Conn, role Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.role = role
}

// SendTo delivers an event to a single connection. A send to a connection
// that is already gone is skipped.
func (m *Manager) SendTo(connID string, event race.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event")
		return
	}

	m.mu.RLock()
	c := m.conns[connID]
	m.mu.RUnlock()
	if c == nil {
		return
	}
	c.trySend(payload)
}

// Broadcast delivers an event to every connection.
func (m *Manager) Broadcast(event race.Event) {
	m.fanOut(event, func(*Conn) bool { return true })
}

// BroadcastExcept delivers an event to every connection but one.
func (m *Manager) BroadcastExcept(connID string, event race.Event) {
	m.fanOut(event, func(c *Conn) bool { return c.id != connID })
}

// BroadcastToDisplays delivers an event to display-role connections only.
func (m *Manager) BroadcastToDisplays(event race.Event) {
	m.fanOut(event, func(c *Conn) bool { return c.role == RoleDisplay })
}

func (m *Manager) fanOut(event race.Event, match func(*Conn) bool) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	// Snapshot the targets so the lock is not held while sending; a skipped
	// recipient never aborts the rest of the fan-out.
	m.mu.RLock()
	targets := make([]*Conn, 0, len(m.conns))
	for _, c := range m.conns {
		if match(c) {
			targets = append(targets, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range targets {
		c.trySend(payload)
	}
}

// Stats returns counts of active connections by role.
func (m *Manager) Stats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	controllers, displays := 0, 0
	for _, c := range m.conns {
		if c.role == RoleDisplay {
			displays++
		} else {
			controllers++
		}
	}
	return map[string]any{
		"total_connections": len(m.conns),
		"controllers":       controllers,
		"displays":          displays,
	}
}
