package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"scrollrace/internal/race"
)

// Inbox is where decoded client commands go. Satisfied by *race.Session.
type Inbox interface {
	Submit(race.Command)
}

// Inbound frame types. This is the whole client vocabulary; anything else is
// dropped at the boundary.
const (
	msgJoinDisplay    = "joinDisplay"
	msgJoinPlayer     = "joinPlayer"
	msgStartRace      = "startRace"
	msgUpdatePosition = "updatePosition"
	msgResetRace      = "resetRace"
)

// clientMessage is the single inbound envelope; the type field decides which
// of the remaining fields matter.
type clientMessage struct {
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	Position int    `json:"position,omitempty"`
	Time     *int64 `json:"time,omitempty"`
}

// Handler returns the WebSocket upgrade handler. Decoded frames are forwarded
// to the inbox; the session never sees raw bytes.
func (m *Manager) Handler(inbox Inbox) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := m.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
			return
		}

		c := &Conn{
			id:      uuid.New().String(),
			role:    RoleController,
			ws:      ws,
			send:    make(chan []byte, 256),
			done:    make(chan struct{}),
			manager: m,
		}
		m.register(c)

		go c.writePump()
		go c.readPump(inbox)

		log.Info().
			Str("conn_id", c.id).
			Str("remote", r.RemoteAddr).
			Msg("connection established")
	}
}

func (c *Conn) dispatch(inbox Inbox, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn().Err(err).Str("conn_id", c.id).Msg("malformed frame dropped")
		return
	}

	switch msg.Type {
	case msgJoinDisplay:
		// Role tagging is a transport concern; sticky for the connection's
		// lifetime.
		c.manager.setRole(c, RoleDisplay)
		inbox.Submit(race.JoinDisplay{ConnID: c.id})
	case msgJoinPlayer:
		inbox.Submit(race.JoinPlayer{ConnID: c.id, Name: msg.Name})
	case msgStartRace:
		inbox.Submit(race.StartRace{ConnID: c.id})
	case msgUpdatePosition:
		inbox.Submit(race.UpdatePosition{ConnID: c.id, Position: msg.Position, TimeMs: msg.Time})
	case msgResetRace:
		inbox.Submit(race.ResetRace{ConnID: c.id})
	default:
		log.Warn().Str("type", msg.Type).Str("conn_id", c.id).Msg("unknown frame type dropped")
	}
}
