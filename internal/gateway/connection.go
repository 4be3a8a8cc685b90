package gateway

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"scrollrace/internal/race"
)

// Conn is one client connection. The role field is guarded by the manager's
// mutex; everything else is owned by the pump goroutines. done is closed by
// unregister; the send channel itself is never closed, so a fan-out racing a
// disconnect can at worst queue a payload nobody will read.
type Conn struct {
	id      string
	role    Role
	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{}
	manager *Manager
}

// trySend queues a payload without blocking. A send to a connection that has
// already been unregistered is skipped; a full send buffer means the client
// has stopped draining, and the connection is dropped so one dead phone
// cannot stall the room.
func (c *Conn) trySend(payload []byte) {
	select {
	case <-c.done:
	case c.send <- payload:
	default:
		log.Warn().
			Str("conn_id", c.id).
			Msg("send buffer full, dropping connection")
		c.manager.unregister(c)
		c.ws.Close()
	}
}

// writePump drains the send channel onto the socket and keeps the connection
// alive with periodic pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		c.manager.unregister(c)
	}()

	for {
		select {
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Debug().Err(err).Str("conn_id", c.id).Msg("write failed")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("conn_id", c.id).Msg("ping failed")
				return
			}
		}
	}
}

// readPump reads client frames until the connection dies, then tells the
// session so the player can be marked disconnected.
func (c *Conn) readPump(inbox Inbox) {
	defer func() {
		c.manager.unregister(c)
		c.ws.Close()
		inbox.Submit(race.Disconnected{ConnID: c.id})
	}()

	c.ws.SetReadLimit(c.manager.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("conn_id", c.id).Msg("unexpected close")
			}
			return
		}
		c.dispatch(inbox, data)
		c.ws.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}
