package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 64 * 1024
	sendBuffer   = 256
)

// client wraps one websocket connection. Outbound messages go through a
// buffered channel drained by a single write pump, so broadcasts never
// block on a slow or dead peer.
type client struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	shutOnce sync.Once
}

func newClient(id string, conn *websocket.Conn) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Send implements game.Sender. It never blocks; a full buffer or a closed
// connection drops the message and reports false.
func (c *client) Send(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("conn", c.id).Msg("marshal outbound message")
		return false
	}
	select {
	case <-c.done:
		return false
	case c.send <- data:
		return true
	default:
		return false
	}
}

// writePump serializes all writes to the connection and keeps it alive
// with pings. Messages to one connection go out in the order Send queued
// them.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// shutdown tears the connection down. Idempotent.
func (c *client) shutdown() {
	c.shutOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
