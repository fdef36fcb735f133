// Package ws is the connection-facing edge of the server: it upgrades
// websockets, binds each connection to a (room, player) identity on join,
// decodes inbound frames once, and dispatches them to room operations.
package ws

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jonasfabian/drawdash/internal/game"
	"github.com/jonasfabian/drawdash/internal/protocol"
)

// Inbound frame budget per connection. Draw strokes arrive at mouse-move
// frequency, so the ceiling is generous.
const (
	messagesPerSecond = 60
	messageBurst      = 120
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// binding is the identity a connection acquires on a successful join.
type binding struct {
	roomID     string
	playerID   string
	playerName string
}

// Gateway maps live connections to room/player identities and shuttles
// protocol messages between them and the registry's rooms.
//
// Lock order: the gateway's binding mutex is always acquired and released
// before any room mutex, never while holding one.
type Gateway struct {
	registry *game.Registry

	mu       sync.Mutex
	bindings map[*client]binding
}

func New(registry *game.Registry) *Gateway {
	return &Gateway{
		registry: registry,
		bindings: make(map[*client]binding),
	}
}

// Mount attaches the websocket endpoint to the given Gin engine.
func (g *Gateway) Mount(r *gin.Engine) {
	r.GET("/ws", g.handleWS)
}

func (g *Gateway) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	cl := newClient(uuid.NewString(), conn)
	log.Info().Str("conn", cl.id).Msg("connection opened")
	go cl.writePump()
	g.readPump(cl)
}

func (g *Gateway) readPump(cl *client) {
	defer func() {
		g.handleDisconnect(cl)
		cl.shutdown()
		log.Info().Str("conn", cl.id).Msg("connection closed")
	}()

	cl.conn.SetReadLimit(readLimit)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(messagesPerSecond), messageBurst)
	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			cl.Send(protocol.NewError("Too many messages"))
			continue
		}
		g.dispatch(cl, data)
	}
}

func (g *Gateway) dispatch(cl *client, data []byte) {
	msg, err := protocol.DecodeClient(data)
	if err != nil {
		log.Debug().Err(err).Str("conn", cl.id).Msg("rejected frame")
		cl.Send(protocol.NewError("Invalid message format"))
		return
	}
	switch m := msg.(type) {
	case protocol.Join:
		g.handleJoin(cl, m)
	case protocol.Draw:
		g.handleDraw(cl, m)
	case protocol.ToolChange:
		g.handleToolChange(cl, m)
	case protocol.ClearCanvas:
		g.handleClearCanvas(cl)
	case protocol.Guess:
		g.handleGuess(cl, m)
	}
}

func (g *Gateway) handleJoin(cl *client, m protocol.Join) {
	roomID := strings.TrimSpace(m.RoomID)
	playerName := strings.TrimSpace(m.PlayerName)
	if roomID == "" || playerName == "" {
		cl.Send(protocol.NewError("roomId and playerName cannot be empty"))
		return
	}

	playerID := uuid.NewString()
	g.mu.Lock()
	if _, bound := g.bindings[cl]; bound {
		g.mu.Unlock()
		cl.Send(protocol.NewError("Connection already joined a room"))
		return
	}
	g.bindings[cl] = binding{roomID: roomID, playerID: playerID, playerName: playerName}
	g.mu.Unlock()

	room := g.registry.GetOrCreate(roomID)
	player := &game.Player{
		ID:     playerID,
		Name:   playerName,
		Avatar: game.AssignRandomAvatar(),
		Conn:   cl,
	}
	if err := room.AddPlayer(player); err != nil {
		g.mu.Lock()
		delete(g.bindings, cl)
		g.mu.Unlock()
		if room.Empty() {
			g.registry.ScheduleCleanup(roomID)
		}
		cl.Send(protocol.NewError("Room is full"))
		return
	}
	log.Info().Str("conn", cl.id).Str("room", roomID).Str("player", playerID).Str("name", playerName).Msg("player joined room")
}

func (g *Gateway) handleDraw(cl *client, m protocol.Draw) {
	b, room := g.lookup(cl)
	if room == nil {
		return
	}
	if err := room.RelayDraw(b.playerID, m.Stroke); err != nil {
		cl.Send(protocol.NewError("Only the active drawer can draw"))
	}
}

func (g *Gateway) handleToolChange(cl *client, m protocol.ToolChange) {
	b, room := g.lookup(cl)
	if room == nil {
		return
	}
	// non-drawer tool changes are dropped without a reply
	_ = room.RelayToolChange(b.playerID, m.Color, m.BrushSize)
}

func (g *Gateway) handleClearCanvas(cl *client) {
	b, room := g.lookup(cl)
	if room == nil {
		return
	}
	_ = room.RelayClearCanvas(b.playerID)
}

func (g *Gateway) handleGuess(cl *client, m protocol.Guess) {
	b, room := g.lookup(cl)
	if room == nil {
		cl.Send(protocol.NewError("Join a room first"))
		return
	}
	if strings.TrimSpace(m.Guess) == "" {
		cl.Send(protocol.NewError("Guess cannot be empty"))
		return
	}
	room.ProcessGuess(b.playerID, m.Guess)
}

func (g *Gateway) handleDisconnect(cl *client) {
	g.mu.Lock()
	b, bound := g.bindings[cl]
	delete(g.bindings, cl)
	g.mu.Unlock()
	if !bound {
		return
	}
	room := g.registry.Get(b.roomID)
	if room == nil {
		return
	}
	room.RemovePlayer(b.playerID)
	if room.Empty() {
		g.registry.ScheduleCleanup(b.roomID)
	}
}

// lookup resolves a connection's identity and room. A missing binding or a
// vanished room yields a nil room; canvas frames are dropped then, guesses
// are answered with an error.
func (g *Gateway) lookup(cl *client) (binding, *game.Room) {
	g.mu.Lock()
	b, bound := g.bindings[cl]
	g.mu.Unlock()
	if !bound {
		return binding{}, nil
	}
	return b, g.registry.Get(b.roomID)
}
