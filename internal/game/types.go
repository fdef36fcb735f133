package game

import (
	"errors"
	"time"
)

var (
	ErrRoomFull  = errors.New("room full")
	ErrNotDrawer = errors.New("not the active drawer")
)

// Phase is the round state machine of a room.
type Phase string

const (
	PhaseWaiting      Phase = "Waiting"
	PhaseRoundActive  Phase = "RoundActive"
	PhaseIntermission Phase = "Intermission"
	PhaseGameEnded    Phase = "GameEnded"
)

// Config is the per-room game configuration, fixed at room creation.
type Config struct {
	MinPlayers           int
	MaxPlayers           int
	RoundDuration        int // seconds
	IntermissionDuration int // seconds
	TotalRounds          int
	Prompts              []string
}

// Sender delivers one outbound message to a single connection. Send must
// not block; it reports false when the message was dropped or the
// connection is gone.
type Sender interface {
	Send(v any) bool
}

// Player is one room participant. The room's mutex guards every field.
type Player struct {
	ID        string
	Name      string
	Score     int
	Avatar    string
	Connected bool
	Conn      Sender
	JoinedAt  time.Time
}

// GuessRecord is one adjudicated guess within the current round.
type GuessRecord struct {
	PlayerID string
	Guess    string
	At       time.Time
	Correct  bool
	Order    int // 1-based rank among correct guesses, 0 if incorrect
	Elapsed  int // seconds into the round
	Points   int
}

// RoomInfo is the listing-endpoint view of a room.
type RoomInfo struct {
	RoomID      string `json:"roomId"`
	PlayerCount int    `json:"playerCount"`
	HasStarted  bool   `json:"hasStarted"`
}
