// Package protocol defines the wire format spoken over a game websocket:
// one JSON object per message, discriminated by a "type" field. Client
// frames are decoded once at the boundary into a closed set of variants;
// everything the server sends carries a server-assigned timestamp.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Client message types.
const (
	TypeJoin        = "join"
	TypeDraw        = "draw"
	TypeToolChange  = "tool_change"
	TypeClearCanvas = "clear_canvas"
	TypeGuess       = "guess"
)

// Server message types.
const (
	TypePlayerJoined = "player_joined"
	TypePlayerLeft   = "player_left"
	TypeRoundStart   = "round_start"
	TypeDrawingEvent = "drawing_event"
	TypeRoundEnd     = "round_end"
	TypeGameEnd      = "game_end"
	TypeGuessResult  = "guess_result"
	TypeScoreUpdate  = "score_update"
	TypeTimerTick    = "timer_tick"
	TypeError        = "error"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// ClientMessage is the closed set of frames a client may send.
type ClientMessage interface{ clientMessage() }

type Join struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

type Draw struct {
	Stroke json.RawMessage `json:"stroke"`
}

type ToolChange struct {
	Color     string  `json:"color"`
	BrushSize float64 `json:"brushSize"`
}

type ClearCanvas struct{}

type Guess struct {
	Guess string `json:"guess"`
}

func (Join) clientMessage()        {}
func (Draw) clientMessage()        {}
func (ToolChange) clientMessage()  {}
func (ClearCanvas) clientMessage() {}
func (Guess) clientMessage()       {}

// DecodeClient parses one inbound frame. Unparseable JSON or wrongly typed
// fields yield ErrMalformed; a type outside the closed set yields
// ErrUnknownType.
func DecodeClient(data []byte) (ClientMessage, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch env.Type {
	case TypeJoin:
		var m Join
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return m, nil
	case TypeDraw:
		var m Draw
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return m, nil
	case TypeToolChange:
		var m ToolChange
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return m, nil
	case TypeClearCanvas:
		return ClearCanvas{}, nil
	case TypeGuess:
		var m Guess
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// Envelope is embedded in every server message.
type Envelope struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// Stamp returns an envelope for the given type, timestamped now.
func Stamp(msgType string) Envelope {
	return Envelope{Type: msgType, Timestamp: time.Now().UnixMilli()}
}

// Player is the roster entry as clients see it.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
	Avatar      string `json:"avatar"`
	IsConnected bool   `json:"isConnected"`
}

// Ranking is one row of the final scoreboard.
type Ranking struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
	Rank       int    `json:"rank"`
}

type PlayerJoined struct {
	Envelope
	Player  Player   `json:"player"`
	Players []Player `json:"players"`
}

type PlayerLeft struct {
	Envelope
	PlayerID string   `json:"playerId"`
	Players  []Player `json:"players"`
}

// RoundStart is personalized per recipient: only the drawer's copy carries
// the prompt.
type RoundStart struct {
	Envelope
	RoundNumber int    `json:"roundNumber"`
	IsDrawer    bool   `json:"isDrawer"`
	Prompt      string `json:"prompt,omitempty"`
	DrawerID    string `json:"drawerId"`
}

type DrawingEvent struct {
	Envelope
	Stroke json.RawMessage `json:"stroke"`
}

type ToolChangeEvent struct {
	Envelope
	Color     string  `json:"color"`
	BrushSize float64 `json:"brushSize"`
}

type ClearCanvasEvent struct {
	Envelope
}

type GuessBroadcast struct {
	Envelope
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Guess      string `json:"guess"`
}

type GuessResult struct {
	Envelope
	PlayerID      string `json:"playerId"`
	PlayerName    string `json:"playerName"`
	Correct       bool   `json:"correct"`
	PointsAwarded int    `json:"pointsAwarded"`
}

type ScoreUpdate struct {
	Envelope
	Scores map[string]int `json:"scores"`
}

type RoundEnd struct {
	Envelope
	Prompt string         `json:"prompt"`
	Scores map[string]int `json:"scores"`
}

type GameEnd struct {
	Envelope
	FinalRankings []Ranking `json:"finalRankings"`
}

type TimerTick struct {
	Envelope
	RemainingSeconds int `json:"remainingSeconds"`
}

type ErrorMessage struct {
	Envelope
	Message string `json:"message"`
}

// NewError builds a stamped error message.
func NewError(msg string) ErrorMessage {
	return ErrorMessage{Envelope: Stamp(TypeError), Message: msg}
}
