package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jonasfabian/drawdash/internal/game"
)

func testConfig() game.Config {
	return game.Config{
		MinPlayers:           2,
		MaxPlayers:           8,
		RoundDuration:        60,
		IntermissionDuration: 1,
		TotalRounds:          1,
		Prompts:              []string{"cat"},
	}
}

func newTestServer(t *testing.T, cfg game.Config) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(game.NewRegistry(cfg)).Mount(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntilType drains frames until one of the wanted type arrives,
// skipping interleaved broadcasts such as timer_tick.
func readUntilType(t *testing.T, conn *websocket.Conn, msgType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: read failed: %v", msgType, err)
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("waiting for %q: bad frame %q: %v", msgType, data, err)
		}
		if msg["type"] == msgType {
			return msg
		}
	}
	t.Fatalf("timed out waiting for %q", msgType)
	return nil
}

func join(t *testing.T, conn *websocket.Conn, roomID, name string) {
	t.Helper()
	sendJSON(t, conn, map[string]any{"type": "join", "roomId": roomID, "playerName": name})
}

func TestJoinValidation(t *testing.T) {
	srv := newTestServer(t, testConfig())
	conn := dial(t, srv)

	join(t, conn, "lobby", "   ")
	msg := readUntilType(t, conn, "error")
	if msg["message"] != "roomId and playerName cannot be empty" {
		t.Fatalf("unexpected error message %q", msg["message"])
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg = readUntilType(t, conn, "error")
	if msg["message"] != "Invalid message format" {
		t.Fatalf("unexpected error message %q", msg["message"])
	}

	sendJSON(t, conn, map[string]any{"type": "teleport"})
	msg = readUntilType(t, conn, "error")
	if msg["message"] != "Invalid message format" {
		t.Fatalf("unexpected error message %q", msg["message"])
	}
}

func TestDoubleJoinRejected(t *testing.T) {
	cfg := testConfig()
	cfg.MinPlayers = 3 // keep the room in its waiting state
	srv := newTestServer(t, cfg)
	conn := dial(t, srv)

	join(t, conn, "lobby", "Alice")
	readUntilType(t, conn, "player_joined")

	join(t, conn, "lobby", "Alice2")
	msg := readUntilType(t, conn, "error")
	if msg["message"] != "Connection already joined a room" {
		t.Fatalf("unexpected error message %q", msg["message"])
	}
}

func TestRoomFull(t *testing.T) {
	cfg := testConfig()
	cfg.MinPlayers = 3
	cfg.MaxPlayers = 2
	srv := newTestServer(t, cfg)

	c1 := dial(t, srv)
	join(t, c1, "lobby", "Alice")
	readUntilType(t, c1, "player_joined")

	c2 := dial(t, srv)
	join(t, c2, "lobby", "Bob")
	readUntilType(t, c2, "player_joined")

	c3 := dial(t, srv)
	join(t, c3, "lobby", "Carol")
	msg := readUntilType(t, c3, "error")
	if msg["message"] != "Room is full" {
		t.Fatalf("unexpected error message %q", msg["message"])
	}
}

func TestGuessBeforeJoinRejected(t *testing.T) {
	srv := newTestServer(t, testConfig())
	conn := dial(t, srv)

	sendJSON(t, conn, map[string]any{"type": "guess", "guess": "cat"})
	msg := readUntilType(t, conn, "error")
	if msg["message"] != "Join a room first" {
		t.Fatalf("unexpected error message %q", msg["message"])
	}

	// canvas frames before joining stay silent; a follow-up guess still
	// errors, proving the connection survived them
	sendJSON(t, conn, map[string]any{"type": "draw", "stroke": map[string]any{"x": 1}})
	sendJSON(t, conn, map[string]any{"type": "clear_canvas"})
	sendJSON(t, conn, map[string]any{"type": "guess", "guess": "cat"})
	msg = readUntilType(t, conn, "error")
	if msg["message"] != "Join a room first" {
		t.Fatalf("unexpected error message %q", msg["message"])
	}
}

func TestEmptyGuessRejected(t *testing.T) {
	srv := newTestServer(t, testConfig())

	c1 := dial(t, srv)
	join(t, c1, "lobby", "Alice")
	c2 := dial(t, srv)
	join(t, c2, "lobby", "Bob")
	readUntilType(t, c2, "round_start")

	sendJSON(t, c2, map[string]any{"type": "guess", "guess": "   "})
	msg := readUntilType(t, c2, "error")
	if msg["message"] != "Guess cannot be empty" {
		t.Fatalf("unexpected error message %q", msg["message"])
	}
}

func TestDisconnectBroadcastsPlayerLeft(t *testing.T) {
	cfg := testConfig()
	cfg.MinPlayers = 3
	srv := newTestServer(t, cfg)

	c1 := dial(t, srv)
	join(t, c1, "lobby", "Alice")
	c2 := dial(t, srv)
	join(t, c2, "lobby", "Bob")
	readUntilType(t, c1, "player_joined") // Alice's own join
	readUntilType(t, c1, "player_joined") // Bob's join

	c2.Close()
	msg := readUntilType(t, c1, "player_left")
	players := msg["players"].([]any)
	if len(players) != 1 {
		t.Fatalf("expected a roster of 1 after the departure, got %d", len(players))
	}
}

// TestFullGameFlow walks a complete single-round game over real websockets:
// join, personalized round_start, drawer-gated relays, a scored guess, the
// round reveal and the final rankings.
func TestFullGameFlow(t *testing.T) {
	srv := newTestServer(t, testConfig())

	c1 := dial(t, srv)
	join(t, c1, "lobby", "Alice")
	joined := readUntilType(t, c1, "player_joined")
	aliceID := joined["player"].(map[string]any)["id"].(string)

	c2 := dial(t, srv)
	join(t, c2, "lobby", "Bob")
	joined = readUntilType(t, c2, "player_joined")
	bobID := joined["player"].(map[string]any)["id"].(string)
	if roster := joined["players"].([]any); len(roster) != 2 {
		t.Fatalf("expected a roster of 2, got %d", len(roster))
	}

	// the first joiner draws and is the only one to see the prompt
	start1 := readUntilType(t, c1, "round_start")
	if start1["isDrawer"] != true || start1["prompt"] != "cat" || start1["drawerId"] != aliceID {
		t.Fatalf("unexpected drawer round_start %+v", start1)
	}
	start2 := readUntilType(t, c2, "round_start")
	if start2["isDrawer"] != false {
		t.Fatalf("second joiner should be a guesser, got %+v", start2)
	}
	if _, ok := start2["prompt"]; ok {
		t.Fatal("guesser round_start must not carry the prompt")
	}

	// guessers cannot draw
	sendJSON(t, c2, map[string]any{"type": "draw", "stroke": map[string]any{"x": 1}})
	msg := readUntilType(t, c2, "error")
	if msg["message"] != "Only the active drawer can draw" {
		t.Fatalf("unexpected error message %q", msg["message"])
	}

	// drawer relays reach the guesser but never echo back
	sendJSON(t, c1, map[string]any{"type": "clear_canvas"})
	readUntilType(t, c2, "clear_canvas")
	sendJSON(t, c1, map[string]any{"type": "draw", "stroke": map[string]any{"points": []any{[]any{0, 0}, []any{5, 5}}}})
	drawing := readUntilType(t, c2, "drawing_event")
	if drawing["stroke"] == nil {
		t.Fatal("drawing_event should carry the stroke payload")
	}

	// a correct guess, case-insensitive and trimmed
	sendJSON(t, c2, map[string]any{"type": "guess", "guess": "  CAT "})
	echo := readUntilType(t, c1, "guess")
	if echo["playerId"] != bobID {
		t.Fatalf("guess echo should name the guesser, got %+v", echo)
	}
	result := readUntilType(t, c2, "guess_result")
	if result["correct"] != true || result["pointsAwarded"] != float64(1500) {
		t.Fatalf("instant first guess should score 1500, got %+v", result)
	}
	scores := readUntilType(t, c2, "score_update")["scores"].(map[string]any)
	if scores[bobID] != float64(1500) {
		t.Fatalf("score_update should carry 1500 for the guesser, got %+v", scores)
	}

	// the only guesser succeeded, so the round ends and reveals the prompt
	end := readUntilType(t, c1, "round_end")
	if end["prompt"] != "cat" {
		t.Fatalf("round_end must reveal the prompt, got %+v", end)
	}

	// single-round game: the intermission leads straight to game_end
	final := readUntilType(t, c1, "game_end")
	rankings := final["finalRankings"].([]any)
	if len(rankings) != 2 {
		t.Fatalf("expected rankings for both players, got %d", len(rankings))
	}
	top := rankings[0].(map[string]any)
	if top["playerId"] != bobID || top["rank"] != float64(1) || top["score"] != float64(1500) {
		t.Fatalf("the guesser should finish first with 1500, got %+v", top)
	}
}
