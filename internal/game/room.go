package game

import (
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jonasfabian/drawdash/internal/protocol"
)

// Room owns one game session: its roster, round state machine, prompt and
// drawer selection, guess adjudication and score ledger. Every operation,
// including timer expiry callbacks, runs under the room's single mutex, so
// cross-field invariants are never observed torn. Broadcasts go straight
// into each player's non-blocking send channel, which is why they are safe
// to issue while holding the lock.
type Room struct {
	mu  sync.Mutex
	id  string
	cfg Config
	log zerolog.Logger

	players    []*Player // join order
	phase      Phase
	hasStarted bool

	round       int
	drawerIdx   int    // rotation cursor into players
	drawerID    string // active drawer, "" outside rounds
	prompt      string
	usedPrompts map[string]struct{}

	guesses      []GuessRecord
	guessed      map[string]bool // player ids with a correct guess this round
	correctCount int

	engine *Engine
	timer  *countdown

	// timer resolution, shrunk by tests
	tick time.Duration
}

func NewRoom(id string, cfg Config) *Room {
	return &Room{
		id:          id,
		cfg:         cfg,
		log:         log.With().Str("room", id).Logger(),
		phase:       PhaseWaiting,
		drawerIdx:   -1,
		usedPrompts: make(map[string]struct{}),
		guessed:     make(map[string]bool),
		engine:      NewEngine(),
		tick:        time.Second,
	}
}

func (r *Room) ID() string { return r.id }

// AddPlayer attaches a player to the roster and fans out player_joined with
// the full roster. Reaching the configured minimum starts the game; a room
// knocked back to Waiting mid-game resumes once the minimum is met again.
func (r *Room) AddPlayer(p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) >= r.cfg.MaxPlayers {
		return ErrRoomFull
	}
	p.Connected = true
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	r.players = append(r.players, p)
	r.log.Info().Str("player", p.ID).Str("name", p.Name).Int("count", len(r.players)).Msg("player joined")

	r.broadcastLocked(protocol.PlayerJoined{
		Envelope: protocol.Stamp(protocol.TypePlayerJoined),
		Player:   r.wirePlayerLocked(p),
		Players:  r.wirePlayersLocked(),
	})

	if r.phase == PhaseWaiting && len(r.players) >= r.cfg.MinPlayers {
		if !r.hasStarted {
			r.hasStarted = true
			r.startRoundLocked()
		} else if r.round < r.cfg.TotalRounds {
			// game resumes after dropping below the minimum mid-game
			r.startRoundLocked()
		} else {
			r.endGameLocked()
		}
	}
	return nil
}

// RemovePlayer drops a player from the roster and broadcasts player_left.
// A departing drawer ends the round immediately; a roster below the
// minimum abandons the round and returns the room to Waiting.
func (r *Room) RemovePlayer(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	p := r.players[idx]
	p.Connected = false
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	if idx <= r.drawerIdx {
		r.drawerIdx--
	}
	wasDrawer := p.ID == r.drawerID
	r.log.Info().Str("player", p.ID).Int("count", len(r.players)).Msg("player left")

	r.broadcastLocked(protocol.PlayerLeft{
		Envelope: protocol.Stamp(protocol.TypePlayerLeft),
		PlayerID: p.ID,
		Players:  r.wirePlayersLocked(),
	})

	if r.phase == PhaseWaiting || r.phase == PhaseGameEnded {
		return
	}
	if len(r.players) < r.cfg.MinPlayers {
		// abandon the round without awarding outstanding points
		r.stopTimerLocked()
		r.phase = PhaseWaiting
		r.drawerID = ""
		r.log.Info().Msg("roster below minimum, round abandoned")
		return
	}
	if wasDrawer && r.phase == PhaseRoundActive {
		r.endRoundLocked()
		return
	}
	if r.allGuessersCorrectLocked() {
		r.endRoundLocked()
	}
}

// ProcessGuess adjudicates one guess. Guesses outside an active round, from
// the drawer, or from a player who already guessed correctly this round are
// no-ops without broadcast. Every other guess is echoed to the room; a
// correct one also yields guess_result and score_update, and ends the round
// early once every guesser holds a correct guess.
func (r *Room) ProcessGuess(playerID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseRoundActive || playerID == r.drawerID || r.guessed[playerID] {
		return
	}
	var player *Player
	for _, p := range r.players {
		if p.ID == playerID {
			player = p
			break
		}
	}
	if player == nil {
		return
	}

	r.broadcastLocked(protocol.GuessBroadcast{
		Envelope:   protocol.Stamp(protocol.TypeGuess),
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Guess:      text,
	})

	record := GuessRecord{
		PlayerID: player.ID,
		Guess:    text,
		At:       time.Now().UTC(),
	}
	if !strings.EqualFold(strings.TrimSpace(text), r.prompt) {
		r.guesses = append(r.guesses, record)
		return
	}

	r.correctCount++
	record.Correct = true
	record.Order = r.correctCount
	record.Elapsed = r.cfg.RoundDuration - r.timer.remainingSeconds()
	record.Points = Points(record.Elapsed, r.cfg.RoundDuration, record.Order)
	r.guesses = append(r.guesses, record)
	r.guessed[player.ID] = true
	r.engine.Award(player.ID, record.Points)
	player.Score = r.engine.Score(player.ID)
	r.log.Info().Str("player", player.ID).Int("order", record.Order).Int("points", record.Points).Msg("correct guess")

	r.broadcastLocked(protocol.GuessResult{
		Envelope:      protocol.Stamp(protocol.TypeGuessResult),
		PlayerID:      player.ID,
		PlayerName:    player.Name,
		Correct:       true,
		PointsAwarded: record.Points,
	})
	r.broadcastLocked(protocol.ScoreUpdate{
		Envelope: protocol.Stamp(protocol.TypeScoreUpdate),
		Scores:   r.engine.Scoreboard(),
	})

	if r.allGuessersCorrectLocked() {
		r.endRoundLocked()
	}
}

// RelayDraw forwards stroke geometry to everyone but the drawer. Only the
// active drawer may emit it; the server never inspects the stroke itself.
func (r *Room) RelayDraw(playerID string, stroke json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drawerID == "" || playerID != r.drawerID {
		return ErrNotDrawer
	}
	r.broadcastExceptLocked(playerID, protocol.DrawingEvent{
		Envelope: protocol.Stamp(protocol.TypeDrawingEvent),
		Stroke:   stroke,
	})
	return nil
}

func (r *Room) RelayToolChange(playerID, color string, brushSize float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drawerID == "" || playerID != r.drawerID {
		return ErrNotDrawer
	}
	r.broadcastExceptLocked(playerID, protocol.ToolChangeEvent{
		Envelope:  protocol.Stamp(protocol.TypeToolChange),
		Color:     color,
		BrushSize: brushSize,
	})
	return nil
}

func (r *Room) RelayClearCanvas(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drawerID == "" || playerID != r.drawerID {
		return ErrNotDrawer
	}
	r.broadcastExceptLocked(playerID, protocol.ClearCanvasEvent{
		Envelope: protocol.Stamp(protocol.TypeClearCanvas),
	})
	return nil
}

// Empty reports whether the roster is empty.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) == 0
}

// Snapshot is the listing-endpoint view of the room.
func (r *Room) Snapshot() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{RoomID: r.id, PlayerCount: len(r.players), HasStarted: r.hasStarted}
}

// --- internals, all called with r.mu held ---

func (r *Room) startRoundLocked() {
	if len(r.players) == 0 {
		return
	}
	r.round++
	r.drawerIdx = (r.drawerIdx + 1) % len(r.players)
	drawer := r.players[r.drawerIdx]
	r.drawerID = drawer.ID
	r.prompt = r.pickPromptLocked()
	r.phase = PhaseRoundActive
	r.guesses = nil
	r.guessed = make(map[string]bool)
	r.correctCount = 0
	r.log.Info().Int("round", r.round).Str("drawer", drawer.ID).Msg("round started")

	for _, p := range r.players {
		msg := protocol.RoundStart{
			Envelope:    protocol.Stamp(protocol.TypeRoundStart),
			RoundNumber: r.round,
			IsDrawer:    p.ID == drawer.ID,
			DrawerID:    drawer.ID,
		}
		if p.ID == drawer.ID {
			msg.Prompt = r.prompt
		}
		p.Conn.Send(msg)
	}

	r.stopTimerLocked()
	var c *countdown
	c = newCountdown(r.cfg.RoundDuration,
		func(remaining int) { r.onRoundTick(c, remaining) },
		func() { r.onRoundExpired(c) },
	)
	r.timer = c
	c.start(r.tick)
	r.broadcastLocked(protocol.TimerTick{
		Envelope:         protocol.Stamp(protocol.TypeTimerTick),
		RemainingSeconds: r.cfg.RoundDuration,
	})
}

func (r *Room) endRoundLocked() {
	if r.phase != PhaseRoundActive {
		return
	}
	r.stopTimerLocked()
	r.phase = PhaseIntermission
	r.drawerID = ""
	r.log.Info().Int("round", r.round).Str("prompt", r.prompt).Msg("round ended")

	r.broadcastLocked(protocol.RoundEnd{
		Envelope: protocol.Stamp(protocol.TypeRoundEnd),
		Prompt:   r.prompt,
		Scores:   r.engine.Scoreboard(),
	})

	var c *countdown
	c = newCountdown(r.cfg.IntermissionDuration, nil,
		func() { r.onIntermissionExpired(c) },
	)
	r.timer = c
	c.start(r.tick)
}

func (r *Room) endGameLocked() {
	r.stopTimerLocked()
	r.phase = PhaseGameEnded
	r.drawerID = ""
	r.log.Info().Msg("game ended")
	r.broadcastLocked(protocol.GameEnd{
		Envelope:      protocol.Stamp(protocol.TypeGameEnd),
		FinalRankings: r.engine.FinalRankings(r.players),
	})
}

func (r *Room) stopTimerLocked() {
	if r.timer != nil {
		r.timer.stop()
	}
}

// onRoundTick runs on the countdown goroutine: the clock race with guesses
// and disconnects is settled by taking the room lock here.
func (r *Room) onRoundTick(c *countdown, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != c || r.phase != PhaseRoundActive {
		return
	}
	r.broadcastLocked(protocol.TimerTick{
		Envelope:         protocol.Stamp(protocol.TypeTimerTick),
		RemainingSeconds: remaining,
	})
}

func (r *Room) onRoundExpired(c *countdown) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// whoever got the lock first won; a stale timer is a no-op
	if r.timer != c || r.phase != PhaseRoundActive {
		return
	}
	r.endRoundLocked()
}

func (r *Room) onIntermissionExpired(c *countdown) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != c || r.phase != PhaseIntermission {
		return
	}
	if r.round < r.cfg.TotalRounds {
		r.startRoundLocked()
	} else {
		r.endGameLocked()
	}
}

func (r *Room) allGuessersCorrectLocked() bool {
	if r.phase != PhaseRoundActive {
		return false
	}
	guessers := 0
	for _, p := range r.players {
		if p.ID == r.drawerID {
			continue
		}
		if !r.guessed[p.ID] {
			return false
		}
		guessers++
	}
	return guessers > 0
}

func (r *Room) pickPromptLocked() string {
	pool := r.cfg.Prompts
	unused := make([]string, 0, len(pool))
	for _, p := range pool {
		if _, ok := r.usedPrompts[p]; !ok {
			unused = append(unused, p)
		}
	}
	if len(unused) == 0 {
		unused = pool
	}
	if len(unused) == 0 {
		return ""
	}
	prompt := unused[rand.Intn(len(unused))]
	r.usedPrompts[prompt] = struct{}{}
	return prompt
}

func (r *Room) broadcastLocked(v any) {
	for _, p := range r.players {
		p.Conn.Send(v)
	}
}

func (r *Room) broadcastExceptLocked(exceptID string, v any) {
	for _, p := range r.players {
		if p.ID == exceptID {
			continue
		}
		p.Conn.Send(v)
	}
}

func (r *Room) wirePlayerLocked(p *Player) protocol.Player {
	return protocol.Player{
		ID:          p.ID,
		Name:        p.Name,
		Score:       p.Score,
		Avatar:      p.Avatar,
		IsConnected: p.Connected,
	}
}

func (r *Room) wirePlayersLocked() []protocol.Player {
	out := make([]protocol.Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, r.wirePlayerLocked(p))
	}
	return out
}
