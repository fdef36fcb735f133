package game

import (
	"sort"

	"github.com/jonasfabian/drawdash/internal/protocol"
)

const (
	basePoints       = 1000
	minCorrectPoints = 100
)

// Points converts guess timing and order into an award. Earlier guesses
// earn more; the first three correct guesses get a fixed bonus; any correct
// guess is worth at least minCorrectPoints.
func Points(elapsedSeconds, roundDurationSeconds, guessOrder int) int {
	remaining := roundDurationSeconds - elapsedSeconds
	if remaining < 0 {
		remaining = 0
	}
	points := 0
	if roundDurationSeconds > 0 {
		points = basePoints * remaining / roundDurationSeconds
	}
	switch guessOrder {
	case 1:
		points += 500
	case 2:
		points += 250
	case 3:
		points += 100
	}
	if points < minCorrectPoints {
		points = minCorrectPoints
	}
	return points
}

// Engine accumulates one room's score ledger. It is not safe for concurrent
// use on its own; the owning room's mutex serializes access.
type Engine struct {
	scores map[string]int
}

func NewEngine() *Engine {
	return &Engine{scores: make(map[string]int)}
}

// Award adds points to a player's total. Deltas are never negative by
// construction, so totals never go below zero.
func (e *Engine) Award(playerID string, points int) {
	e.scores[playerID] += points
}

func (e *Engine) Score(playerID string) int {
	return e.scores[playerID]
}

// Scoreboard returns a copy of the ledger.
func (e *Engine) Scoreboard() map[string]int {
	out := make(map[string]int, len(e.scores))
	for id, score := range e.scores {
		out[id] = score
	}
	return out
}

// FinalRankings sorts the given roster by descending score, ties broken by
// roster (join) order, and assigns 1-based ranks by sorted position.
func (e *Engine) FinalRankings(roster []*Player) []protocol.Ranking {
	rankings := make([]protocol.Ranking, 0, len(roster))
	for _, p := range roster {
		rankings = append(rankings, protocol.Ranking{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Score:      e.scores[p.ID],
		})
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Score > rankings[j].Score
	})
	for i := range rankings {
		rankings[i].Rank = i + 1
	}
	return rankings
}

// Reset clears the ledger for a new game.
func (e *Engine) Reset() {
	e.scores = make(map[string]int)
}
