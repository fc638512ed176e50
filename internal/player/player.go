// Package player holds the persistent per-user records: a name bound at
// first login and an Elo-style rating updated after every finished game.
// Records live for the process lifetime and are shared across sessions.
package player

import (
	"math"
	"sync"

	"github.com/udisondev/tictac/internal/constants"
)

// Player is a user of the system. The name never changes; the rating
// mutates only through PostResult under the player's own lock.
type Player struct {
	name string

	mu     sync.Mutex
	rating float64
}

// New creates a player with the initial rating.
func New(name string) *Player {
	return &Player{name: name, rating: constants.InitialRating}
}

// Name returns the player's username.
func (p *Player) Name() string {
	return p.name
}

// Rating returns the player's current rating.
func (p *Player) Rating() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rating
}

// Outcome of a game between two players, as seen by PostResult.
type Outcome int

const (
	OutcomeDraw       Outcome = 0
	OutcomeFirstWins  Outcome = 1
	OutcomeSecondWins Outcome = 2
)

// PostResult updates both players' ratings after a game using the Elo
// update: with scores S1,S2 ∈ {0, 0.5, 1} and expected score
// E1 = 1/(1+10^((R2−R1)/400)), each rating moves by K·(S−E) with K=32.
// An outcome other than draw/first/second is ignored.
func PostResult(p1, p2 *Player, outcome Outcome) {
	var s1, s2 float64
	switch outcome {
	case OutcomeDraw:
		s1, s2 = 0.5, 0.5
	case OutcomeFirstWins:
		s1, s2 = 1.0, 0.0
	case OutcomeSecondWins:
		s1, s2 = 0.0, 1.0
	default:
		return
	}

	r1 := p1.Rating()
	r2 := p2.Rating()
	exp := (r2 - r1) / constants.EloDenominator
	e1 := 1.0 / (1.0 + math.Pow(10.0, exp))
	e2 := 1.0 / (1.0 + math.Pow(10.0, -exp))

	p1.mu.Lock()
	p1.rating += constants.EloKFactor * (s1 - e1)
	p1.mu.Unlock()

	p2.mu.Lock()
	p2.rating += constants.EloKFactor * (s2 - e2)
	p2.mu.Unlock()
}
