// Package game implements the tic-tac-toe engine: board state, move
// parsing and legality, resignation, termination and winner determination.
// The engine does no I/O and knows nothing about sessions; callers are
// responsible for serialising concurrent access to a Game.
package game

import (
	"errors"
	"strings"
)

// Role identifies a participant of a match by move order. RoleFirst moves
// first and plays X; RoleSecond plays O. RoleNone is the sentinel used for
// "no role" and for a drawn winner.
type Role uint8

const (
	RoleNone Role = iota
	RoleFirst
	RoleSecond
)

// Opposite returns the other playing role. Opposite of RoleNone is RoleNone.
func (r Role) Opposite() Role {
	switch r {
	case RoleFirst:
		return RoleSecond
	case RoleSecond:
		return RoleFirst
	default:
		return RoleNone
	}
}

func (r Role) String() string {
	switch r {
	case RoleFirst:
		return "FIRST"
	case RoleSecond:
		return "SECOND"
	default:
		return "NONE"
	}
}

// mark returns the board symbol for the role.
func (r Role) mark() string {
	switch r {
	case RoleFirst:
		return "X"
	case RoleSecond:
		return "O"
	default:
		return " "
	}
}

var (
	ErrIllegalMove    = errors.New("illegal move")
	ErrGameTerminated = errors.New("game already terminated")
)

// Game holds the state of one tic-tac-toe match: a 3×3 board addressed as
// squares 1..9 (left to right, top to bottom), the role on the move, and
// the termination outcome.
type Game struct {
	board      [9]Role
	toMove     Role
	moveCount  int
	terminated bool
	winner     Role
}

// New creates a game in the initial state with RoleFirst to move.
func New() *Game {
	return &Game{toMove: RoleFirst}
}

// ToMove returns the role that has the next move.
func (g *Game) ToMove() Role {
	return g.toMove
}

// Over reports whether the game has terminated, by win, draw or
// resignation.
func (g *Game) Over() bool {
	return g.terminated
}

// Winner returns the winning role, or RoleNone if the game is drawn or
// still in progress.
func (g *Game) Winner() Role {
	return g.winner
}

// the eight winning lines, as board indexes
var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

func (g *Game) hasLine(r Role) bool {
	for _, ln := range lines {
		if g.board[ln[0]] == r && g.board[ln[1]] == r && g.board[ln[2]] == r {
			return true
		}
	}
	return false
}

// Apply plays a move. It fails if the game has terminated, the square is
// occupied, or the move's player is not on the move. On success the board
// is updated, the turn passes, and termination is detected: a completed
// line wins, a ninth move without one is a draw.
func (g *Game) Apply(m Move) error {
	if g.terminated {
		return ErrGameTerminated
	}
	if m.Player != g.toMove {
		return ErrIllegalMove
	}
	idx := m.Square - 1
	if g.board[idx] != RoleNone {
		return ErrIllegalMove
	}

	g.board[idx] = m.Player
	g.toMove = g.toMove.Opposite()
	g.moveCount++

	if g.hasLine(m.Player) {
		g.winner = m.Player
		g.terminated = true
	} else if g.moveCount >= 9 {
		g.terminated = true
	}
	return nil
}

// Resign terminates the game in favour of the opponent of role. It is an
// error if the game has already terminated.
func (g *Game) Resign(role Role) error {
	if g.terminated {
		return ErrGameTerminated
	}
	if role != RoleFirst && role != RoleSecond {
		return ErrIllegalMove
	}
	g.terminated = true
	g.winner = role.Opposite()
	return nil
}

// UnparseState renders the board for human users:
//
//	X| |O
//	-----
//	 |X|
//	-----
//	 | |O
//	It's X's turn
//
// each line newline-terminated.
func (g *Game) UnparseState() string {
	var b strings.Builder
	for row := 0; row < 3; row++ {
		if row > 0 {
			b.WriteString("-----\n")
		}
		for col := 0; col < 3; col++ {
			if col > 0 {
				b.WriteString("|")
			}
			b.WriteString(g.board[row*3+col].mark())
		}
		b.WriteString("\n")
	}
	b.WriteString("It's ")
	b.WriteString(g.toMove.mark())
	b.WriteString("'s turn\n")
	return b.String()
}
