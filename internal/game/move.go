package game

import (
	"errors"
	"fmt"
)

// Move is an immutable, validated move: which role plays which square.
type Move struct {
	Player Role
	Square int // 1..9
}

var ErrBadMove = errors.New("unparseable move")

// ParseMove interprets text as a move in g by the player in role. Two
// forms are accepted: a bare square digit ("5") and a square with an
// explicit mark ("5<-X", "5<-O"). If role is not RoleNone it must agree
// with the role currently on the move; an explicit mark fixes the player
// regardless of role.
func (g *Game) ParseMove(role Role, text string) (Move, error) {
	if role != RoleNone && role != g.toMove {
		return Move{}, fmt.Errorf("parsing move %q: not %s's turn: %w", text, role, ErrBadMove)
	}

	var player Role
	switch len(text) {
	case 1:
		if role == RoleFirst {
			player = RoleFirst
		} else {
			player = RoleSecond
		}
	case 4:
		if text[1] != '<' || text[2] != '-' {
			return Move{}, fmt.Errorf("parsing move %q: %w", text, ErrBadMove)
		}
		switch text[3] {
		case 'X':
			player = RoleFirst
		case 'O':
			player = RoleSecond
		default:
			return Move{}, fmt.Errorf("parsing move %q: %w", text, ErrBadMove)
		}
	default:
		return Move{}, fmt.Errorf("parsing move %q: %w", text, ErrBadMove)
	}

	if text[0] < '1' || text[0] > '9' {
		return Move{}, fmt.Errorf("parsing move %q: %w", text, ErrBadMove)
	}

	return Move{Player: player, Square: int(text[0] - '0')}, nil
}

// UnparseMove renders a move in the form ParseMove can recover, e.g.
// "5<-X".
func UnparseMove(m Move) string {
	return fmt.Sprintf("%d<-%s", m.Square, m.Player.mark())
}
