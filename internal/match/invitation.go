// Package match implements the session and coordination layer of the
// server: per-connection client sessions, the shared invitation objects
// linking pairs of sessions, the live-session registry with its shutdown
// barrier, and the per-connection service loop.
package match

import (
	"errors"
	"fmt"
	"sync"

	"github.com/udisondev/tictac/internal/game"
)

// InvitationState is the lifecycle state of an invitation. Transitions are
// monotonic: Open→Accepted, Open→Closed, Accepted→Closed.
type InvitationState int32

const (
	InvitationOpen InvitationState = iota
	InvitationAccepted
	InvitationClosed
)

func (s InvitationState) String() string {
	switch s {
	case InvitationOpen:
		return "OPEN"
	case InvitationAccepted:
		return "ACCEPTED"
	case InvitationClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(s))
	}
}

var (
	ErrInvitationState = errors.New("invitation in wrong state")
	ErrNotParticipant  = errors.New("session is not a participant of the invitation")
	ErrNotSource       = errors.New("session is not the invitation's source")
	ErrNotTarget       = errors.New("session is not the invitation's target")
)

// Invitation is the shared offer-to-play between two sessions. It appears
// in the local list of both its source and its target for the whole
// Open ∪ Accepted span and carries the Game once accepted. All state
// checks and transitions happen atomically under the invitation's own
// lock; packet sends never do.
type Invitation struct {
	source     *Session
	target     *Session
	sourceRole game.Role
	targetRole game.Role

	mu    sync.Mutex
	state InvitationState
	game  *game.Game
}

// newInvitation creates an Open invitation. Exactly one of the two roles
// must be RoleFirst and the other RoleSecond; the caller validates that.
func newInvitation(source, target *Session, sourceRole, targetRole game.Role) *Invitation {
	return &Invitation{
		source:     source,
		target:     target,
		sourceRole: sourceRole,
		targetRole: targetRole,
		state:      InvitationOpen,
	}
}

func (inv *Invitation) Source() *Session { return inv.source }
func (inv *Invitation) Target() *Session { return inv.target }

// RoleOf returns the game role s plays in this invitation, or RoleNone if
// s is not a participant.
func (inv *Invitation) RoleOf(s *Session) game.Role {
	switch s {
	case inv.source:
		return inv.sourceRole
	case inv.target:
		return inv.targetRole
	default:
		return game.RoleNone
	}
}

// PeerOf returns the other participant, or nil if s is not a participant.
func (inv *Invitation) PeerOf(s *Session) *Session {
	switch s {
	case inv.source:
		return inv.target
	case inv.target:
		return inv.source
	default:
		return nil
	}
}

// State returns the current lifecycle state.
func (inv *Invitation) State() InvitationState {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

// playerByRole returns the participant playing role. Role must be First
// or Second.
func (inv *Invitation) playerByRole(role game.Role) *Session {
	if inv.sourceRole == role {
		return inv.source
	}
	return inv.target
}

// revoke transitions Open→Closed on behalf of the source.
func (inv *Invitation) revoke(s *Session) error {
	if s != inv.source {
		return ErrNotSource
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state != InvitationOpen {
		return fmt.Errorf("revoking %s invitation: %w", inv.state, ErrInvitationState)
	}
	inv.state = InvitationClosed
	return nil
}

// decline transitions Open→Closed on behalf of the target.
func (inv *Invitation) decline(s *Session) error {
	if s != inv.target {
		return ErrNotTarget
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state != InvitationOpen {
		return fmt.Errorf("declining %s invitation: %w", inv.state, ErrInvitationState)
	}
	inv.state = InvitationClosed
	return nil
}

// accept transitions Open→Accepted on behalf of the target and allocates
// the Game. This is the only path that creates a Game. Returns the
// rendering of the initial state.
func (inv *Invitation) accept(s *Session) (string, error) {
	if s != inv.target {
		return "", ErrNotTarget
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state != InvitationOpen {
		return "", fmt.Errorf("accepting %s invitation: %w", inv.state, ErrInvitationState)
	}
	inv.state = InvitationAccepted
	inv.game = game.New()
	return inv.game.UnparseState(), nil
}

// resign transitions Accepted→Closed, resigning the game for the role s
// plays. Returns the winning role (the opponent's).
func (inv *Invitation) resign(s *Session) (game.Role, error) {
	role := inv.RoleOf(s)
	if role == game.RoleNone {
		return game.RoleNone, ErrNotParticipant
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state != InvitationAccepted {
		return game.RoleNone, fmt.Errorf("resigning %s invitation: %w", inv.state, ErrInvitationState)
	}
	if err := inv.game.Resign(role); err != nil {
		return game.RoleNone, fmt.Errorf("resigning game: %w", err)
	}
	inv.state = InvitationClosed
	return inv.game.Winner(), nil
}

// move parses and applies a move for the role s plays. On game
// termination the invitation transitions Accepted→Closed. Returns the
// post-move board rendering and, when over, the winning role (RoleNone
// for a draw).
func (inv *Invitation) move(s *Session, text string) (state string, over bool, winner game.Role, err error) {
	role := inv.RoleOf(s)
	if role == game.RoleNone {
		return "", false, game.RoleNone, ErrNotParticipant
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state != InvitationAccepted {
		return "", false, game.RoleNone, fmt.Errorf("moving in %s invitation: %w", inv.state, ErrInvitationState)
	}

	m, err := inv.game.ParseMove(role, text)
	if err != nil {
		return "", false, game.RoleNone, err
	}
	if err := inv.game.Apply(m); err != nil {
		return "", false, game.RoleNone, err
	}

	state = inv.game.UnparseState()
	if inv.game.Over() {
		inv.state = InvitationClosed
		return state, true, inv.game.Winner(), nil
	}
	return state, false, game.RoleNone, nil
}
