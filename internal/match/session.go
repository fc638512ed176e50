package match

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/udisondev/tictac/internal/game"
	"github.com/udisondev/tictac/internal/player"
	"github.com/udisondev/tictac/internal/protocol"
)

var (
	ErrAlreadyLoggedIn    = errors.New("session already logged in")
	ErrNotLoggedIn        = errors.New("session not logged in")
	ErrSelfInvitation     = errors.New("cannot invite yourself")
	ErrUnknownInvitation  = errors.New("unknown invitation id")
	ErrInvitationIDsSpent = errors.New("no free invitation id")
)

// handle is a session's local view of an invitation: the shared object
// plus the small integer ID this session assigned to it.
type handle struct {
	id  uint8
	inv *Invitation
}

// Session представляет одно живое клиентское подключение на сервере.
// Один мьютекс покрывает список приглашений, флаг логина, привязанного
// игрока и сериализацию исходящих фреймов в сокет. Операции никогда не
// держат этот мьютекс при захвате мьютекса другой сессии: все
// cross-session шаги идут через собственные методы пира.
type Session struct {
	conn net.Conn
	addr string

	mu          sync.Mutex
	loggedIn    bool
	player      *player.Player
	invitations []handle
}

func newSession(conn net.Conn) *Session {
	return &Session{
		conn: conn,
		addr: conn.RemoteAddr().String(),
	}
}

// Addr returns the remote address, for logging.
func (s *Session) Addr() string {
	return s.addr
}

// LoggedIn reports whether the session has completed LOGIN.
func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// Player returns the bound player record, or nil before login.
func (s *Session) Player() *player.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

// PlayerName returns the bound player's name, or "" before login.
func (s *Session) PlayerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loggedIn || s.player == nil {
		return ""
	}
	return s.player.Name()
}

// login binds a player to the session. Callers enforce username
// uniqueness; Registry.Login holds the registry lock across the check and
// this call.
func (s *Session) login(p *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggedIn {
		return ErrAlreadyLoggedIn
	}
	s.loggedIn = true
	s.player = p
	return nil
}

// Logout drops the login and cascades over the session's invitations: an
// accepted invitation is resigned through this session, an open one is
// revoked if this session is its source and declined if its target. A
// session that was never logged in gets ErrNotLoggedIn and no cascade.
func (s *Session) Logout() error {
	s.mu.Lock()
	if !s.loggedIn {
		s.mu.Unlock()
		return ErrNotLoggedIn
	}
	// Dropping the flag first stops peers from inserting new invitations
	// mid-cascade.
	s.loggedIn = false
	snapshot := make([]handle, len(s.invitations))
	copy(snapshot, s.invitations)
	s.mu.Unlock()

	for _, h := range snapshot {
		var err error
		switch {
		case h.inv.State() == InvitationAccepted:
			err = s.Resign(h.id)
		case h.inv.Source() == s:
			err = s.Revoke(h.id)
		default:
			err = s.Decline(h.id)
		}
		if err != nil {
			slog.Debug("logout cascade step failed", "remote", s.addr, "invitation", h.id, "err", err)
		}
	}

	s.mu.Lock()
	s.player = nil
	s.mu.Unlock()
	return nil
}

// sendPacket writes one frame to the session's socket under the session
// lock, so concurrent senders cannot interleave bytes.
func (s *Session) sendPacket(hdr protocol.Header, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := protocol.WritePacket(s.conn, hdr, payload); err != nil {
		return fmt.Errorf("sending %s to %s: %w", hdr.Type, s.addr, err)
	}
	return nil
}

// SendAck sends the synchronous positive response to this client.
func (s *Session) SendAck(id uint8, payload []byte) error {
	return s.sendPacket(protocol.Header{Type: protocol.TypeAck, ID: id}, payload)
}

// SendNack sends the synchronous negative response to this client.
func (s *Session) SendNack() error {
	return s.sendPacket(protocol.Header{Type: protocol.TypeNack}, nil)
}

// notify delivers an asynchronous notification. A failed notification is
// logged and otherwise ignored: the state transition that caused it has
// already committed, and a dead peer socket is the peer's service loop's
// problem.
func (s *Session) notify(hdr protocol.Header, payload []byte) {
	if err := s.sendPacket(hdr, payload); err != nil {
		slog.Debug("notification dropped", "err", err)
	}
}

// addInvitation inserts inv into the local list under the smallest
// non-negative ID not currently in use. Fails on a session that is not
// logged in (it may be mid-logout) or whose ID space is exhausted.
func (s *Session) addInvitation(inv *Invitation) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loggedIn {
		return 0, ErrNotLoggedIn
	}

	var used [256]bool
	for _, h := range s.invitations {
		used[h.id] = true
	}
	for id := 0; id < 256; id++ {
		if !used[id] {
			s.invitations = append(s.invitations, handle{id: uint8(id), inv: inv})
			return uint8(id), nil
		}
	}
	return 0, ErrInvitationIDsSpent
}

// removeInvitation drops inv from the local list, freeing its ID.
func (s *Session) removeInvitation(inv *Invitation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, h := range s.invitations {
		if h.inv == inv {
			s.invitations = append(s.invitations[:i], s.invitations[i+1:]...)
			return
		}
	}
}

// invitationByID finds the invitation this session knows under id.
func (s *Session) invitationByID(id uint8) (*Invitation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.invitations {
		if h.id == id {
			return h.inv, true
		}
	}
	return nil, false
}

// idOf reports the local ID this session assigned to inv.
func (s *Session) idOf(inv *Invitation) (uint8, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.invitations {
		if h.inv == inv {
			return h.id, true
		}
	}
	return 0, false
}

// MakeInvitation creates an Open invitation from this session to target,
// inserts it into both local lists (source first; a target failure rolls
// the creation back) and sends INVITED to the target carrying the
// target's local ID, its role, and this player's name. Returns this
// session's local ID for the new invitation.
func (s *Session) MakeInvitation(target *Session, sourceRole, targetRole game.Role) (uint8, error) {
	if target == s {
		return 0, ErrSelfInvitation
	}

	inv := newInvitation(s, target, sourceRole, targetRole)

	sourceID, err := s.addInvitation(inv)
	if err != nil {
		return 0, fmt.Errorf("inserting invitation at source: %w", err)
	}
	targetID, err := target.addInvitation(inv)
	if err != nil {
		s.removeInvitation(inv)
		return 0, fmt.Errorf("inserting invitation at target: %w", err)
	}

	target.notify(protocol.Header{
		Type: protocol.TypeInvited,
		ID:   targetID,
		Role: uint8(targetRole),
	}, []byte(s.PlayerName()))

	return sourceID, nil
}

// Revoke withdraws an Open invitation this session is the source of: the
// invitation closes, leaves both lists, and the target is sent REVOKED
// under the target's local ID.
func (s *Session) Revoke(id uint8) error {
	inv, ok := s.invitationByID(id)
	if !ok {
		return fmt.Errorf("revoke %d: %w", id, ErrUnknownInvitation)
	}
	if err := inv.revoke(s); err != nil {
		return fmt.Errorf("revoke %d: %w", id, err)
	}

	target := inv.Target()
	targetID, known := target.idOf(inv)
	s.removeInvitation(inv)
	target.removeInvitation(inv)

	if known {
		target.notify(protocol.Header{Type: protocol.TypeRevoked, ID: targetID}, nil)
	}
	return nil
}

// Decline refuses an Open invitation this session is the target of; the
// source is sent DECLINED under its own local ID.
func (s *Session) Decline(id uint8) error {
	inv, ok := s.invitationByID(id)
	if !ok {
		return fmt.Errorf("decline %d: %w", id, ErrUnknownInvitation)
	}
	if err := inv.decline(s); err != nil {
		return fmt.Errorf("decline %d: %w", id, err)
	}

	source := inv.Source()
	sourceID, known := source.idOf(inv)
	s.removeInvitation(inv)
	source.removeInvitation(inv)

	if known {
		source.notify(protocol.Header{Type: protocol.TypeDeclined, ID: sourceID}, nil)
	}
	return nil
}

// Accept takes an Open invitation this session is the target of into the
// Accepted state, creating its game. The source is sent ACCEPTED; exactly
// one of the ACCEPTED payload and the returned string carries the initial
// board, depending on who plays first: the party with the first move is
// the one that wants to see the board. The returned string is "" when the
// board went to the source.
func (s *Session) Accept(id uint8) (string, error) {
	inv, ok := s.invitationByID(id)
	if !ok {
		return "", fmt.Errorf("accept %d: %w", id, ErrUnknownInvitation)
	}
	state, err := inv.accept(s)
	if err != nil {
		return "", fmt.Errorf("accept %d: %w", id, err)
	}

	source := inv.Source()
	sourceID, known := source.idOf(inv)

	if inv.RoleOf(source) == game.RoleFirst {
		if known {
			source.notify(protocol.Header{Type: protocol.TypeAccepted, ID: sourceID}, []byte(state))
		}
		return "", nil
	}
	if known {
		source.notify(protocol.Header{Type: protocol.TypeAccepted, ID: sourceID}, nil)
	}
	return state, nil
}

// Resign gives up a game in progress. The invitation closes with the
// opponent as winner; the opponent is sent RESIGNED then ENDED, the
// resigner ENDED, the invitation leaves both lists, and both ratings are
// updated.
func (s *Session) Resign(id uint8) error {
	inv, ok := s.invitationByID(id)
	if !ok {
		return fmt.Errorf("resign %d: %w", id, ErrUnknownInvitation)
	}
	winner, err := inv.resign(s)
	if err != nil {
		return fmt.Errorf("resign %d: %w", id, err)
	}

	opponent := inv.PeerOf(s)
	opponentID, known := opponent.idOf(inv)

	if known {
		opponent.notify(protocol.Header{Type: protocol.TypeResigned, ID: opponentID}, nil)
		opponent.notify(protocol.Header{Type: protocol.TypeEnded, ID: opponentID, Role: uint8(winner)}, nil)
	}
	s.notify(protocol.Header{Type: protocol.TypeEnded, ID: id, Role: uint8(winner)}, nil)

	s.removeInvitation(inv)
	opponent.removeInvitation(inv)

	postResult(inv, winner)
	return nil
}

// MakeMove plays a move in a game in progress. The opponent is sent MOVED
// with the post-move board; if the move ends the game, both parties get
// ENDED (opponent first), the invitation leaves both lists, and ratings
// are updated.
func (s *Session) MakeMove(id uint8, text string) error {
	inv, ok := s.invitationByID(id)
	if !ok {
		return fmt.Errorf("move %d: %w", id, ErrUnknownInvitation)
	}
	state, over, winner, err := inv.move(s, text)
	if err != nil {
		return fmt.Errorf("move %d: %w", id, err)
	}

	opponent := inv.PeerOf(s)
	opponentID, known := opponent.idOf(inv)

	if known {
		opponent.notify(protocol.Header{Type: protocol.TypeMoved, ID: opponentID}, []byte(state))
	}

	if over {
		if known {
			opponent.notify(protocol.Header{Type: protocol.TypeEnded, ID: opponentID, Role: uint8(winner)}, nil)
		}
		s.notify(protocol.Header{Type: protocol.TypeEnded, ID: id, Role: uint8(winner)}, nil)

		s.removeInvitation(inv)
		opponent.removeInvitation(inv)

		postResult(inv, winner)
	}
	return nil
}

// postResult feeds a finished game into the rating function, normalised
// to (first-role player, second-role player, outcome).
func postResult(inv *Invitation, winner game.Role) {
	first := inv.playerByRole(game.RoleFirst).Player()
	second := inv.playerByRole(game.RoleSecond).Player()
	if first == nil || second == nil {
		// participant logged out mid-teardown; nothing to rate against
		slog.Debug("skipping rating update: participant unbound")
		return
	}

	var outcome player.Outcome
	switch winner {
	case game.RoleFirst:
		outcome = player.OutcomeFirstWins
	case game.RoleSecond:
		outcome = player.OutcomeSecondWins
	default:
		outcome = player.OutcomeDraw
	}
	player.PostResult(first, second, outcome)
	slog.Debug("ratings updated",
		"first", first.Name(), "first_rating", first.Rating(),
		"second", second.Name(), "second_rating", second.Rating(),
		"winner", winner)
}

// closeRead half-closes the read side of the socket. The service loop
// then sees end-of-stream and tears the session down; pending writes are
// not affected.
func (s *Session) closeRead() {
	if tc, ok := s.conn.(*net.TCPConn); ok {
		if err := tc.CloseRead(); err != nil {
			slog.Debug("close read failed", "remote", s.addr, "err", err)
		}
		return
	}
	// non-TCP conns (tests) have no half-close
	if err := s.conn.Close(); err != nil {
		slog.Debug("close failed", "remote", s.addr, "err", err)
	}
}
