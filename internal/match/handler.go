package match

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/udisondev/tictac/internal/game"
	"github.com/udisondev/tictac/internal/player"
	"github.com/udisondev/tictac/internal/protocol"
)

// Handler runs the per-connection service loops and dispatches client
// requests against the two registries.
type Handler struct {
	clients *Registry
	players *player.Registry
}

// NewHandler создаёт обработчик клиентских подключений.
func NewHandler(clients *Registry, players *player.Registry) *Handler {
	return &Handler{clients: clients, players: players}
}

// ServeConn обслуживает одно клиентское подключение до конца потока:
// регистрирует сессию, читает фреймы, диспатчит их и по выходу из цикла
// выполняет logout-каскад и снимает сессию с учёта. Переполненный реестр
// закрывает свежий сокет без единого фрейма.
func (h *Handler) ServeConn(conn net.Conn) {
	sess, err := h.clients.Register(conn)
	if err != nil {
		slog.Warn("rejecting connection", "remote", conn.RemoteAddr(), "err", err)
		conn.Close()
		return
	}
	defer conn.Close()
	slog.Info("client connected", "remote", sess.Addr())

	for {
		hdr, payload, err := protocol.ReadPacket(conn)
		if err != nil {
			if err != io.EOF {
				slog.Debug("receive failed", "remote", sess.Addr(), "err", err)
			}
			break
		}
		h.dispatch(sess, hdr, payload)
	}

	if err := sess.Logout(); err != nil && !errors.Is(err, ErrNotLoggedIn) {
		slog.Debug("logout failed", "remote", sess.Addr(), "err", err)
	}
	if err := h.clients.Unregister(sess); err != nil {
		slog.Debug("unregister failed", "remote", sess.Addr(), "err", err)
	}
	slog.Info("client disconnected", "remote", sess.Addr())
}

// dispatch handles one request frame. Every path sends exactly one ACK or
// NACK back to the requester before the loop reads the next frame; until
// the session is logged in only LOGIN is honoured.
func (h *Handler) dispatch(s *Session, hdr protocol.Header, payload []byte) {
	slog.Debug("request", "remote", s.Addr(), "type", hdr.Type, "id", hdr.ID, "role", hdr.Role, "size", hdr.Size)

	if !s.LoggedIn() && hdr.Type != protocol.TypeLogin {
		h.nack(s, fmt.Errorf("%s before login", hdr.Type))
		return
	}

	switch hdr.Type {
	case protocol.TypeLogin:
		h.handleLogin(s, payload)
	case protocol.TypeUsers:
		h.handleUsers(s)
	case protocol.TypeInvite:
		h.handleInvite(s, hdr.Role, payload)
	case protocol.TypeRevoke:
		h.reply(s, hdr.ID, nil, s.Revoke(hdr.ID))
	case protocol.TypeAccept:
		h.handleAccept(s, hdr.ID)
	case protocol.TypeDecline:
		h.reply(s, hdr.ID, nil, s.Decline(hdr.ID))
	case protocol.TypeMove:
		h.reply(s, hdr.ID, nil, s.MakeMove(hdr.ID, string(payload)))
	case protocol.TypeResign:
		h.reply(s, hdr.ID, nil, s.Resign(hdr.ID))
	default:
		h.nack(s, fmt.Errorf("unexpected %s request", hdr.Type))
	}
}

// reply converts an operation result into the synchronous response.
func (h *Handler) reply(s *Session, id uint8, payload []byte, err error) {
	if err != nil {
		h.nack(s, err)
		return
	}
	if err := s.SendAck(id, payload); err != nil {
		slog.Debug("ack failed", "remote", s.Addr(), "err", err)
	}
}

// nack logs the refused request's reason and answers NACK. Reasons are
// never surfaced to peers.
func (h *Handler) nack(s *Session, reason error) {
	slog.Debug("request refused", "remote", s.Addr(), "reason", reason)
	if err := s.SendNack(); err != nil {
		slog.Debug("nack failed", "remote", s.Addr(), "err", err)
	}
}

func (h *Handler) handleLogin(s *Session, payload []byte) {
	if s.LoggedIn() {
		h.nack(s, ErrAlreadyLoggedIn)
		return
	}
	name := string(payload)
	if name == "" {
		h.nack(s, errors.New("empty username"))
		return
	}

	p := h.players.GetOrCreate(name)
	if err := h.clients.Login(s, p); err != nil {
		h.nack(s, err)
		return
	}
	slog.Info("player logged in", "remote", s.Addr(), "player", name, "rating", p.Rating())
	h.reply(s, 0, nil, nil)
}

// handleUsers answers with one line per logged-in player:
// "<username>\t<rating>\n", ratings truncated to integers, in registry
// snapshot order.
func (h *Handler) handleUsers(s *Session) {
	var b strings.Builder
	for _, p := range h.clients.AllPlayers() {
		fmt.Fprintf(&b, "%s\t%d\n", p.Name(), int(p.Rating()))
	}
	h.reply(s, 0, []byte(b.String()), nil)
}

// handleInvite interprets the header role as the role the target is to
// play and creates the invitation. The ACK carries the source's local ID.
func (h *Handler) handleInvite(s *Session, roleByte uint8, payload []byte) {
	var sourceRole, targetRole game.Role
	switch game.Role(roleByte) {
	case game.RoleFirst:
		targetRole, sourceRole = game.RoleFirst, game.RoleSecond
	case game.RoleSecond:
		targetRole, sourceRole = game.RoleSecond, game.RoleFirst
	default:
		h.nack(s, fmt.Errorf("invalid invite role %d", roleByte))
		return
	}

	name := string(payload)
	target := h.clients.Lookup(name)
	if target == nil {
		h.nack(s, fmt.Errorf("invite: no logged-in player %q", name))
		return
	}

	id, err := s.MakeInvitation(target, sourceRole, targetRole)
	if err != nil {
		h.nack(s, err)
		return
	}
	h.reply(s, id, nil, nil)
}

// handleAccept accepts the invitation; when the accepter has the first
// move, the ACK payload carries the initial board (otherwise the board
// went to the source inside ACCEPTED).
func (h *Handler) handleAccept(s *Session, id uint8) {
	state, err := s.Accept(id)
	if err != nil {
		h.nack(s, err)
		return
	}
	var payload []byte
	if state != "" {
		payload = []byte(state)
	}
	h.reply(s, id, payload, nil)
}
