package match

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/udisondev/tictac/internal/player"
)

var (
	ErrRegistryFull  = errors.New("client registry full")
	ErrNameInUse     = errors.New("username already logged in")
	ErrNotRegistered = errors.New("session not registered")
)

// Registry is the set of live client sessions. It enforces the hard cap
// on concurrent connections, makes logged-in peers discoverable by
// username, guards login uniqueness, and carries the empty barrier the
// shutdown coordinator blocks on.
type Registry struct {
	mu       sync.Mutex
	empty    *sync.Cond
	sessions []*Session
	capacity int
}

// NewRegistry creates a registry admitting at most capacity sessions.
func NewRegistry(capacity int) *Registry {
	r := &Registry{capacity: capacity}
	r.empty = sync.NewCond(&r.mu)
	return r
}

// Register wraps conn in a new session and admits it. Fails without
// side effects when the registry is at capacity.
func (r *Registry) Register(conn net.Conn) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) >= r.capacity {
		return nil, fmt.Errorf("registering %s: %w", conn.RemoteAddr(), ErrRegistryFull)
	}
	s := newSession(conn)
	r.sessions = append(r.sessions, s)
	return s, nil
}

// Unregister removes the session from the set. When the removal leaves
// the set empty, waiters on WaitForEmpty are released.
func (r *Registry) Unregister(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.sessions {
		if cur == s {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			if len(r.sessions) == 0 {
				r.empty.Broadcast()
			}
			return nil
		}
	}
	return ErrNotRegistered
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Login binds p to s, enforcing that no other registered session is
// logged in under the same name. The check and the bind happen under the
// registry lock, so two racing logins for one name cannot both succeed.
func (r *Registry) Login(s *Session, p *player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.sessions {
		if cur != s && cur.PlayerName() == p.Name() {
			return fmt.Errorf("login %q: %w", p.Name(), ErrNameInUse)
		}
	}
	return s.login(p)
}

// Lookup returns the registered session logged in under name, or nil.
func (r *Registry) Lookup(name string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.sessions {
		if cur.LoggedIn() && cur.PlayerName() == name {
			return cur
		}
	}
	return nil
}

// AllPlayers snapshots the players bound by currently-registered,
// logged-in sessions, in registration order.
func (r *Registry) AllPlayers() []*player.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	players := make([]*player.Player, 0, len(r.sessions))
	for _, cur := range r.sessions {
		if p := cur.Player(); p != nil {
			players = append(players, p)
		}
	}
	return players
}

// WaitForEmpty blocks until the registered count reaches zero. Safe to
// call from several goroutines; returns immediately when the registry is
// already empty.
func (r *Registry) WaitForEmpty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.sessions) > 0 {
		r.empty.Wait()
	}
}

// ShutdownAll half-closes the read side of every registered session's
// socket. Each service loop then runs into end-of-stream, performs its
// logout cascade and unregisters; no goroutine is killed.
func (r *Registry) ShutdownAll() {
	r.mu.Lock()
	snapshot := make([]*Session, len(r.sessions))
	copy(snapshot, r.sessions)
	r.mu.Unlock()

	slog.Info("shutting down client sessions", "count", len(snapshot))
	for _, s := range snapshot {
		s.closeRead()
	}
}
