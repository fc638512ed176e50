package player

import "sync"

// Registry is the process-wide username → Player mapping. A player record
// is created on first login under a name and never removed, so a user who
// reconnects keeps the rating earned earlier in the process lifetime.
type Registry struct {
	mu      sync.Mutex
	players map[string]*Player
}

// NewRegistry создаёт пустой реестр игроков.
func NewRegistry() *Registry {
	return &Registry{players: make(map[string]*Player)}
}

// GetOrCreate returns the player registered under name, creating the
// record on first use.
func (r *Registry) GetOrCreate(name string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[name]; ok {
		return p
	}
	p := New(name)
	r.players[name] = p
	return p
}

// Count возвращает количество зарегистрированных игроков.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}
