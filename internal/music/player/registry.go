package player

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry owns one session per guild. Sessions remove themselves when
// they stop, so lookups after a teardown create a fresh one.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions share the given deps.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the guild's session, creating one if needed. A
// session caught mid-teardown (stopped but not yet removed) is replaced
// rather than handed out, since it would silently drop any request.
func (r *Registry) GetOrCreate(guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok && !s.isStopped() {
		return s
	}
	s := newSession(guildID, r.deps, r.remove)
	r.sessions[guildID] = s
	log.Debug().Str("guild", guildID).Msg("session created")
	return s
}

// Get returns the guild's session if one exists.
func (r *Registry) Get(guildID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	return s, ok
}

// Remove stops and removes the guild's session if one exists.
func (r *Registry) Remove(guildID string) {
	if s, ok := r.Get(guildID); ok {
		s.Stop()
	}
}

// remove drops a stopping session from the map. Identity-checked so a
// session replaced during its own teardown cannot evict its successor.
func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.guildID]; ok && cur == s {
		delete(r.sessions, s.guildID)
		log.Debug().Str("guild", s.guildID).Msg("session removed")
	}
}

// Shutdown stops every live session. Used on process exit so voice
// connections close and panels are cleaned up.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}
