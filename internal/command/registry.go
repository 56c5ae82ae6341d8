package command

import (
	"strings"
	"sync"
)

// Registry holds the bot's commands and routes interactions to them.
type Registry struct {
	mu   sync.RWMutex
	cmds map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]Command)}
}

// Register adds a command, applying middlewares outermost-last.
func (r *Registry) Register(cmd Command, mws ...Middleware) {
	for _, mw := range mws {
		cmd = mw(cmd)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds[cmd.Name()] = cmd
}

func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.cmds[name]
	return cmd, ok
}

// ByCustomID finds the command owning a component custom id. Components
// are namespaced by command name, "music_skip" belongs to "music".
func (r *Registry) ByCustomID(customID string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, cmd := range r.cmds {
		if strings.HasPrefix(customID, name+"_") || strings.HasPrefix(customID, name+":") {
			return cmd, true
		}
	}
	return nil, false
}

func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Command, 0, len(r.cmds))
	for _, cmd := range r.cmds {
		list = append(list, cmd)
	}
	return list
}
