// Package jobmgr runs named, cancellable background jobs and tracks them
// in memory. The player uses it for per-guild tasks that must be replaced
// or cancelled by name: the panel refresh loop ("panel:<guild>") and the
// inactivity teardown timer ("idle:<guild>").
//
// Typical usage:
//
//	jm := jobmgr.NewManager()
//	jm.StartAsync("panel:123", func(ctx context.Context) error {
//	    // do work until ctx is cancelled
//	    return nil
//	})
//
//	// later...
//	_ = jm.Stop("panel:123")
//
// The package is intentionally minimal: no retry logic, no worker pools,
// no persistence. Jobs run in their own goroutines and are removed
// automatically on completion.
package jobmgr

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Job is a running unit of work. Jobs are added and removed by Manager.
type Job struct {
	Name   string
	Cancel context.CancelFunc
}

// Manager starts, stops and tracks jobs. Safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{jobs: make(map[string]*Job)}
}

// StartAsync runs a job in a separate goroutine and returns immediately.
// If a job with the same name is already running it is cancelled and
// replaced. Jobs remove themselves on completion, success or failure.
func (m *Manager) StartAsync(name string, runner func(ctx context.Context) error) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{Name: name, Cancel: cancel}

	m.mu.Lock()
	if old, exists := m.jobs[name]; exists {
		old.Cancel()
	}
	m.jobs[name] = job
	m.mu.Unlock()

	go func() {
		if err := runner(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Str("component", "jobmgr").Str("job", name).Err(err).Msg("job finished with error")
		}

		m.mu.Lock()
		if m.jobs[name] == job {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()
}

// Stop cancels a running job by name. Returns an error if it is not running.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}

	job.Cancel()
	delete(m.jobs, name)
	return nil
}

// StopAll cancels every running job.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, job := range m.jobs {
		job.Cancel()
		delete(m.jobs, name)
	}
}

// Running reports whether a job with the given name is currently tracked.
func (m *Manager) Running(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[name]
	return ok
}
