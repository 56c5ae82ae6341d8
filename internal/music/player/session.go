package player

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"groovedeck/internal/music/resolver"
	"groovedeck/pkg/jobmgr"
)

// Defaults applied when the corresponding Deps field is zero.
const (
	defaultIdleTimeout     = 180 * time.Second
	defaultConnectTimeout  = 60 * time.Second
	defaultRefreshInterval = 5 * time.Second
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Resolver Resolver
	Voice    VoiceConnector
	Gateway  PanelGateway
	Jobs     *jobmgr.Manager

	// Cookies is the Netscape-format credential payload used to retry
	// access-restricted tracks. Empty disables the retry.
	Cookies string

	IdleTimeout     time.Duration
	ConnectTimeout  time.Duration
	RefreshInterval time.Duration

	// Now overrides the time source. Nil means time.Now.
	Now func() time.Time
}

// Session is the playback state machine for one guild. All exported
// methods are safe for concurrent use; blocking work (resolution, voice
// connect, streaming) always happens off the caller's goroutine.
type Session struct {
	guildID  string
	deps     Deps
	onRemove func(*Session)

	mu      sync.Mutex
	state   State
	queue   []Request
	history []string // page URLs, most recent last
	loop    LoopMode

	current *Request
	info    *resolver.TrackInfo
	clock   *Clock

	// generation increments on every track start and every teardown.
	// Completion callbacks carry the generation they were armed with and
	// are dropped when it no longer matches, so a natural end racing a
	// forced stop advances the queue exactly once.
	generation uint64

	voice          VoiceHandle
	voiceChannelID string
	textChannelID  string

	panelChannelID string
	panelMessageID string

	stopped bool
}

func newSession(guildID string, deps Deps, onRemove func(*Session)) *Session {
	if deps.IdleTimeout <= 0 {
		deps.IdleTimeout = defaultIdleTimeout
	}
	if deps.ConnectTimeout <= 0 {
		deps.ConnectTimeout = defaultConnectTimeout
	}
	if deps.RefreshInterval <= 0 {
		deps.RefreshInterval = defaultRefreshInterval
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Jobs == nil {
		deps.Jobs = jobmgr.NewManager()
	}
	return &Session{guildID: guildID, deps: deps, onRemove: onRemove}
}

// GuildID returns the guild this session belongs to.
func (s *Session) GuildID() string { return s.guildID }

// Enqueue adds a request. When the session is idle it starts loading
// immediately; otherwise the request waits behind the current track.
func (s *Session) Enqueue(req Request) EnqueueResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.textChannelID = req.TextChannelID

	if s.state == StateIdle && s.current == nil {
		s.beginLoading(req)
		return EnqueueStarted
	}
	req.Notify = nil // queued requests report failures to the channel
	s.queue = append(s.queue, req)
	return EnqueueQueued
}

// Skip force-stops the current track; the completion callback then pulls
// the next one following the active loop mode.
func (s *Session) Skip() error {
	s.mu.Lock()
	if s.state == StateLoading {
		s.mu.Unlock()
		return ErrStillLoading
	}
	if s.current == nil || (s.state != StatePlaying && s.state != StatePaused) {
		s.mu.Unlock()
		return ErrNothingPlaying
	}
	h := s.voice
	s.mu.Unlock()

	if h != nil {
		h.Stop()
	}
	return nil
}

// Previous replays the most recently finished track. The current track,
// if any, goes back to the queue head so skipping the replay returns to
// it. Needs at least two history entries: the last one is the track
// playing right now.
func (s *Session) Previous() error {
	s.mu.Lock()

	// A loading track is not in history yet and must not be re-queued,
	// so going back has to wait until it either plays or fails.
	if s.state == StateLoading {
		s.mu.Unlock()
		return ErrStillLoading
	}
	if len(s.history) < 2 {
		s.mu.Unlock()
		return ErrNoHistory
	}

	if s.current != nil {
		s.queue = append([]Request{*s.current}, s.queue...)
	}

	// Pop the current track's entry and the one before it; the prior
	// entry is re-queued and both get re-recorded as they play again.
	s.history = s.history[:len(s.history)-1]
	prior := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]

	replay := Request{
		Query:          prior,
		VoiceChannelID: s.voiceChannelID,
		TextChannelID:  s.textChannelID,
	}
	if s.current != nil {
		replay.RequesterID = s.current.RequesterID
	}
	s.queue = append([]Request{replay}, s.queue...)

	playing := s.current != nil && (s.state == StatePlaying || s.state == StatePaused)
	h := s.voice

	if playing {
		s.mu.Unlock()
		if h != nil {
			h.Stop()
		}
		return nil
	}

	// Nothing streaming but history existed. Start the replay directly.
	if s.state == StateIdle && len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.beginLoading(next)
	}
	s.mu.Unlock()
	return nil
}

// TogglePause flips between playing and paused and returns the new state.
// On an idle session with a non-empty queue it recovers by starting the
// next track.
func (s *Session) TogglePause() (State, error) {
	s.mu.Lock()

	switch s.state {
	case StatePlaying:
		s.state = StatePaused
		s.clock.Pause()
		h := s.voice
		s.mu.Unlock()
		if h != nil {
			h.Pause()
		}
		return StatePaused, nil

	case StatePaused:
		s.state = StatePlaying
		s.clock.Resume()
		h := s.voice
		s.mu.Unlock()
		if h != nil {
			h.Resume()
		}
		return StatePlaying, nil

	case StateLoading:
		s.mu.Unlock()
		return StateLoading, ErrStillLoading

	default:
		if len(s.queue) > 0 {
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.beginLoading(next)
			s.mu.Unlock()
			return StateLoading, nil
		}
		st := s.state
		s.mu.Unlock()
		return st, ErrNothingPlaying
	}
}

// CycleLoop advances the loop mode and returns the new one.
func (s *Session) CycleLoop() LoopMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop = s.loop.Next()
	return s.loop
}

// Stop tears the session down: queue cleared, stream stopped, voice
// disconnected, panel deleted, session removed from its registry.
// Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.generation++ // orphan any in-flight completion or loader
	s.state = StateIdle
	s.queue = nil
	s.current = nil
	s.info = nil
	s.clock = nil
	h := s.voice
	s.voice = nil
	panelCh, panelID := s.panelChannelID, s.panelMessageID
	s.panelMessageID = ""
	s.mu.Unlock()

	_ = s.deps.Jobs.Stop(s.panelJobName())
	_ = s.deps.Jobs.Stop(s.idleJobName())

	if h != nil {
		h.Stop()
		h.Disconnect()
	}
	if panelID != "" {
		if err := s.deps.Gateway.DeletePanel(panelCh, panelID); err != nil {
			log.Debug().Str("guild", s.guildID).Err(err).Msg("panel delete on stop failed")
		}
	}
	if s.onRemove != nil {
		s.onRemove(s)
	}
}

func (s *Session) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Snapshot is a read-only view of session state for commands and tests.
type Snapshot struct {
	State        State
	Loop         LoopMode
	CurrentTitle string
	CurrentURL   string
	Elapsed      time.Duration
	Duration     time.Duration
	Queue        []Request
	HistorySize  int
}

// Status returns a point-in-time snapshot.
func (s *Session) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:       s.state,
		Loop:        s.loop,
		Queue:       append([]Request(nil), s.queue...),
		HistorySize: len(s.history),
	}
	if s.info != nil {
		snap.CurrentTitle = s.info.Title
		snap.CurrentURL = s.info.PageURL
		snap.Duration = s.info.Duration
	}
	if s.clock != nil {
		snap.Elapsed = s.clock.Elapsed(s.deps.Now())
	}
	return snap
}

// beginLoading arms a new generation and hands off to the loader
// goroutine. Caller holds s.mu.
func (s *Session) beginLoading(req Request) {
	s.state = StateLoading
	s.current = &req
	s.info = nil
	s.generation++
	gen := s.generation

	_ = s.deps.Jobs.Stop(s.idleJobName())

	go s.startTrack(gen, req)
}

// appendHistoryLocked records a played ref, collapsing immediate repeats
// so a track looping on itself occupies one slot.
func (s *Session) appendHistoryLocked(ref string) {
	if ref == "" {
		return
	}
	if n := len(s.history); n > 0 && s.history[n-1] == ref {
		return
	}
	s.history = append(s.history, ref)
}

func (s *Session) panelJobName() string { return "panel:" + s.guildID }
func (s *Session) idleJobName() string  { return "idle:" + s.guildID }
