package player

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"groovedeck/internal/music/resolver"
)

// resolveSem bounds concurrent resolutions across all guilds so a burst
// of play commands cannot fork an unbounded number of yt-dlp processes.
var resolveSem = make(chan struct{}, 4)

const resolveTimeout = 90 * time.Second

// startTrack is the loader goroutine: resolve, connect, stream. Every
// state mutation re-checks the generation so a Stop or Skip issued while
// loading orphans this attempt cleanly.
func (s *Session) startTrack(gen uint64, req Request) {
	info, err := s.resolveWithCredentials(req.Query)
	if err != nil {
		s.failLoading(gen, err)
		return
	}

	handle, err := s.ensureVoice(gen, req)
	if err != nil {
		s.failLoading(gen, err)
		return
	}

	onComplete := func(playErr error) {
		go s.advance(gen, playErr)
	}
	if err := handle.Play(info.StreamURL, onComplete); err != nil {
		s.failLoading(gen, fmt.Errorf("starting stream: %w", err))
		return
	}

	s.mu.Lock()
	if s.stopped || gen != s.generation {
		s.mu.Unlock()
		handle.Stop()
		return
	}
	s.state = StatePlaying
	s.info = info
	if s.current != nil {
		// From here on the track is referenced by its canonical page URL,
		// so loop reinsertion and history replay resolve the same item
		// the search query did.
		s.current.Query = info.PageURL
	}
	s.clock = NewClock(s.deps.Now)
	s.clock.Start()
	s.appendHistoryLocked(info.PageURL)
	s.mu.Unlock()

	log.Info().
		Str("guild", s.guildID).
		Str("title", info.Title).
		Dur("duration", info.Duration).
		Msg("track started")

	s.showPanel(gen)
	s.startRefresher(gen)
}

// resolveWithCredentials resolves anonymously first and retries once with
// the configured cookie payload when the track is access-restricted.
func (s *Session) resolveWithCredentials(query string) (*resolver.TrackInfo, error) {
	resolveSem <- struct{}{}
	defer func() { <-resolveSem }()

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	info, err := s.deps.Resolver.Resolve(ctx, query, "")
	if err == nil {
		return info, nil
	}
	if !resolver.IsAccessRestricted(err) || s.deps.Cookies == "" {
		return nil, err
	}

	log.Info().Str("guild", s.guildID).Str("query", query).
		Msg("track restricted, retrying with credentials")
	return s.deps.Resolver.Resolve(ctx, query, s.deps.Cookies)
}

// ensureVoice reuses the session's live connection or joins the
// requester's channel.
func (s *Session) ensureVoice(gen uint64, req Request) (VoiceHandle, error) {
	s.mu.Lock()
	h := s.voice
	s.mu.Unlock()
	if h != nil {
		return h, nil
	}

	if req.VoiceChannelID == "" {
		return nil, ErrNotInVoiceChannel
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.deps.ConnectTimeout)
	defer cancel()

	h, err := s.deps.Voice.Join(ctx, s.guildID, req.VoiceChannelID)
	if err != nil {
		return nil, fmt.Errorf("connecting to voice: %w", err)
	}

	s.mu.Lock()
	if s.stopped || gen != s.generation {
		s.mu.Unlock()
		h.Disconnect()
		return nil, fmt.Errorf("session torn down while connecting")
	}
	s.voice = h
	s.voiceChannelID = req.VoiceChannelID
	s.mu.Unlock()
	return h, nil
}

// failLoading reports a load error and moves on to the next queued track.
// The error goes back through the requester's interaction when one is
// live, otherwise to the session's text channel. The failed track is
// never loop-reinserted.
func (s *Session) failLoading(gen uint64, err error) {
	s.mu.Lock()
	if s.stopped || gen != s.generation {
		s.mu.Unlock()
		return
	}
	title := ""
	var notify func(string)
	if s.current != nil {
		title = s.current.Query
		notify = s.current.Notify
	}
	channelID := s.textChannelID
	s.mu.Unlock()

	log.Warn().Str("guild", s.guildID).Str("query", title).Err(err).Msg("track failed to load")
	msg := "❌ " + describeLoadError(err)
	if notify != nil {
		notify(msg)
	} else {
		s.deps.Gateway.Announce(channelID, msg)
	}

	go s.advance(gen, nil)
}

// advance consumes one end-of-track signal: loop reinsertion, then either
// the next queued track or idle with the teardown timer armed. Signals
// carrying a stale generation are dropped, so a natural completion racing
// a forced stop mutates the session exactly once.
func (s *Session) advance(gen uint64, playErr error) {
	s.mu.Lock()
	if s.stopped || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.generation++

	if playErr != nil {
		log.Warn().Str("guild", s.guildID).Err(playErr).Msg("stream ended with error")
	}

	wasStreaming := s.state == StatePlaying || s.state == StatePaused
	s.state = StateAdvancing

	if wasStreaming && s.current != nil {
		switch s.loop {
		case LoopTrack:
			s.queue = append([]Request{*s.current}, s.queue...)
		case LoopQueue:
			s.queue = append(s.queue, *s.current)
		}
	}
	s.current = nil
	s.info = nil
	s.clock = nil

	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.beginLoading(next)
		s.mu.Unlock()
		return
	}

	s.state = StateIdle
	panelCh, panelID := s.panelChannelID, s.panelMessageID
	s.panelMessageID = ""
	s.mu.Unlock()

	_ = s.deps.Jobs.Stop(s.panelJobName())
	if panelID != "" {
		if err := s.deps.Gateway.CompletePanel(panelCh, panelID); err != nil {
			log.Debug().Str("guild", s.guildID).Err(err).Msg("panel completion edit failed")
		}
	}
	s.scheduleIdleTeardown()
}

// VoiceLost handles an unexpected voice disconnect (kick, region move,
// gateway drop). One reconnection attempt; on failure the session tears
// down.
func (s *Session) VoiceLost() {
	s.mu.Lock()
	if s.stopped || s.voice == nil {
		s.mu.Unlock()
		return
	}
	s.voice = nil
	streaming := s.state == StatePlaying || s.state == StatePaused
	channelID := s.voiceChannelID
	textCh := s.textChannelID
	gen := s.generation
	info := s.info
	s.mu.Unlock()

	if !streaming || info == nil {
		s.Stop()
		return
	}

	log.Warn().Str("guild", s.guildID).Msg("voice connection lost, reconnecting")

	ctx, cancel := context.WithTimeout(context.Background(), s.deps.ConnectTimeout)
	defer cancel()
	h, err := s.deps.Voice.Join(ctx, s.guildID, channelID)
	if err != nil {
		s.deps.Gateway.Announce(textCh, "❌ Lost the voice connection and could not reconnect.")
		s.Stop()
		return
	}

	s.mu.Lock()
	if s.stopped || gen != s.generation {
		s.mu.Unlock()
		h.Disconnect()
		return
	}
	s.voice = h
	s.state = StatePlaying // the stream restarts from the beginning
	s.clock.Start()
	s.mu.Unlock()

	if err := h.Play(info.StreamURL, func(playErr error) { go s.advance(gen, playErr) }); err != nil {
		s.deps.Gateway.Announce(textCh, "❌ Could not restart playback after reconnecting.")
		s.Stop()
	}
}

// scheduleIdleTeardown arms the inactivity timer. Any new track start
// cancels it; if it fires while the session is still idle the session
// stops and leaves the channel.
func (s *Session) scheduleIdleTeardown() {
	timeout := s.deps.IdleTimeout
	s.deps.Jobs.StartAsync(s.idleJobName(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(timeout):
		}

		s.mu.Lock()
		idle := !s.stopped && s.state == StateIdle && s.current == nil && len(s.queue) == 0
		s.mu.Unlock()
		if idle {
			log.Info().Str("guild", s.guildID).Msg("idle timeout, leaving voice")
			s.Stop()
		}
		return nil
	})
}

func describeLoadError(err error) string {
	switch kind, ok := resolver.KindOf(err); {
	case ok && kind == resolver.KindNotFound:
		return "Couldn't find that track."
	case ok && kind == resolver.KindAccessRestricted:
		return "That track is age-restricted or private and credentials didn't help."
	case ok && kind == resolver.KindUnsupported:
		return "That link isn't supported."
	case err == ErrNotInVoiceChannel:
		return "Join a voice channel first."
	default:
		return "Couldn't play that track: " + err.Error()
	}
}
