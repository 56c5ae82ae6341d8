package player

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"groovedeck/internal/music/panel"
)

// panelFailureLimit is how many consecutive edit failures the refresher
// tolerates before giving up on the panel for the rest of the track.
const panelFailureLimit = 3

// showPanel replaces the previous now-playing message with a fresh one
// for the track armed under gen.
func (s *Session) showPanel(gen uint64) {
	s.mu.Lock()
	if s.stopped || gen != s.generation {
		s.mu.Unlock()
		return
	}
	view := s.buildViewLocked()
	channelID := s.textChannelID
	oldCh, oldID := s.panelChannelID, s.panelMessageID
	s.panelChannelID, s.panelMessageID = "", ""
	s.mu.Unlock()

	if oldID != "" {
		if err := s.deps.Gateway.DeletePanel(oldCh, oldID); err != nil {
			log.Debug().Str("guild", s.guildID).Err(err).Msg("stale panel delete failed")
		}
	}

	id, err := s.deps.Gateway.SendPanel(channelID, panel.Render(view), panel.Controls(view.Loop))
	if err != nil {
		log.Warn().Str("guild", s.guildID).Err(err).Msg("panel send failed")
		return
	}

	s.mu.Lock()
	if s.stopped || gen != s.generation {
		s.mu.Unlock()
		// Track already over; don't leave an orphan message behind.
		_ = s.deps.Gateway.DeletePanel(channelID, id)
		return
	}
	s.panelChannelID = channelID
	s.panelMessageID = id
	s.mu.Unlock()
}

// startRefresher runs the periodic panel update for the track armed under
// gen. Each tick samples the encoder position into the clock and edits
// the message. The message is recreated once if it disappears; after
// panelFailureLimit consecutive failures the refresher stops for this
// track so a broken channel cannot generate an error loop.
func (s *Session) startRefresher(gen uint64) {
	limiter := rate.NewLimiter(rate.Every(s.deps.RefreshInterval), 1)

	s.deps.Jobs.StartAsync(s.panelJobName(), func(ctx context.Context) error {
		failures := 0
		recreated := false
		var lastPos time.Duration
		stuckTicks := 0

		for {
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}

			s.mu.Lock()
			if s.stopped || gen != s.generation || s.clock == nil {
				s.mu.Unlock()
				return nil
			}

			if s.voice != nil && s.state == StatePlaying {
				if pos, ok := s.voice.Position(); ok {
					s.clock.RecordPosition(pos, s.deps.Now())
					if pos == lastPos {
						stuckTicks++
						if stuckTicks == panelFailureLimit {
							log.Debug().Str("guild", s.guildID).Dur("position", pos).
								Msg("encoder position not advancing")
						}
					} else {
						stuckTicks = 0
						lastPos = pos
					}
				}
			}

			view := s.buildViewLocked()
			channelID, messageID := s.panelChannelID, s.panelMessageID
			s.mu.Unlock()

			if messageID == "" {
				return nil
			}

			err := s.deps.Gateway.EditPanel(channelID, messageID, panel.Render(view), panel.Controls(view.Loop))
			if err == nil {
				failures = 0
				continue
			}

			if !recreated {
				// Likely deleted by a moderator. Post a replacement once.
				recreated = true
				if id, sendErr := s.deps.Gateway.SendPanel(channelID, panel.Render(view), panel.Controls(view.Loop)); sendErr == nil {
					s.mu.Lock()
					if !s.stopped && gen == s.generation {
						s.panelMessageID = id
					} else {
						_ = s.deps.Gateway.DeletePanel(channelID, id)
					}
					s.mu.Unlock()
					failures = 0
					continue
				}
			}

			failures++
			log.Debug().Str("guild", s.guildID).Int("failures", failures).Err(err).Msg("panel edit failed")
			if failures >= panelFailureLimit {
				log.Warn().Str("guild", s.guildID).Msg("panel updates disabled for this track")
				return nil
			}
		}
	})
}

// RefreshPanelNow pushes an immediate panel edit, used after a button
// press so the display reflects the action without waiting for the next
// tick.
func (s *Session) RefreshPanelNow() {
	s.mu.Lock()
	if s.stopped || s.clock == nil || s.panelMessageID == "" {
		s.mu.Unlock()
		return
	}
	view := s.buildViewLocked()
	channelID, messageID := s.panelChannelID, s.panelMessageID
	s.mu.Unlock()

	if err := s.deps.Gateway.EditPanel(channelID, messageID, panel.Render(view), panel.Controls(view.Loop)); err != nil {
		log.Debug().Str("guild", s.guildID).Err(err).Msg("panel refresh failed")
	}
}

// buildViewLocked snapshots display state. Caller holds s.mu.
func (s *Session) buildViewLocked() panel.View {
	v := panel.View{
		QueueSize: len(s.queue),
		Loop:      s.loop.String(),
		Paused:    s.state == StatePaused,
	}
	if s.current != nil && s.current.RequesterID != "" {
		v.Requester = "<@" + s.current.RequesterID + ">"
	}
	if s.info != nil {
		v.Title = s.info.Title
		v.PageURL = s.info.PageURL
		v.Uploader = s.info.Uploader
		v.Thumbnail = s.info.Thumbnail
		v.Views = s.info.Views
		v.Likes = s.info.Likes
		v.Duration = s.info.Duration
	}
	if s.clock != nil {
		v.Elapsed = s.clock.Elapsed(s.deps.Now())
		if v.Duration > 0 && v.Elapsed > v.Duration {
			v.Elapsed = v.Duration
		}
	}
	return v
}
