package command

import (
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Responder manages the response lifecycle of one interaction. Discord
// invalidates interaction tokens after three seconds, so handlers that do
// slow work call Defer first and the eventual reply edits the deferred
// message. Every path sends at most one final message: replies after the
// first are dropped, and a failed direct response falls back to a plain
// channel message so the user is never left without feedback.
type Responder struct {
	session *discordgo.Session
	event   *discordgo.InteractionCreate

	mu       sync.Mutex
	deferred bool
	finished bool
}

func NewResponder(s *discordgo.Session, e *discordgo.InteractionCreate) *Responder {
	return &Responder{session: s, event: e}
}

// Defer acknowledges the interaction with a visible "thinking" state.
// On failure the responder stays un-deferred and Reply responds directly.
func (r *Responder) Defer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deferred || r.finished {
		return
	}

	err := r.session.InteractionRespond(r.event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.Debug().Err(err).Msg("interaction defer failed")
		return
	}
	r.deferred = true
}

// DeferUpdate acknowledges a component press without changing the
// message. The panel refresh that follows is the visible effect.
func (r *Responder) DeferUpdate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deferred || r.finished {
		return
	}

	err := r.session.InteractionRespond(r.event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		log.Debug().Err(err).Msg("component defer failed")
		return
	}
	r.deferred = true
}

// Reply sends the final response. Safe to call more than once; only the
// first call produces a message.
func (r *Responder) Reply(content string) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	deferred := r.deferred
	r.mu.Unlock()

	if deferred {
		_, err := r.session.InteractionResponseEdit(r.event.Interaction, &discordgo.WebhookEdit{
			Content: &content,
		})
		if err != nil {
			log.Warn().Err(err).Msg("deferred response edit failed")
			r.fallback(content)
		}
		return
	}

	err := r.session.InteractionRespond(r.event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		log.Warn().Err(err).Msg("interaction response failed")
		r.fallback(content)
	}
}

// ReplyEphemeral sends the final response visibly only to the invoker.
// After a public defer the ephemeral flag cannot apply, so it degrades to
// a followup.
func (r *Responder) ReplyEphemeral(content string) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	deferred := r.deferred
	r.mu.Unlock()

	if deferred {
		_, err := r.session.FollowupMessageCreate(r.event.Interaction, true, &discordgo.WebhookParams{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
		if err != nil {
			log.Warn().Err(err).Msg("ephemeral followup failed")
		}
		return
	}

	err := r.session.InteractionRespond(r.event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("ephemeral response failed")
		r.fallback(content)
	}
}

// Update rewrites the primary message in place. Used for outcomes that
// settle after the final reply went out, like a lookup that fails once
// the command has already answered; the user still sees one message.
// Before the first reply it behaves like Reply.
func (r *Responder) Update(content string) {
	r.mu.Lock()
	finished := r.finished
	r.mu.Unlock()

	if !finished {
		r.Reply(content)
		return
	}

	_, err := r.session.InteractionResponseEdit(r.event.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	if err != nil {
		log.Debug().Err(err).Msg("interaction update failed")
		r.fallback(content)
	}
}

func (r *Responder) fallback(content string) {
	if r.event.ChannelID == "" {
		return
	}
	if _, err := r.session.ChannelMessageSend(r.event.ChannelID, content); err != nil {
		log.Warn().Err(err).Msg("channel fallback failed")
	}
}
