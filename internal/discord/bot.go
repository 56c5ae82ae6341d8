// Package discord wires the playback engine to the Discord gateway:
// session lifecycle, event dispatch, slash command registration, voice
// streaming and panel messaging.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"groovedeck/internal/command"
	"groovedeck/internal/command/music"
	"groovedeck/internal/config"
	"groovedeck/internal/music/player"
	"groovedeck/internal/music/resolver"
	"groovedeck/pkg/jobmgr"
)

// Bot is the Discord-facing application.
type Bot struct {
	session  *discordgo.Session
	cfg      *config.Config
	players  *player.Registry
	commands *command.Registry
}

// StartBot runs the bot until ctx is cancelled, then tears every session
// down before returning.
func StartBot(ctx context.Context, cfg *config.Config) error {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	b := &Bot{
		session:  dg,
		cfg:      cfg,
		commands: command.NewRegistry(),
	}

	b.players = player.NewRegistry(player.Deps{
		Resolver:        resolver.New(resolver.Options{ProxyURL: cfg.ResolverProxy}),
		Voice:           NewConnector(dg),
		Gateway:         NewMessenger(dg),
		Jobs:            jobmgr.NewManager(),
		Cookies:         cfg.Cookies,
		IdleTimeout:     cfg.IdleTimeout,
		ConnectTimeout:  cfg.VoiceConnectTimeout,
		RefreshInterval: cfg.PanelRefreshInterval,
	})

	b.commands.Register(&music.MusicCommand{},
		command.WithGuildOnly(),
		command.WithCommandLogger(),
	)

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onInteractionCreate)
	dg.AddHandler(b.onVoiceStateUpdate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("opening gateway: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	log.Info().Msg("shutting down, stopping sessions")
	b.players.Shutdown()
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("gateway ready")

	for _, g := range r.Guilds {
		if err := b.syncCommands(g.ID); err != nil {
			log.Error().Str("guild", g.ID).Err(err).Msg("command sync failed")
		}
	}
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	log.Info().Str("guild", g.ID).Str("name", g.Name).Msg("guild available")
	if err := b.syncCommands(g.ID); err != nil {
		log.Error().Str("guild", g.ID).Err(err).Msg("command sync failed")
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		cmd, ok := b.commands.Get(name)
		if !ok {
			log.Warn().Str("command", name).Msg("unknown command invoked")
			return
		}

		ctx := b.newContext(s, i)
		if err := cmd.Run(ctx); err != nil {
			log.Error().Str("command", name).Err(err).Msg("command failed")
			ctx.Respond.ReplyEphemeral("Something went wrong running that command.")
		}

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		cmd, ok := b.commands.ByCustomID(customID)
		if !ok {
			log.Warn().Str("custom_id", customID).Msg("component without owner")
			return
		}
		handler, ok := cmd.(command.ComponentHandler)
		if !ok {
			return
		}

		ctx := b.newContext(s, i)
		if err := handler.Component(ctx, customID); err != nil {
			log.Error().Str("custom_id", customID).Err(err).Msg("component failed")
			ctx.Respond.ReplyEphemeral("Something went wrong handling that button.")
		}
	}
}

// onVoiceStateUpdate watches for the bot losing its own voice channel:
// kicked, moved by region failover, or a dropped connection. Planned
// disconnects have already cleared the session's voice handle, making
// VoiceLost a no-op for them.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State.User == nil || v.UserID != s.State.User.ID {
		return
	}
	if v.ChannelID != "" {
		return
	}
	if session, ok := b.players.Get(v.GuildID); ok {
		go session.VoiceLost()
	}
}

func (b *Bot) newContext(s *discordgo.Session, i *discordgo.InteractionCreate) *command.Context {
	return &command.Context{
		Session: s,
		Event:   i,
		Players: b.players,
		Respond: command.NewResponder(s, i),
	}
}
