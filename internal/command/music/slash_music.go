// Package music implements the /music command group and the now-playing
// panel buttons.
package music

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"groovedeck/internal/command"
	"groovedeck/internal/music/panel"
	"groovedeck/internal/music/player"
)

const maxQueueListed = 10

type MusicCommand struct{}

func (c *MusicCommand) Name() string        { return "music" }
func (c *MusicCommand) Description() string { return "Play music in your voice channel" }
func (c *MusicCommand) Group() string       { return "music" }

func (c *MusicCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "play",
				Description: "Play a track or add it to the queue",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "query",
						Description: "Link or search text",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "skip",
				Description: "Skip to the next track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "previous",
				Description: "Replay the previous track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "pause",
				Description: "Pause or resume playback",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "loop",
				Description: "Cycle the loop mode: off, track, queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "queue",
				Description: "Show the current queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stop",
				Description: "Stop playback, clear the queue and leave",
			},
		},
	}
}

func (c *MusicCommand) Run(ctx *command.Context) error {
	data := ctx.Event.ApplicationCommandData()
	if len(data.Options) == 0 {
		ctx.Respond.ReplyEphemeral("Missing subcommand.")
		return nil
	}
	sub := data.Options[0]

	switch sub.Name {
	case "play":
		query := ""
		for _, opt := range sub.Options {
			if opt.Name == "query" {
				query = opt.StringValue()
			}
		}
		return c.runPlay(ctx, query)
	case "skip":
		return c.runSkip(ctx)
	case "previous":
		return c.runPrevious(ctx)
	case "pause":
		return c.runPause(ctx)
	case "loop":
		return c.runLoop(ctx)
	case "queue":
		return c.runQueue(ctx)
	case "stop":
		return c.runStop(ctx)
	default:
		ctx.Respond.ReplyEphemeral(fmt.Sprintf("Unknown subcommand: %s", sub.Name))
		return nil
	}
}

func (c *MusicCommand) runPlay(ctx *command.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		ctx.Respond.ReplyEphemeral("Give me a link or something to search for.")
		return nil
	}

	ctx.Respond.Defer()

	voiceChannelID := findUserVoiceChannel(ctx.Session, ctx.Event.GuildID, ctx.User().ID)
	session := ctx.Players.GetOrCreate(ctx.Event.GuildID)

	result := session.Enqueue(player.Request{
		Query:          query,
		RequesterID:    ctx.User().ID,
		VoiceChannelID: voiceChannelID,
		TextChannelID:  ctx.Event.ChannelID,
		Notify:         ctx.Respond.Update,
	})

	switch result {
	case player.EnqueueStarted:
		ctx.Respond.Reply(fmt.Sprintf("🔍 Looking up **%s**...", query))
	default:
		position := len(session.Status().Queue)
		ctx.Respond.Reply(fmt.Sprintf("➕ Added **%s** to the queue (position %d).", query, position))
	}
	return nil
}

func (c *MusicCommand) runSkip(ctx *command.Context) error {
	session, ok := ctx.Players.Get(ctx.Event.GuildID)
	if !ok {
		ctx.Respond.ReplyEphemeral("Nothing is playing.")
		return nil
	}
	if err := session.Skip(); err != nil {
		ctx.Respond.ReplyEphemeral(capitalize(err.Error()) + ".")
		return nil
	}
	ctx.Respond.Reply("⏭️ Skipped.")
	return nil
}

func (c *MusicCommand) runPrevious(ctx *command.Context) error {
	session, ok := ctx.Players.Get(ctx.Event.GuildID)
	if !ok {
		ctx.Respond.ReplyEphemeral("Nothing has played yet.")
		return nil
	}
	if err := session.Previous(); err != nil {
		ctx.Respond.ReplyEphemeral(capitalize(err.Error()) + ".")
		return nil
	}
	ctx.Respond.Reply("⏮️ Going back.")
	return nil
}

func (c *MusicCommand) runPause(ctx *command.Context) error {
	session, ok := ctx.Players.Get(ctx.Event.GuildID)
	if !ok {
		ctx.Respond.ReplyEphemeral("Nothing is playing.")
		return nil
	}

	state, err := session.TogglePause()
	if err != nil {
		ctx.Respond.ReplyEphemeral(capitalize(err.Error()) + ".")
		return nil
	}
	switch state {
	case player.StatePaused:
		ctx.Respond.Reply("⏸️ Paused.")
	case player.StateLoading:
		ctx.Respond.Reply("▶️ Picking the queue back up.")
	default:
		ctx.Respond.Reply("▶️ Resumed.")
	}
	session.RefreshPanelNow()
	return nil
}

func (c *MusicCommand) runLoop(ctx *command.Context) error {
	session, ok := ctx.Players.Get(ctx.Event.GuildID)
	if !ok {
		ctx.Respond.ReplyEphemeral("Nothing is playing.")
		return nil
	}

	mode := session.CycleLoop()
	var label string
	switch mode {
	case player.LoopTrack:
		label = "🔂 Looping the current track."
	case player.LoopQueue:
		label = "🔁 Looping the whole queue."
	default:
		label = "➡️ Loop off."
	}
	ctx.Respond.Reply(label)
	session.RefreshPanelNow()
	return nil
}

func (c *MusicCommand) runQueue(ctx *command.Context) error {
	session, ok := ctx.Players.Get(ctx.Event.GuildID)
	if !ok {
		ctx.Respond.ReplyEphemeral("The queue is empty.")
		return nil
	}

	st := session.Status()
	if st.CurrentTitle == "" && len(st.Queue) == 0 {
		ctx.Respond.ReplyEphemeral("The queue is empty.")
		return nil
	}

	var b strings.Builder
	if st.CurrentTitle != "" {
		fmt.Fprintf(&b, "**Now playing:** [%s](%s) `%s / %s`\n",
			st.CurrentTitle, st.CurrentURL,
			panel.FormatTime(st.Elapsed), panel.FormatTime(st.Duration))
	}
	if len(st.Queue) > 0 {
		b.WriteString("**Up next:**\n")
		for i, req := range st.Queue {
			if i == maxQueueListed {
				fmt.Fprintf(&b, "...and %d more\n", len(st.Queue)-maxQueueListed)
				break
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, req.Query)
		}
	}
	if st.Loop != player.LoopOff {
		fmt.Fprintf(&b, "Loop: **%s**", st.Loop)
	}

	ctx.Respond.Reply(b.String())
	return nil
}

func (c *MusicCommand) runStop(ctx *command.Context) error {
	session, ok := ctx.Players.Get(ctx.Event.GuildID)
	if !ok {
		ctx.Respond.ReplyEphemeral("Nothing is playing.")
		return nil
	}

	ctx.Respond.Defer()
	session.Stop()
	ctx.Respond.Reply("⏹️ Stopped and cleared the queue.")
	return nil
}

// findUserVoiceChannel reads the gateway state cache. Empty when the user
// is not in any voice channel.
func findUserVoiceChannel(s *discordgo.Session, guildID, userID string) string {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
