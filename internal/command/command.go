// Package command defines the bot command contract: named commands with
// slash definitions, a registry the gateway dispatches from, and the
// interaction response lifecycle.
package command

import (
	"github.com/bwmarrin/discordgo"

	"groovedeck/internal/music/player"
)

type Command interface {
	Name() string
	Description() string
	Group() string
	Run(ctx *Context) error
}

// SlashProvider is implemented by commands that register a slash command.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// ComponentHandler is implemented by commands that own message components.
// A component interaction routes to the command whose name prefixes the
// custom id.
type ComponentHandler interface {
	Component(ctx *Context, customID string) error
}

// Context carries everything a command invocation needs.
type Context struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Players *player.Registry
	Respond *Responder
}

// User returns the invoking user, from the member in guilds or the bare
// user in DMs.
func (c *Context) User() *discordgo.User {
	if c.Event.Member != nil && c.Event.Member.User != nil {
		return c.Event.Member.User
	}
	if c.Event.User != nil {
		return c.Event.User
	}
	return &discordgo.User{ID: "unknown", Username: "unknown"}
}
