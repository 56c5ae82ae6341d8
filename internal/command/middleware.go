package command

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Middleware wraps a command with cross-cutting behavior.
type Middleware func(Command) Command

type wrappedCommand struct {
	Command
	hook func(next func(*Context) error, ctx *Context) error
}

func (w *wrappedCommand) Run(ctx *Context) error {
	return w.hook(w.Command.Run, ctx)
}

func (w *wrappedCommand) Component(ctx *Context, customID string) error {
	handler, ok := w.Command.(ComponentHandler)
	if !ok {
		return nil
	}
	return w.hook(func(c *Context) error { return handler.Component(c, customID) }, ctx)
}

func (w *wrappedCommand) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := w.Command.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

// WithGuildOnly rejects invocations outside a guild before the command
// runs.
func WithGuildOnly() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			hook: func(next func(*Context) error, ctx *Context) error {
				if ctx.Event.GuildID == "" {
					ctx.Respond.ReplyEphemeral("This command only works in a server.")
					return nil
				}
				return next(ctx)
			},
		}
	}
}

// WithCommandLogger logs every invocation with its outcome and duration.
func WithCommandLogger() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			hook: func(next func(*Context) error, ctx *Context) error {
				start := time.Now()
				err := next(ctx)

				evt := log.Info()
				if err != nil {
					evt = log.Error().Err(err)
				}
				evt.Str("command", cmd.Name()).
					Str("guild", ctx.Event.GuildID).
					Str("user", ctx.User().ID).
					Dur("took", time.Since(start)).
					Msg("command handled")
				return err
			},
		}
	}
}
