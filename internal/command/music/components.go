package music

import (
	"groovedeck/internal/command"
	"groovedeck/internal/music/panel"
	"groovedeck/internal/music/player"
)

// Component handles the panel transport buttons. Presses acknowledge as a
// silent message update; the panel refresh is the visible feedback, so
// button mashing never spams the channel. Errors surface ephemerally to
// the presser only.
func (c *MusicCommand) Component(ctx *command.Context, customID string) error {
	session, ok := ctx.Players.Get(ctx.Event.GuildID)
	if !ok {
		ctx.Respond.ReplyEphemeral("That player is no longer active.")
		return nil
	}

	ctx.Respond.DeferUpdate()

	var err error
	switch customID {
	case panel.CustomIDPrevious:
		err = session.Previous()
	case panel.CustomIDPlayPause:
		_, err = session.TogglePause()
	case panel.CustomIDSkip:
		err = session.Skip()
	case panel.CustomIDLoop:
		session.CycleLoop()
	case panel.CustomIDStop:
		session.Stop()
		return nil
	default:
		return nil
	}

	if err != nil {
		if err == player.ErrStillLoading {
			return nil // next press will land
		}
		ctx.Respond.ReplyEphemeral(capitalize(err.Error()) + ".")
		return nil
	}

	session.RefreshPanelNow()
	return nil
}
