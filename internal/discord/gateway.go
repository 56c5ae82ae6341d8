package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const queueFinishedText = "✅ Queue finished. Add more with `/music play`."

// Messenger implements the player's panel gateway on top of plain channel
// messages.
type Messenger struct {
	session *discordgo.Session
}

func NewMessenger(s *discordgo.Session) *Messenger {
	return &Messenger{session: s}
}

func (m *Messenger) SendPanel(channelID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) (string, error) {
	msg, err := m.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (m *Messenger) EditPanel(channelID, messageID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	embeds := []*discordgo.MessageEmbed{embed}
	_, err := m.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Embeds:     &embeds,
		Components: &components,
	})
	return err
}

// CompletePanel swaps the panel for a plain closing line instead of
// deleting it, so the channel keeps a trace of what played.
func (m *Messenger) CompletePanel(channelID, messageID string) error {
	content := queueFinishedText
	embeds := []*discordgo.MessageEmbed{}
	components := []discordgo.MessageComponent{}
	_, err := m.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Content:    &content,
		Embeds:     &embeds,
		Components: &components,
	})
	return err
}

func (m *Messenger) DeletePanel(channelID, messageID string) error {
	return m.session.ChannelMessageDelete(channelID, messageID)
}

func (m *Messenger) Announce(channelID, content string) {
	if channelID == "" {
		return
	}
	if _, err := m.session.ChannelMessageSend(channelID, content); err != nil {
		log.Warn().Str("channel", channelID).Err(err).Msg("announcement failed")
	}
}
