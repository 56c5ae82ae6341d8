// Package panel renders the live "now playing" display. Pure presentation:
// it builds embeds and components from a snapshot of session state and
// holds no state of its own.
package panel

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Custom IDs for the transport control buttons.
const (
	CustomIDPrevious  = "music_prev"
	CustomIDPlayPause = "music_playpause"
	CustomIDSkip      = "music_skip"
	CustomIDLoop      = "music_loop"
	CustomIDStop      = "music_stop"
)

// Loop mode labels as shown in the footer.
const (
	LoopOff   = "off"
	LoopTrack = "track"
	LoopQueue = "queue"
)

const (
	barLength    = 15
	colorBlurple = 0x5865F2
)

// View is a snapshot of everything the panel displays.
type View struct {
	Title     string
	PageURL   string
	Uploader  string
	Thumbnail string
	Views     int64
	Likes     int64
	Duration  time.Duration
	Elapsed   time.Duration
	QueueSize int
	Loop      string // LoopOff, LoopTrack or LoopQueue
	Requester string // mention of the user who requested the track
	Paused    bool
}

// Render builds the now-playing embed for a view.
func Render(v View) *discordgo.MessageEmbed {
	title := "🎵 Now Playing"
	if v.Paused {
		title = "⏸️ Paused"
	}

	embed := &discordgo.MessageEmbed{
		Title: title,
		Color: colorBlurple,
		Description: fmt.Sprintf("**[%s](%s)**\n👤 %s",
			orUnknown(v.Title, "Unknown Title"),
			orUnknown(v.PageURL, "#"),
			orUnknown(v.Uploader, "Unknown Artist")),
	}

	if v.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: v.Thumbnail}
	}

	progress := 0.0
	if v.Duration > 0 {
		progress = min(1.0, v.Elapsed.Seconds()/v.Duration.Seconds())
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "​",
		Value: fmt.Sprintf("%s %s %s", FormatTime(v.Elapsed), ProgressBar(progress), FormatTime(v.Duration)),
	})

	var meta []string
	if v.Views > 0 {
		meta = append(meta, fmt.Sprintf("👁️ %s views", withCommas(v.Views)))
	}
	if v.Likes > 0 {
		meta = append(meta, fmt.Sprintf("❤️ %s likes", withCommas(v.Likes)))
	}
	if len(meta) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "​",
			Value: strings.Join(meta, " • "),
		})
	}

	if v.Requester != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "​",
			Value: "🎵 Requested by " + v.Requester,
		})
	}

	embed.Footer = &discordgo.MessageEmbedFooter{Text: footerText(v)}

	return embed
}

// Controls builds the transport button row. The loop button turns green
// while a loop mode is active.
func Controls(loop string) []discordgo.MessageComponent {
	loopStyle := discordgo.PrimaryButton
	if loop != LoopOff && loop != "" {
		loopStyle = discordgo.SuccessButton
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Emoji: &discordgo.ComponentEmoji{Name: "⏮️"}, Style: discordgo.PrimaryButton, CustomID: CustomIDPrevious},
				discordgo.Button{Emoji: &discordgo.ComponentEmoji{Name: "⏯️"}, Style: discordgo.PrimaryButton, CustomID: CustomIDPlayPause},
				discordgo.Button{Emoji: &discordgo.ComponentEmoji{Name: "⏭️"}, Style: discordgo.PrimaryButton, CustomID: CustomIDSkip},
				discordgo.Button{Emoji: &discordgo.ComponentEmoji{Name: "🔁"}, Style: loopStyle, CustomID: CustomIDLoop},
				discordgo.Button{Emoji: &discordgo.ComponentEmoji{Name: "🛑"}, Style: discordgo.DangerButton, CustomID: CustomIDStop},
			},
		},
	}
}

// ProgressBar renders a fixed-width bar with a position dot.
// progress must be within [0, 1]; out-of-range values are clamped.
func ProgressBar(progress float64) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	filled := int(float64(barLength) * progress)
	bar := []rune(strings.Repeat("━", filled) + strings.Repeat("─", barLength-filled))
	if filled < barLength {
		bar[filled] = '●'
	} else {
		bar[barLength-1] = '●'
	}
	return "`" + string(bar) + "`"
}

// FormatTime renders MM:SS, or HH:MM:SS for durations of an hour and more.
func FormatTime(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 3600 {
		return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

func footerText(v View) string {
	loopLabel := "Off"
	switch v.Loop {
	case LoopTrack:
		loopLabel = "🔂 Track"
	case LoopQueue:
		loopLabel = "🔁 Queue"
	}

	unit := "tracks"
	if v.QueueSize == 1 {
		unit = "track"
	}
	return fmt.Sprintf("%s • Queue: %d %s", loopLabel, v.QueueSize, unit)
}

func orUnknown(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func withCommas(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
