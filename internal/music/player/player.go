// Package player holds the per-guild playback session: queue, history,
// loop mode, position clock and the state machine that drives track
// lifecycle. It talks to Discord voice and to the panel display through
// narrow interfaces so the whole engine is testable without a gateway
// connection.
package player

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"groovedeck/internal/music/resolver"
)

// State is the playback lifecycle state of a session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateAdvancing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateAdvancing:
		return "advancing"
	default:
		return "unknown"
	}
}

// LoopMode controls what happens to a finished track.
type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopTrack
	LoopQueue
)

// Next cycles Off → Track → Queue → Off.
func (m LoopMode) Next() LoopMode {
	return (m + 1) % 3
}

func (m LoopMode) String() string {
	switch m {
	case LoopTrack:
		return "track"
	case LoopQueue:
		return "queue"
	default:
		return "off"
	}
}

// Request is one play request: what to play and where the requester is.
type Request struct {
	Query          string // URL or search text
	RequesterID    string // Discord user id
	VoiceChannelID string
	TextChannelID  string

	// Notify, when set, receives the load-failure message for this request
	// instead of the session's text channel. Only honored for a request
	// that starts immediately; queued requests fail long after their
	// interaction and report to the channel.
	Notify func(content string)
}

// EnqueueResult tells the caller what happened to their request.
type EnqueueResult int

const (
	// EnqueueStarted means the session was idle and loading began.
	EnqueueStarted EnqueueResult = iota
	// EnqueueQueued means the request was appended behind the current track.
	EnqueueQueued
)

var (
	ErrNothingPlaying    = errors.New("nothing is playing")
	ErrNoHistory         = errors.New("no previous track to go back to")
	ErrStillLoading      = errors.New("hold on, a track is still loading")
	ErrNotInVoiceChannel = errors.New("join a voice channel first")
)

// Resolver turns a track reference into streamable metadata.
type Resolver interface {
	Resolve(ctx context.Context, query string, cookies string) (*resolver.TrackInfo, error)
}

// VoiceConnector establishes voice connections.
type VoiceConnector interface {
	Join(ctx context.Context, guildID, channelID string) (VoiceHandle, error)
}

// VoiceHandle is one live voice connection. Play streams the given URL and
// calls onComplete exactly once, from its own goroutine, when the stream
// ends for any reason including Stop.
type VoiceHandle interface {
	Play(streamURL string, onComplete func(error)) error
	Stop()
	Pause()
	Resume()
	Position() (time.Duration, bool)
	Disconnect()
}

// PanelGateway sends and maintains the now-playing message.
type PanelGateway interface {
	SendPanel(channelID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) (messageID string, err error)
	EditPanel(channelID, messageID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error
	CompletePanel(channelID, messageID string) error
	DeletePanel(channelID, messageID string) error
	Announce(channelID, content string)
}
