package discord

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"layeh.com/gopus"

	"groovedeck/internal/music/player"
	"groovedeck/pkg/retrylimit"
)

const (
	voiceChannels   = 2
	voiceSampleRate = 48000
	voiceFrameSize  = 960 // 20ms at 48kHz
	frameDuration   = 20 * time.Millisecond
)

// Connector joins voice channels with retry. Discord voice handshakes
// flake under load, so joins back off and keep trying until the caller's
// deadline.
type Connector struct {
	session *discordgo.Session
	limiter *retrylimit.AdaptiveLimiter
}

func NewConnector(s *discordgo.Session) *Connector {
	return &Connector{
		session: s,
		limiter: retrylimit.NewAdaptiveLimiter(2, 1, 5, 1, 0.5),
	}
}

func (c *Connector) Join(ctx context.Context, guildID, channelID string) (player.VoiceHandle, error) {
	var vc *discordgo.VoiceConnection

	cfg := retrylimit.DefaultRetryConfig()
	cfg.InitialDelay = 2 * time.Second
	cfg.MaxDelay = 10 * time.Second
	cfg.OnRetry = func(attempt int, err error) {
		log.Warn().Str("guild", guildID).Int("attempt", attempt).Err(err).Msg("voice join failed, retrying")
	}

	err := retrylimit.WithRetryConfig(ctx, func() error {
		conn, err := c.session.ChannelVoiceJoin(guildID, channelID, false, true)
		if err != nil {
			return err
		}
		vc = conn
		return nil
	}, c.limiter, cfg)
	if err != nil {
		return nil, fmt.Errorf("joining voice channel %s: %w", channelID, err)
	}

	return &voiceHandle{vc: vc}, nil
}

// voiceHandle streams one ffmpeg-decoded track at a time over a live
// voice connection. ffmpeg converts the source to raw s16le PCM; frames
// are Opus-encoded in process and counted, which is where Position comes
// from.
type voiceHandle struct {
	vc *discordgo.VoiceConnection

	mu      sync.Mutex
	stop    chan struct{}
	paused  bool
	playing bool

	frames int64 // atomic
}

func (h *voiceHandle) Play(streamURL string, onComplete func(error)) error {
	cmd := exec.Command("ffmpeg",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", streamURL,
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", voiceSampleRate),
		"-ac", fmt.Sprintf("%d", voiceChannels),
		"-loglevel", "warning",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	h.mu.Lock()
	h.stop = make(chan struct{})
	h.paused = false
	h.playing = true
	atomic.StoreInt64(&h.frames, 0)
	stop := h.stop
	h.mu.Unlock()

	go h.stream(stdout, cmd, stop, onComplete)
	return nil
}

func (h *voiceHandle) stream(r io.ReadCloser, cmd *exec.Cmd, stop chan struct{}, onComplete func(error)) {
	err := h.encodeLoop(r, stop)

	_ = cmd.Process.Kill()
	_ = cmd.Wait()

	h.mu.Lock()
	h.playing = false
	h.mu.Unlock()
	_ = h.vc.Speaking(false)

	onComplete(err)
}

func (h *voiceHandle) encodeLoop(r io.Reader, stop <-chan struct{}) error {
	encoder, err := gopus.NewEncoder(voiceSampleRate, voiceChannels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("opus encoder: %w", err)
	}

	if err := h.vc.Speaking(true); err != nil {
		log.Debug().Err(err).Msg("speaking toggle failed")
	}

	pcm := make([]byte, voiceFrameSize*voiceChannels*2)
	samples := make([]int16, voiceFrameSize*voiceChannels)

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		h.mu.Lock()
		paused := h.paused
		h.mu.Unlock()
		if paused {
			select {
			case <-stop:
				return nil
			case <-time.After(5 * frameDuration):
			}
			continue
		}

		if _, err := io.ReadFull(r, pcm); err != nil {
			// Source drained is a natural end, not a failure.
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return fmt.Errorf("reading pcm: %w", err)
		}

		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		}

		opus, err := encoder.Encode(samples, voiceFrameSize, len(pcm))
		if err != nil {
			return fmt.Errorf("encoding frame: %w", err)
		}

		select {
		case h.vc.OpusSend <- opus:
			atomic.AddInt64(&h.frames, 1)
		case <-stop:
			return nil
		}
	}
}

func (h *voiceHandle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stop == nil {
		return
	}
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
}

func (h *voiceHandle) Pause() {
	h.mu.Lock()
	h.paused = true
	h.mu.Unlock()
	_ = h.vc.Speaking(false)
}

func (h *voiceHandle) Resume() {
	h.mu.Lock()
	h.paused = false
	h.mu.Unlock()
	_ = h.vc.Speaking(true)
}

// Position reports how much audio has actually been sent, derived from
// the frame counter.
func (h *voiceHandle) Position() (time.Duration, bool) {
	h.mu.Lock()
	playing := h.playing
	h.mu.Unlock()
	if !playing {
		return 0, false
	}
	return time.Duration(atomic.LoadInt64(&h.frames)) * frameDuration, true
}

func (h *voiceHandle) Disconnect() {
	h.Stop()
	if err := h.vc.Disconnect(); err != nil {
		log.Debug().Err(err).Msg("voice disconnect failed")
	}
}
