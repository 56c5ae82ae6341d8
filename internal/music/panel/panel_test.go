package panel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name     string
		progress float64
		want     string
	}{
		{"start", 0.0, "`●──────────────`"},
		{"middle", 0.5, "`━━━━━━━●───────`"},
		{"end", 1.0, "`━━━━━━━━━━━━━━●`"},
		{"clamped low", -0.5, "`●──────────────`"},
		{"clamped high", 1.7, "`━━━━━━━━━━━━━━●`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProgressBar(tt.progress))
		})
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "00:00", FormatTime(0))
	assert.Equal(t, "00:59", FormatTime(59*time.Second))
	assert.Equal(t, "04:05", FormatTime(4*time.Minute+5*time.Second))
	assert.Equal(t, "01:00:01", FormatTime(time.Hour+time.Second))
	assert.Equal(t, "00:00", FormatTime(-3*time.Second))
}

func TestRender(t *testing.T) {
	embed := Render(View{
		Title:     "Test Song",
		PageURL:   "https://example.com/watch?v=x",
		Uploader:  "Some Artist",
		Thumbnail: "https://example.com/thumb.jpg",
		Views:     1234567,
		Likes:     890,
		Duration:  4 * time.Minute,
		Elapsed:   2 * time.Minute,
		QueueSize: 1,
		Loop:      LoopTrack,
		Requester: "<@42>",
	})

	assert.Equal(t, "🎵 Now Playing", embed.Title)
	assert.Contains(t, embed.Description, "[Test Song](https://example.com/watch?v=x)")
	assert.Contains(t, embed.Description, "Some Artist")
	require.NotNil(t, embed.Thumbnail)

	require.NotEmpty(t, embed.Fields)
	assert.Contains(t, embed.Fields[0].Value, "02:00")
	assert.Contains(t, embed.Fields[0].Value, "04:00")

	require.NotNil(t, embed.Footer)
	assert.Equal(t, "🔂 Track • Queue: 1 track", embed.Footer.Text)
}

func TestRenderPaused(t *testing.T) {
	embed := Render(View{Title: "X", Paused: true})
	assert.Equal(t, "⏸️ Paused", embed.Title)
}

func TestFooterPluralsAndLoopLabels(t *testing.T) {
	v := View{QueueSize: 3, Loop: LoopQueue}
	assert.Equal(t, "🔁 Queue • Queue: 3 tracks", footerText(v))

	v = View{QueueSize: 0, Loop: LoopOff}
	assert.Equal(t, "Off • Queue: 0 tracks", footerText(v))
}

func TestWithCommas(t *testing.T) {
	assert.Equal(t, "0", withCommas(0))
	assert.Equal(t, "999", withCommas(999))
	assert.Equal(t, "1,000", withCommas(1000))
	assert.Equal(t, "1,234,567", withCommas(1234567))
}
