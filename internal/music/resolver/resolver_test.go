package resolver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBestAudio(t *testing.T) {
	formats := []Format{
		{URL: "video", Bitrate: 999, SampleRate: 48000, HasAudio: true, HasVideo: true},
		{URL: "low", Bitrate: 64, SampleRate: 44100, HasAudio: true},
		{URL: "best", Bitrate: 160, SampleRate: 48000, HasAudio: true},
		{URL: "mid", Bitrate: 128, SampleRate: 48000, HasAudio: true},
	}

	best, err := SelectBestAudio(formats)
	require.NoError(t, err)
	assert.Equal(t, "best", best.URL)
}

func TestSelectBestAudioTieBreakers(t *testing.T) {
	tests := []struct {
		name    string
		formats []Format
		want    string
	}{
		{
			name: "sample rate breaks bitrate tie",
			formats: []Format{
				{URL: "a", Bitrate: 128, SampleRate: 44100, HasAudio: true},
				{URL: "b", Bitrate: 128, SampleRate: 48000, HasAudio: true},
			},
			want: "b",
		},
		{
			name: "file size breaks full tie",
			formats: []Format{
				{URL: "small", Bitrate: 128, SampleRate: 48000, Filesize: 100, HasAudio: true},
				{URL: "large", Bitrate: 128, SampleRate: 48000, Filesize: 200, HasAudio: true},
			},
			want: "large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, err := SelectBestAudio(tt.formats)
			require.NoError(t, err)
			assert.Equal(t, tt.want, best.URL)
		})
	}
}

func TestSelectBestAudioNoCandidates(t *testing.T) {
	_, err := SelectBestAudio([]Format{
		{URL: "av", Bitrate: 256, HasAudio: true, HasVideo: true},
		{URL: "v", HasVideo: true},
	})
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindUnsupported, kind)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   Kind
	}{
		{"age gate", "ERROR: Sign in to confirm your age", KindAccessRestricted},
		{"private", "ERROR: Private video. Sign in if you've been granted access", KindAccessRestricted},
		{"region", "ERROR: The uploader has not made this video available in your country", KindAccessRestricted},
		{"gone", "ERROR: Video unavailable", KindNotFound},
		{"bad url", "ERROR: Unsupported URL: https://example.com", KindUnsupported},
		{"other", "ERROR: connection reset by peer", KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("ytdlp", tt.output, errors.New("exit status 1"))
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestKindOfForeignError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestCleanVideoURL(t *testing.T) {
	assert.Equal(t,
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		CleanVideoURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=RDdQw4w9WgXcQ&index=2"))

	// Non-watch URLs pass through untouched.
	assert.Equal(t,
		"https://soundcloud.com/artist/track",
		CleanVideoURL("https://soundcloud.com/artist/track"))
}

func TestFirstVideoID(t *testing.T) {
	body := `{"url":"/watch?v=abcdefghijk","title":{"runs":[{"text":"A Song"}]}}`

	id, ok := firstVideoID(body)
	require.True(t, ok)
	assert.Equal(t, "abcdefghijk", id)

	_, ok = firstVideoID("<html>no results</html>")
	assert.False(t, ok)
}
