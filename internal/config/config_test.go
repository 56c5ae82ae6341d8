package config

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCookiePayload = "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tSID\tabc\n"

func fakeEnv(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestAssembleCookiesEmpty(t *testing.T) {
	got, err := assembleCookies(fakeEnv(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAssembleCookiesSingleChunk(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(validCookiePayload))

	got, err := assembleCookies(fakeEnv(map[string]string{"YTDLP_COOKIES_1": encoded}))
	require.NoError(t, err)
	assert.Equal(t, validCookiePayload, got)
}

func TestAssembleCookiesChunked(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(validCookiePayload))
	mid := len(encoded) / 2

	got, err := assembleCookies(fakeEnv(map[string]string{
		"YTDLP_COOKIES_1": encoded[:mid],
		"YTDLP_COOKIES_2": encoded[mid:],
	}))
	require.NoError(t, err)
	assert.Equal(t, validCookiePayload, got)
}

func TestAssembleCookiesStopsAtGap(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(validCookiePayload))

	// Slot 3 without slot 2 must be ignored.
	got, err := assembleCookies(fakeEnv(map[string]string{
		"YTDLP_COOKIES_1": encoded,
		"YTDLP_COOKIES_3": "garbage",
	}))
	require.NoError(t, err)
	assert.Equal(t, validCookiePayload, got)
}

func TestAssembleCookiesRejectsBadBase64(t *testing.T) {
	_, err := assembleCookies(fakeEnv(map[string]string{"YTDLP_COOKIES_1": "not-base64!!"}))
	assert.Error(t, err)
}

func TestAssembleCookiesRejectsMissingMarkers(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("just some text"))

	_, err := assembleCookies(fakeEnv(map[string]string{"YTDLP_COOKIES_1": encoded}))
	assert.Error(t, err)
}
