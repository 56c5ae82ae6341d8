// Package config loads process configuration from the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all runtime settings.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	// ResolverProxy is an optional proxy URL (http, socks4 or socks5) used
	// by the media resolver's HTTP client.
	ResolverProxy string `env:"RESOLVER_PROXY"`

	VoiceConnectTimeout  time.Duration `env:"VOICE_CONNECT_TIMEOUT" envDefault:"60s"`
	IdleTimeout          time.Duration `env:"IDLE_TIMEOUT" envDefault:"180s"`
	PanelRefreshInterval time.Duration `env:"PANEL_REFRESH_INTERVAL" envDefault:"5s"`

	// Cookies is the decoded cookie payload assembled from the
	// YTDLP_COOKIES_n slots. Empty when no cookies are configured.
	Cookies string `env:"-"`
}

// Required markers for a usable cookie payload.
const (
	cookieHeaderMarker = "# Netscape HTTP Cookie File"
	cookieDomainMarker = "youtube.com"
)

const maxCookieChunks = 10

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using system environment")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cookies, err := assembleCookies(os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("cookie blob: %w", err)
	}
	cfg.Cookies = cookies

	return cfg, nil
}

// assembleCookies concatenates the numbered base64 cookie slots
// (YTDLP_COOKIES_1, YTDLP_COOKIES_2, ...) into one payload. Hosting panels
// cap single env values, hence the chunking. The decoded payload must carry
// the Netscape header and the youtube.com domain to be considered usable.
func assembleCookies(getenv func(string) string) (string, error) {
	var b strings.Builder
	for i := 1; i <= maxCookieChunks; i++ {
		chunk := getenv(fmt.Sprintf("YTDLP_COOKIES_%d", i))
		if chunk == "" {
			break
		}
		b.WriteString(strings.TrimSpace(chunk))
	}
	if b.Len() == 0 {
		return "", nil
	}

	decoded, err := base64.StdEncoding.DecodeString(b.String())
	if err != nil {
		return "", fmt.Errorf("invalid base64: %w", err)
	}

	payload := string(decoded)
	if !strings.Contains(payload, cookieHeaderMarker) || !strings.Contains(payload, cookieDomainMarker) {
		return "", errors.New("cookie payload missing required markers")
	}
	return payload, nil
}
