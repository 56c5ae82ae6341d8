// Package resolver turns track references (URLs or search text) into
// streamable audio sources and metadata.
package resolver

import (
	"context"
	"net/http"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Format is one downloadable representation of a track.
type Format struct {
	URL        string
	Bitrate    float64 // kbit/s
	SampleRate int
	Filesize   int64
	MimeType   string
	HasAudio   bool
	HasVideo   bool
}

// TrackInfo is the resolved metadata for a track reference.
type TrackInfo struct {
	PageURL   string
	StreamURL string // best audio-only representation
	Title     string
	Uploader  string
	Duration  time.Duration
	Thumbnail string
	Views     int64
	Likes     int64
	Formats   []Format
}

// Options configures a Service.
type Options struct {
	// ProxyURL routes resolver HTTP traffic through a proxy
	// (http, https, socks4 or socks5). Empty means direct.
	ProxyURL string
}

// Service resolves track references. yt-dlp is the primary extractor;
// when the binary is not installed the kkdai client is used instead.
type Service struct {
	httpClient *http.Client
	search     *Search
	ytdlpPath  string
}

// New builds a Service, probing for the yt-dlp binary once.
func New(opts Options) *Service {
	client := NewHTTPClient(opts.ProxyURL)

	path, err := exec.LookPath("yt-dlp")
	if err != nil {
		log.Warn().Str("component", "resolver").Msg("yt-dlp not found, falling back to built-in extractor")
		path = ""
	}

	return &Service{
		httpClient: client,
		search:     NewSearch(client),
		ytdlpPath:  path,
	}
}

var watchURLPattern = regexp.MustCompile(`(?:\?|&)v=([a-zA-Z0-9_-]{11})`)

// Resolve turns a URL or search query into track metadata with a selected
// audio stream. cookies, when non-empty, is a Netscape-format cookie
// payload granting access to restricted tracks.
func (s *Service) Resolve(ctx context.Context, query string, cookies string) (*TrackInfo, error) {
	input := strings.TrimSpace(query)

	pageURL := input
	if !isURL(input) {
		found, err := s.search.FirstVideoURL(ctx, input)
		if err != nil {
			return nil, err
		}
		pageURL = found
	} else {
		pageURL = CleanVideoURL(input)
	}

	if s.ytdlpPath != "" {
		return s.resolveYtdlp(ctx, pageURL, cookies)
	}
	return s.resolveKkdai(ctx, pageURL)
}

// SelectBestAudio ranks audio-only formats by bitrate, then sample rate,
// then file size, all descending, and returns the winner. Video-inclusive
// formats are never candidates.
func SelectBestAudio(formats []Format) (Format, error) {
	candidates := make([]Format, 0, len(formats))
	for _, f := range formats {
		if f.HasAudio && !f.HasVideo && f.URL != "" {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return Format{}, &Error{Kind: KindUnsupported, Op: "select format"}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Bitrate != b.Bitrate {
			return a.Bitrate > b.Bitrate
		}
		if a.SampleRate != b.SampleRate {
			return a.SampleRate > b.SampleRate
		}
		return a.Filesize > b.Filesize
	})
	return candidates[0], nil
}

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// CleanVideoURL strips playlist and tracking params from a watch URL,
// keeping only the video id.
func CleanVideoURL(input string) string {
	m := watchURLPattern.FindStringSubmatch(input)
	if len(m) > 1 {
		return "https://www.youtube.com/watch?v=" + m[1]
	}
	return input
}
