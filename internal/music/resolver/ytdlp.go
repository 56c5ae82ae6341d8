package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"
)

type ytdlpFormat struct {
	URL            string  `json:"url"`
	ABR            float64 `json:"abr"`
	TBR            float64 `json:"tbr"`
	ASR            int     `json:"asr"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Ext            string  `json:"ext"`
}

type ytdlpInfo struct {
	Title      string        `json:"title"`
	Duration   float64       `json:"duration"`
	WebpageURL string        `json:"webpage_url"`
	Thumbnail  string        `json:"thumbnail"`
	Uploader   string        `json:"uploader"`
	ViewCount  int64         `json:"view_count"`
	LikeCount  int64         `json:"like_count"`
	URL        string        `json:"url"`
	Formats    []ytdlpFormat `json:"formats"`
}

// resolveYtdlp extracts metadata and formats with the yt-dlp binary.
// cookies, when non-empty, is written to a temp file and passed through.
func (s *Service) resolveYtdlp(ctx context.Context, pageURL string, cookies string) (*TrackInfo, error) {
	args := []string{"-J", "--no-playlist"}

	if cookies != "" {
		f, err := os.CreateTemp("", "gd-cookies-*.txt")
		if err != nil {
			return nil, &Error{Kind: KindNetwork, Op: "ytdlp", Err: err}
		}
		defer os.Remove(f.Name())
		if _, err := f.WriteString(cookies); err != nil {
			f.Close()
			return nil, &Error{Kind: KindNetwork, Op: "ytdlp", Err: err}
		}
		f.Close()
		args = append(args, "--cookies", f.Name())
	}
	args = append(args, pageURL)

	cmd := exec.CommandContext(ctx, s.ytdlpPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, classify("ytdlp", stderr.String(), err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, &Error{Kind: KindUnsupported, Op: "ytdlp", Err: fmt.Errorf("unmarshal: %w", err)}
	}

	track := &TrackInfo{
		PageURL:   info.WebpageURL,
		Title:     info.Title,
		Uploader:  info.Uploader,
		Duration:  time.Duration(info.Duration * float64(time.Second)),
		Thumbnail: info.Thumbnail,
		Views:     info.ViewCount,
		Likes:     info.LikeCount,
	}
	if track.PageURL == "" {
		track.PageURL = pageURL
	}

	for _, f := range info.Formats {
		size := f.Filesize
		if size == 0 {
			size = f.FilesizeApprox
		}
		bitrate := f.ABR
		if bitrate == 0 {
			bitrate = f.TBR
		}
		track.Formats = append(track.Formats, Format{
			URL:        f.URL,
			Bitrate:    bitrate,
			SampleRate: f.ASR,
			Filesize:   size,
			MimeType:   f.Ext,
			HasAudio:   f.ACodec != "" && f.ACodec != "none",
			HasVideo:   f.VCodec != "" && f.VCodec != "none",
		})
	}

	best, err := SelectBestAudio(track.Formats)
	if err != nil {
		// Some extractors put the chosen URL at the top level instead.
		if info.URL != "" {
			track.StreamURL = info.URL
			return track, nil
		}
		return nil, err
	}
	track.StreamURL = best.URL

	return track, nil
}
