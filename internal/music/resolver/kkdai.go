package resolver

import (
	"context"
	"sort"
	"strconv"
	"strings"

	youtube "github.com/kkdai/youtube/v2"
)

// resolveKkdai extracts metadata with the in-process client. Used when the
// yt-dlp binary is unavailable; cannot use cookie credentials, so
// restricted tracks stay restricted on this path.
func (s *Service) resolveKkdai(ctx context.Context, pageURL string) (*TrackInfo, error) {
	client := youtube.Client{HTTPClient: s.httpClient}

	video, err := client.GetVideoContext(ctx, pageURL)
	if err != nil {
		return nil, classify("kkdai", err.Error(), err)
	}

	track := &TrackInfo{
		PageURL:  pageURL,
		Title:    video.Title,
		Uploader: video.Author,
		Duration: video.Duration,
		Views:    int64(video.Views),
	}
	if len(video.Thumbnails) > 0 {
		track.Thumbnail = video.Thumbnails[len(video.Thumbnails)-1].URL
	}

	audio := make([]youtube.Format, 0, len(video.Formats))
	for _, f := range video.Formats {
		isAudio := strings.HasPrefix(f.MimeType, "audio/")
		sampleRate, _ := strconv.Atoi(f.AudioSampleRate)
		track.Formats = append(track.Formats, Format{
			URL:        f.URL,
			Bitrate:    float64(f.Bitrate) / 1000, // bit/s → kbit/s
			SampleRate: sampleRate,
			Filesize:   f.ContentLength,
			MimeType:   f.MimeType,
			HasAudio:   isAudio || f.AudioChannels > 0,
			HasVideo:   !isAudio,
		})
		if isAudio {
			audio = append(audio, f)
		}
	}
	if len(audio) == 0 {
		return nil, &Error{Kind: KindUnsupported, Op: "kkdai"}
	}

	// Same ranking as SelectBestAudio, applied to the client's own format
	// type because the stream URL must be derived from it.
	sort.SliceStable(audio, func(i, j int) bool {
		a, b := audio[i], audio[j]
		if a.Bitrate != b.Bitrate {
			return a.Bitrate > b.Bitrate
		}
		ar, _ := strconv.Atoi(a.AudioSampleRate)
		br, _ := strconv.Atoi(b.AudioSampleRate)
		if ar != br {
			return ar > br
		}
		return a.ContentLength > b.ContentLength
	})

	best := audio[0]
	streamURL, err := client.GetStreamURLContext(ctx, video, &best)
	if err != nil {
		return nil, classify("kkdai", err.Error(), err)
	}
	track.StreamURL = streamURL

	return track, nil
}
