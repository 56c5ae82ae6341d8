package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
)

var searchResultPattern = regexp.MustCompile(`"url":"/watch\?v=([a-zA-Z0-9_-]{11})`)

// Search finds video URLs for free-text queries by scraping the results
// page. No API key needed; the first hit wins.
type Search struct {
	BaseURL string
	Client  *http.Client
}

// NewSearch builds a Search using the given HTTP client.
func NewSearch(client *http.Client) *Search {
	return &Search{
		BaseURL: "https://www.youtube.com",
		Client:  client,
	}
}

// FirstVideoURL returns the watch URL of the first search result.
func (s *Search) FirstVideoURL(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf("%s/results?search_query=%s", s.BaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Op: "search", Err: err}
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Op: "search", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Kind: KindNetwork, Op: "search", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Op: "search", Err: err}
	}

	id, ok := firstVideoID(string(body))
	if !ok {
		return "", &Error{Kind: KindNotFound, Op: "search", Err: fmt.Errorf("no video found for %q", query)}
	}
	return s.BaseURL + "/watch?v=" + id, nil
}

func firstVideoID(body string) (string, bool) {
	m := searchResultPattern.FindStringSubmatch(body)
	if len(m) > 1 {
		return m[1], true
	}
	return "", false
}
