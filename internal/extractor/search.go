package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hszk-dev/mediacache/internal/domain/model"
)

// MaxSearchResults caps a single search.
const MaxSearchResults = 10

// Searcher runs text queries against the video platform's search.
// It does no caching.
type Searcher struct {
	runner  Runner
	timeout time.Duration
}

// NewSearcher creates a Searcher whose queries are bounded by timeout.
func NewSearcher(runner Runner, timeout time.Duration) *Searcher {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Searcher{runner: runner, timeout: timeout}
}

type searchEntry struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	PageURL   string   `json:"webpage_url"`
	Duration  *float64 `json:"duration"`
	ViewCount *int64   `json:"view_count"`
	Uploader  string   `json:"uploader"`
	Channel   string   `json:"channel"`
}

type searchPlaylist struct {
	Entries []*searchEntry `json:"entries"`
}

// Search returns up to maxResults videos for query, capped at MaxSearchResults.
func (s *Searcher) Search(ctx context.Context, query string, maxResults int) ([]model.VideoSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.ErrEmptyQuery
	}
	if maxResults <= 0 || maxResults > MaxSearchResults {
		maxResults = MaxSearchResults
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := []string{
		"--quiet",
		"--no-warnings",
		"--flat-playlist",
		"--dump-single-json",
		fmt.Sprintf("ytsearch%d:%s", maxResults, query),
	}

	out, err := s.runner.Run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var playlist searchPlaylist
	if err := json.Unmarshal(out, &playlist); err != nil {
		return nil, fmt.Errorf("failed to decode search result: %w", err)
	}

	videos := make([]model.VideoSummary, 0, len(playlist.Entries))
	for _, e := range playlist.Entries {
		if e == nil || e.ID == "" {
			continue
		}
		videos = append(videos, e.summary())
		if len(videos) == maxResults {
			break
		}
	}
	return videos, nil
}

func (e *searchEntry) summary() model.VideoSummary {
	v := model.VideoSummary{
		ID:       e.ID,
		Title:    e.Title,
		URL:      e.PageURL,
		Uploader: e.Uploader,
	}
	if v.Title == "" {
		v.Title = "Unknown"
	}
	if v.URL == "" {
		v.URL = e.URL
	}
	if !strings.HasPrefix(v.URL, "http") {
		v.URL = "https://www.youtube.com/watch?v=" + e.ID
	}
	if v.Uploader == "" {
		v.Uploader = e.Channel
	}
	if e.Duration != nil {
		v.DurationSeconds = int(math.Round(*e.Duration))
	}
	if e.ViewCount != nil {
		v.ViewCount = *e.ViewCount
	}
	return v
}
