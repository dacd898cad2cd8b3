// Package recognizer identifies music in short audio or video clips.
package recognizer

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/infrastructure/metrics"
	"github.com/hszk-dev/mediacache/internal/transcoder"
)

const (
	unknownTitle  = "Unknown"
	unknownArtist = "Unknown artist"
)

// VideoSearcher finds playable videos for a text query.
type VideoSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.VideoSummary, error)
}

// Config holds configuration for the Recognizer.
type Config struct {
	// Timeout bounds the provider call.
	// Default: 30s
	Timeout time.Duration
	// TempDir holds the normalized clip while it is uploaded.
	TempDir string
}

// Recognizer turns a clip into a MusicMatch.
type Recognizer struct {
	provider   Provider
	searcher   VideoSearcher
	transcoder transcoder.Transcoder
	config     Config
}

// NewRecognizer creates a Recognizer. A nil transcoder sends clips to the provider unchanged.
func NewRecognizer(provider Provider, searcher VideoSearcher, tc transcoder.Transcoder, cfg Config) *Recognizer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Recognizer{
		provider:   provider,
		searcher:   searcher,
		transcoder: tc,
		config:     cfg,
	}
}

// Recognize identifies the track in clipPath. It returns nil when nothing was
// recognised or any step failed; errors never escape.
func (r *Recognizer) Recognize(ctx context.Context, clipPath string) *model.MusicMatch {
	match, failed := r.recognize(ctx, clipPath)

	outcome := metrics.RecognitionNoMatch
	switch {
	case failed:
		outcome = metrics.RecognitionError
	case match == nil:
	case match.HasURL():
		outcome = metrics.RecognitionMatchedWithURL
	default:
		outcome = metrics.RecognitionMatched
	}
	metrics.RecognitionsTotal.WithLabelValues(outcome).Inc()

	return match
}

// recognize reports failed when a step errored rather than finding no track.
func (r *Recognizer) recognize(ctx context.Context, clipPath string) (*model.MusicMatch, bool) {
	if _, err := os.Stat(clipPath); err != nil {
		slog.Error("clip not found", "path", clipPath, "error", err)
		return nil, true
	}

	uploadPath := clipPath
	if r.transcoder != nil {
		dir, err := os.MkdirTemp(r.config.TempDir, "recognize-")
		if err != nil {
			slog.Error("failed to create clip directory", "error", err)
			return nil, true
		}
		defer os.RemoveAll(dir)

		clip, err := r.transcoder.ExtractAudioClip(ctx, clipPath, dir)
		if err != nil {
			// The provider may still accept the original container.
			slog.Warn("clip normalization failed, sending original", "path", clipPath, "error", err)
		} else {
			uploadPath = clip.Path
		}
	}

	providerCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	body, err := r.provider.Identify(providerCtx, uploadPath)
	cancel()
	if err != nil {
		slog.Error("recognition provider failed", "error", err)
		return nil, true
	}

	track, err := Normalize(body)
	if err != nil {
		slog.Error("unrecognised provider response", "error", err)
		return nil, true
	}
	if track.IsEmpty() {
		slog.Info("no track recognised", "path", clipPath)
		return nil, false
	}

	match := &model.MusicMatch{
		Title:       track.Title,
		Artist:      track.Artist,
		Album:       track.Album,
		ReleaseDate: track.ReleaseDate,
	}
	if match.Title == "" {
		match.Title = unknownTitle
	}
	if match.Artist == "" {
		match.Artist = unknownArtist
	}
	match.SearchQuery = match.Artist + " " + match.Title
	match.YouTubeURL = r.findVideo(ctx, match.SearchQuery)

	slog.Info("track recognised", "shape", track.Shape.String(), "artist", match.Artist, "title", match.Title)
	return match, false
}

// findVideo returns the first search result's URL, or "" when the search fails or is empty.
func (r *Recognizer) findVideo(ctx context.Context, query string) string {
	if r.searcher == nil {
		return ""
	}
	videos, err := r.searcher.Search(ctx, query, 1)
	if err != nil {
		slog.Warn("video search for recognised track failed", "query", query, "error", err)
		return ""
	}
	if len(videos) == 0 {
		return ""
	}
	return videos[0].URL
}
