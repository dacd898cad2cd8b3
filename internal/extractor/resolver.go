// Package extractor resolves social-media links to local media files using yt-dlp.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/infrastructure/metrics"
)

// Resolver downloads the media behind a URL into a private work directory.
type Resolver struct {
	runner     Runner
	httpClient *http.Client
	config     Config
	limiter    *platformLimiter
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the client used by the metadata fallback.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		r.httpClient = c
	}
}

// NewResolver creates a Resolver. Zero timeouts in cfg take their defaults.
func NewResolver(runner Runner, cfg Config, opts ...Option) *Resolver {
	defaults := DefaultConfig()
	if cfg.PrimaryTimeout <= 0 {
		cfg.PrimaryTimeout = defaults.PrimaryTimeout
	}
	if cfg.AudioTimeout <= 0 {
		cfg.AudioTimeout = defaults.AudioTimeout
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	r := &Resolver{
		runner:     runner,
		httpClient: http.DefaultClient,
		config:     cfg,
		limiter:    newPlatformLimiter(cfg.RatePerMinute),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// mediaInfo is the subset of the info JSON the extractor prints.
type mediaInfo struct {
	Title    string   `json:"title"`
	Duration *float64 `json:"duration"`
}

// attemptResult is the outcome of one extractor invocation.
// Exactly one of info and failure is set.
type attemptResult struct {
	info     *mediaInfo
	failure  string
	timedOut bool
}

func (a attemptResult) ok() bool {
	return a.info != nil
}

// Resolve downloads the media at rawURL. On failure it returns a *model.ClassifiedError
// and removes every file it created. On success the caller owns the descriptor and
// must call Cleanup on it.
//
// Attempt ladder:
//  1. primary download with a muxed-preferring format
//  2. classify; IP block, auth, story and unsupported failures end the ladder
//  3. on "no video formats found", scrape the page's Open Graph media (instagram)
//  4. one retry with a relaxed format, classified again, else Unknown
func (r *Resolver) Resolve(ctx context.Context, rawURL string, platform model.Platform) (*model.AssetDescriptor, error) {
	desc, err := r.resolve(ctx, rawURL, platform)

	outcome := "success"
	if err != nil {
		kind, _ := model.KindOf(err)
		outcome = kind.String()
	}
	metrics.ResolutionsTotal.WithLabelValues(platform.String(), outcome).Inc()

	return desc, err
}

func (r *Resolver) resolve(ctx context.Context, rawURL string, platform model.Platform) (*model.AssetDescriptor, error) {
	if err := r.limiter.Wait(ctx, platform); err != nil {
		return nil, model.NewClassifiedError(model.ErrorKindTimeout, err.Error())
	}

	workDir := filepath.Join(r.config.TempDir, "mediacache-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, model.NewClassifiedError(model.ErrorKindUnknown, fmt.Sprintf("create work directory: %v", err))
	}

	desc, err := r.resolveIn(ctx, rawURL, platform, workDir)
	if err != nil {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			slog.Warn("failed to remove work directory", "dir", workDir, "error", rmErr)
		}
		return nil, err
	}
	return desc, nil
}

func (r *Resolver) resolveIn(ctx context.Context, rawURL string, platform model.Platform, workDir string) (*model.AssetDescriptor, error) {
	cookiesPath := r.config.Cookies.Resolve(platform)

	primary := r.attempt(ctx, metrics.StagePrimary, r.config.PrimaryTimeout,
		r.downloadArgs(rawURL, platform, workDir, primaryFormat(platform), cookiesPath))
	if primary.ok() {
		return r.finish(ctx, rawURL, platform, workDir, cookiesPath, primary.info)
	}
	if primary.timedOut {
		return nil, model.NewClassifiedError(model.ErrorKindTimeout, primary.failure)
	}

	slog.Warn("primary extraction failed", "url", rawURL, "platform", platform, "error", primary.failure)

	if desc, err := r.handleFailure(ctx, rawURL, platform, workDir, cookiesPath, primary.failure); desc != nil || err != nil {
		return desc, err
	}

	if err := resetDir(workDir); err != nil {
		return nil, model.NewClassifiedError(model.ErrorKindUnknown, err.Error())
	}

	retry := r.attempt(ctx, metrics.StageRetry, r.config.PrimaryTimeout,
		r.downloadArgs(rawURL, platform, workDir, retryFormat(platform), cookiesPath))
	if retry.ok() {
		return r.finish(ctx, rawURL, platform, workDir, cookiesPath, retry.info)
	}
	if retry.timedOut {
		return nil, model.NewClassifiedError(model.ErrorKindTimeout, retry.failure)
	}

	slog.Warn("retry extraction failed", "url", rawURL, "platform", platform, "error", retry.failure)

	if desc, err := r.handleFailure(ctx, rawURL, platform, workDir, cookiesPath, retry.failure); desc != nil || err != nil {
		return desc, err
	}
	return nil, model.NewClassifiedError(model.ErrorKindUnknown, retry.failure)
}

// handleFailure applies the classification of one failed attempt. It returns a
// descriptor when the metadata fallback recovered the media, a classified error
// when the ladder must stop, and neither for a generic failure.
func (r *Resolver) handleFailure(ctx context.Context, rawURL string, platform model.Platform, workDir, cookiesPath, failure string) (*model.AssetDescriptor, error) {
	kind, classified := Classify(platform, failure)
	if kind == model.ErrorKindIPBlocked {
		return nil, model.NewClassifiedError(kind, failure)
	}
	if desc, ok := r.tryScrape(ctx, rawURL, platform, workDir, cookiesPath, failure); ok {
		return desc, nil
	}
	if classified {
		return nil, model.NewClassifiedError(kind, failure)
	}
	return nil, nil
}

// tryScrape runs the Open Graph fallback when the failure says the page had no video.
func (r *Resolver) tryScrape(ctx context.Context, rawURL string, platform model.Platform, workDir, cookiesPath, failure string) (*model.AssetDescriptor, bool) {
	if platform != model.PlatformInstagram || !isNoVideoFormats(failure) {
		return nil, false
	}

	desc, err := r.scrapeFallback(ctx, rawURL, platform, workDir, cookiesPath)
	if err != nil {
		metrics.ExtractionAttemptsTotal.WithLabelValues(metrics.StageScrapeFallback, metrics.StatusError).Inc()
		slog.Warn("metadata fallback failed", "url", rawURL, "error", err)
		return nil, false
	}
	metrics.ExtractionAttemptsTotal.WithLabelValues(metrics.StageScrapeFallback, metrics.StatusSuccess).Inc()
	return desc, true
}

// attempt runs the extractor once under its own timeout.
func (r *Resolver) attempt(ctx context.Context, stage string, timeout time.Duration, args []string) attemptResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := r.runner.Run(ctx, args)
	if err != nil {
		metrics.ExtractionAttemptsTotal.WithLabelValues(stage, metrics.StatusError).Inc()
		return attemptResult{
			failure:  err.Error(),
			timedOut: ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded),
		}
	}

	var info mediaInfo
	if err := json.Unmarshal(lastJSONLine(out), &info); err != nil {
		// The download succeeded; the info is only metadata.
		slog.Warn("failed to decode extractor info", "stage", stage, "error", err)
	}
	metrics.ExtractionAttemptsTotal.WithLabelValues(stage, metrics.StatusSuccess).Inc()
	return attemptResult{info: &info}
}

// finish locates the downloaded file and adds the optional thumbnail and audio track.
func (r *Resolver) finish(ctx context.Context, rawURL string, platform model.Platform, workDir, cookiesPath string, info *mediaInfo) (*model.AssetDescriptor, error) {
	file, err := locateOutput(workDir, platform)
	if err != nil {
		return nil, model.NewClassifiedError(model.ErrorKindUnknown, err.Error())
	}

	title := info.Title
	if title == "" {
		title = "Media"
	}

	d := model.AssetDescriptor{
		LocalFilePath:   file,
		Title:           title,
		DurationSeconds: roundDuration(info.Duration),
		ThumbnailPath:   findThumbnail(workDir, file),
		Platform:        platform,
		SourceURL:       rawURL,
		Type:            assetTypeOf(file),
	}

	if d.Type == model.AssetTypeVideo && audioPlatforms[platform] {
		d.AudioPath = r.extractAudio(ctx, rawURL, platform, workDir, cookiesPath)
	}

	return model.NewAssetDescriptor(workDir, d), nil
}

// extractAudio downloads an audio-only copy. Its failure never fails the resolution.
func (r *Resolver) extractAudio(ctx context.Context, rawURL string, platform model.Platform, workDir, cookiesPath string) string {
	res := r.attempt(ctx, metrics.StageAudio, r.config.AudioTimeout,
		r.audioArgs(rawURL, platform, workDir, cookiesPath))
	if !res.ok() {
		slog.Warn("audio extraction failed", "url", rawURL, "timed_out", res.timedOut, "error", res.failure)
		return ""
	}
	return findAudio(workDir)
}

// resetDir removes partial output of a failed attempt.
func resetDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read work directory: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("failed to clear work directory: %w", err)
		}
	}
	return nil
}

func roundDuration(d *float64) *int {
	if d == nil {
		return nil
	}
	v := int(math.Round(*d))
	return &v
}

// lastJSONLine returns the last non-empty line of out, where the info JSON is printed.
func lastJSONLine(out []byte) []byte {
	end := len(out)
	for end > 0 && (out[end-1] == '\n' || out[end-1] == '\r' || out[end-1] == ' ') {
		end--
	}
	start := end
	for start > 0 && out[start-1] != '\n' {
		start--
	}
	return out[start:end]
}
