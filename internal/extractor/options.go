package extractor

import (
	"path/filepath"
	"time"

	"github.com/hszk-dev/mediacache/internal/domain/model"
)

// Format selectors passed to yt-dlp.
const (
	// PrimaryFormat prefers containers that already carry both audio and video,
	// so no local merge is needed.
	PrimaryFormat = "best[ext=mp4][vcodec!=none][acodec!=none]/best[ext=mp4]/best[vcodec!=none][acodec!=none]/best"
	RetryFormat   = "best[ext=mp4]/best"
	// BestFormat also matches photo posts.
	BestFormat  = "best"
	AudioFormat = "bestaudio[ext=m4a]/bestaudio[ext=mp3]/bestaudio"
)

// DefaultUserAgent is a desktop browser user agent sent by the extractor and the page scraper.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const (
	mediaOutputTemplate = "%(title)s.%(ext)s"
	audioOutputTemplate = "%(title)s_audio.%(ext)s"
)

// Config holds configuration for the Resolver.
type Config struct {
	// TempDir is the parent of the per-attempt work directories.
	// If empty, os.TempDir() is used.
	TempDir string

	// PrimaryTimeout bounds each full download attempt.
	// Default: 300s
	PrimaryTimeout time.Duration

	// AudioTimeout bounds the secondary audio-only download.
	// Default: 180s
	AudioTimeout time.Duration

	// FetchTimeout bounds each HTTP request of the metadata fallback.
	// Default: 45s
	FetchTimeout time.Duration

	// RatePerMinute caps extractor invocations per platform. Zero disables throttling.
	RatePerMinute int

	UserAgent string
	Cookies   CookieConfig
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		PrimaryTimeout: 300 * time.Second,
		AudioTimeout:   180 * time.Second,
		FetchTimeout:   45 * time.Second,
		UserAgent:      DefaultUserAgent,
	}
}

// thumbnailPlatforms get a thumbnail written next to the video.
var thumbnailPlatforms = map[model.Platform]bool{
	model.PlatformYouTube: true,
	model.PlatformTikTok:  true,
}

// audioPlatforms get a secondary audio-only download when the primary asset is a video.
var audioPlatforms = map[model.Platform]bool{
	model.PlatformYouTube:   true,
	model.PlatformInstagram: true,
	model.PlatformTikTok:    true,
}

// primaryFormat returns the format selector of the first attempt.
func primaryFormat(platform model.Platform) string {
	if platform == model.PlatformInstagram {
		return BestFormat
	}
	return PrimaryFormat
}

// retryFormat returns the relaxed selector of the second attempt.
func retryFormat(platform model.Platform) string {
	if platform == model.PlatformInstagram {
		return BestFormat
	}
	return RetryFormat
}

// downloadArgs builds the yt-dlp arguments for a media download.
// The info JSON is printed to stdout after the download completes.
func (r *Resolver) downloadArgs(url string, platform model.Platform, workDir, format, cookiesPath string) []string {
	args := r.commonArgs(platform, cookiesPath)
	args = append(args,
		"-f", format,
		"-o", filepath.Join(workDir, mediaOutputTemplate),
	)
	if thumbnailPlatforms[platform] {
		args = append(args, "--write-thumbnail", "--no-write-subs", "--no-write-auto-subs")
	}
	return append(args, "--", url)
}

// audioArgs builds the yt-dlp arguments for the secondary audio-only download.
func (r *Resolver) audioArgs(url string, platform model.Platform, workDir, cookiesPath string) []string {
	args := r.commonArgs(platform, cookiesPath)
	args = append(args,
		"-f", AudioFormat,
		"-o", filepath.Join(workDir, audioOutputTemplate),
	)
	return append(args, "--", url)
}

func (r *Resolver) commonArgs(platform model.Platform, cookiesPath string) []string {
	args := []string{
		"--quiet",
		"--no-warnings",
		"--no-progress",
		"--no-playlist",
		"--dump-json",
		"--no-simulate",
		"--user-agent", r.config.UserAgent,
	}

	switch platform {
	case model.PlatformYouTube:
		args = append(args, "--extractor-args", "youtube:player_client=android_sdkless,web")
	case model.PlatformInstagram:
		args = append(args, "--no-check-certificates")
	}

	if cookiesPath != "" {
		args = append(args, "--cookies", cookiesPath)
	}
	return args
}
