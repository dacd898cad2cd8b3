package extractor

import (
	"strings"

	"github.com/hszk-dev/mediacache/internal/domain/model"
)

// markerSet holds the error-text markers one platform's failures are matched against.
type markerSet struct {
	auth        []string
	story       bool
	unsupported []string
}

var (
	instagramMarkers = markerSet{
		auth: []string{
			"login required",
			"rate-limit",
			"requested content is not available",
			"use --cookies",
			"private",
			"forbidden",
			"http error 403",
			"unauthorized",
		},
		story:       true,
		unsupported: []string{"unsupported url"},
	}

	youtubeMarkers = markerSet{
		auth: []string{
			"sign in to confirm you're not a bot",
			"sign in to confirm you’re not a bot",
			"use --cookies",
			"login required",
			"this video is private",
			"http error 403",
			"forbidden",
		},
		unsupported: []string{"unsupported url"},
	}

	// TikTok answers links that redirect to its explore page with "explore".
	tiktokMarkers = markerSet{
		auth:        []string{"login required", "use --cookies", "http error 403", "forbidden"},
		unsupported: []string{"unsupported url", "explore"},
	}

	defaultMarkers = markerSet{
		auth:        []string{"login required", "use --cookies", "http error 403", "forbidden"},
		unsupported: []string{"unsupported url"},
	}
)

func markersFor(platform model.Platform) markerSet {
	switch platform {
	case model.PlatformInstagram:
		return instagramMarkers
	case model.PlatformYouTube:
		return youtubeMarkers
	case model.PlatformTikTok:
		return tiktokMarkers
	default:
		return defaultMarkers
	}
}

// Classify maps an extractor error message from platform to an error kind.
// Checks run in priority order IP block > auth > story > unsupported; the first match wins.
// It returns false for a generic failure that is worth one relaxed retry.
func Classify(platform model.Platform, message string) (model.ErrorKind, bool) {
	msg := strings.ToLower(message)
	markers := markersFor(platform)

	if isIPBlocked(msg) {
		return model.ErrorKindIPBlocked, true
	}

	if containsAny(msg, markers.auth) {
		return model.ErrorKindAuthRequired, true
	}

	if markers.story && strings.Contains(msg, "story") &&
		(strings.Contains(msg, "not available") || strings.Contains(msg, "not found")) {
		return model.ErrorKindStoryUnavailable, true
	}

	if containsAny(msg, markers.unsupported) {
		return model.ErrorKindUnsupported, true
	}

	return "", false
}

func containsAny(msg string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isIPBlocked(msg string) bool {
	if strings.Contains(msg, "ip address is blocked") {
		return true
	}
	return strings.Contains(msg, "ip address") && strings.Contains(msg, "blocked")
}

// isNoVideoFormats reports whether the page had no downloadable video, which for
// photo posts means the Open Graph image is the only way to get the media.
func isNoVideoFormats(message string) bool {
	return strings.Contains(strings.ToLower(message), "no video formats found")
}
