package model

import (
	"net/url"
	"regexp"
	"strings"
)

// Platform identifies the origin platform of a media link.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
)

func (p Platform) String() string {
	return string(p)
}

// IsValid reports whether p is one of the supported platforms.
func (p Platform) IsValid() bool {
	for _, rule := range platformRules {
		if rule.platform == p {
			return true
		}
	}
	return false
}

type platformRule struct {
	platform Platform
	patterns []*regexp.Regexp
}

// platformRules is ordered: the first platform with a matching pattern wins.
var platformRules = []platformRule{
	{
		platform: PlatformYouTube,
		patterns: compileAll(
			`(?:https?://)?(?:www\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`,
			`(?:https?://)?(?:www\.)?youtube\.com/watch\?.*&v=([a-zA-Z0-9_-]{11})`,
			`(?:https?://)?(?:www\.)?youtu\.be/([a-zA-Z0-9_-]{11})`,
			`(?:https?://)?(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]{11})`,
			`(?:https?://)?(?:m\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`,
			`(?:https?://)?(?:m\.)?youtube\.com/watch\?.*&v=([a-zA-Z0-9_-]{11})`,
		),
	},
	{
		platform: PlatformInstagram,
		patterns: compileAll(
			`(?:https?://)?(?:www\.)?instagram\.com/(?:p|reel|tv)/([a-zA-Z0-9_-]+)`,
			`(?:https?://)?(?:www\.)?instagram\.com/([a-zA-Z0-9_.]+)/`,
			`(?:https?://)?(?:www\.)?instagram\.com/stories/([a-zA-Z0-9_.]+)/(\d+)`,
		),
	},
	{
		platform: PlatformTikTok,
		patterns: compileAll(
			`(?:https?://)?(?:www\.)?(?:vm\.|vt\.)?tiktok\.com/([a-zA-Z0-9]+)`,
			`(?:https?://)?(?:www\.)?tiktok\.com/@[^/]+/video/(\d+)`,
		),
	},
	{
		platform: PlatformTwitter,
		patterns: compileAll(
			`(?:https?://)?(?:www\.)?(?:twitter\.com|x\.com)/[^/]+/status/(\d+)`,
		),
	},
	{
		platform: PlatformFacebook,
		patterns: compileAll(
			`(?:https?://)?(?:www\.)?facebook\.com/[^/]+/videos/(\d+)`,
			`(?:https?://)?(?:www\.)?fb\.watch/([a-zA-Z0-9_-]+)`,
		),
	},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

// DetectPlatform maps a URL to its platform.
// Returns false when no platform pattern matches; callers must treat the link as unsupported.
func DetectPlatform(rawURL string) (Platform, bool) {
	rawURL = strings.TrimSpace(rawURL)
	for _, rule := range platformRules {
		for _, re := range rule.patterns {
			if re.MatchString(rawURL) {
				return rule.platform, true
			}
		}
	}
	return "", false
}

var validURLPattern = regexp.MustCompile(
	`(?i)^https?://` +
		`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?|` +
		`localhost|` +
		`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
		`(?::\d+)?` +
		`(?:/?|[/?]\S+)$`,
)

// IsValidURL checks scheme and host syntax only. It performs no I/O.
func IsValidURL(rawURL string) bool {
	return validURLPattern.MatchString(rawURL)
}

var (
	youtubeIDPattern     = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	instagramPostPattern = regexp.MustCompile(`^/(p|reel|tv)/([a-zA-Z0-9_-]+)`)
	tiktokVideoPattern   = regexp.MustCompile(`^/@([^/]+)/video/(\d+)`)
	twitterStatusPattern = regexp.MustCompile(`^/([^/]+)/status/(\d+)`)
)

// CanonicalURL returns the cache key for a media link.
// Short-link and mobile forms are folded into their desktop form when that is possible
// without a network call; otherwise the trimmed input is returned unchanged.
func CanonicalURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)

	withScheme := trimmed
	if !strings.Contains(withScheme, "://") {
		withScheme = "https://" + withScheme
	}

	u, err := url.Parse(withScheme)
	if err != nil || u.Host == "" {
		return trimmed
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	host = strings.TrimPrefix(host, "mobile.")

	switch host {
	case "youtube.com", "youtu.be":
		if id := youtubeVideoID(host, u); id != "" {
			return "https://www.youtube.com/watch?v=" + id
		}
	case "instagram.com":
		if m := instagramPostPattern.FindStringSubmatch(u.Path); m != nil {
			return "https://www.instagram.com/" + m[1] + "/" + m[2] + "/"
		}
	case "tiktok.com":
		if m := tiktokVideoPattern.FindStringSubmatch(u.Path); m != nil {
			return "https://www.tiktok.com/@" + m[1] + "/video/" + m[2]
		}
	case "twitter.com", "x.com":
		if m := twitterStatusPattern.FindStringSubmatch(u.Path); m != nil {
			return "https://twitter.com/" + m[1] + "/status/" + m[2]
		}
	}

	return trimmed
}

func youtubeVideoID(host string, u *url.URL) string {
	var id string
	switch {
	case host == "youtu.be":
		id = strings.Trim(u.Path, "/")
	case strings.HasPrefix(u.Path, "/shorts/"):
		id = strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/")
	case u.Path == "/watch":
		id = u.Query().Get("v")
	}
	if !youtubeIDPattern.MatchString(id) {
		return ""
	}
	return id
}
