package extractor

import (
	"bufio"
	"log/slog"
	"os"
	"strings"

	"github.com/hszk-dev/mediacache/internal/domain/model"
)

// CookieConfig lists session-cookie files in Netscape format.
type CookieConfig struct {
	OverrideFile  string // used for every platform when set and present
	YouTubeFile   string
	InstagramFile string
	FallbackFile  string // shared by all platforms
	DefaultFile   string // project-relative default, e.g. cookies.txt
}

// cookieDomains lists the platforms that authenticate with a cookie file.
var cookieDomains = map[model.Platform]string{
	model.PlatformYouTube:   "youtube.com",
	model.PlatformInstagram: "instagram.com",
}

// Resolve returns the first existing regular file in priority order:
// override, platform file, shared fallback, project default.
// It returns "" when the platform does not use cookies or no candidate exists.
func (c CookieConfig) Resolve(platform model.Platform) string {
	if _, ok := cookieDomains[platform]; !ok {
		return ""
	}

	var platformFile string
	switch platform {
	case model.PlatformYouTube:
		platformFile = c.YouTubeFile
	case model.PlatformInstagram:
		platformFile = c.InstagramFile
	}

	for _, candidate := range []string{c.OverrideFile, platformFile, c.FallbackFile, c.DefaultFile} {
		if candidate == "" {
			continue
		}
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

// CookieHeader builds a Cookie header value from the entries of a Netscape cookie
// file whose domain contains domain. Unreadable files yield "".
func CookieHeader(path, domain string) string {
	if path == "" {
		return ""
	}

	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	var pairs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// domain, include-subdomains, path, secure, expiry, name, value
		parts := strings.Split(line, "\t")
		if len(parts) < 7 {
			continue
		}
		if !strings.Contains(parts[0], domain) {
			continue
		}
		name, value := parts[5], parts[6]
		if name != "" && value != "" {
			pairs = append(pairs, name+"="+value)
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("failed to read cookie file", "path", path, "error", err)
		return ""
	}

	return strings.Join(pairs, "; ")
}
