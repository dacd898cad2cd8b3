package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hszk-dev/mediacache/internal/domain/model"
)

var (
	textSidecars  = []string{".vtt", ".srt", ".ass", ".description"}
	imageSidecars = []string{".jpg", ".jpeg", ".png", ".webp"}
)

// imagesArePrimary lists platforms whose posts may be a photo. Their image files
// are candidates for the primary asset instead of being dropped as thumbnails.
var imagesArePrimary = map[model.Platform]bool{
	model.PlatformInstagram: true,
}

// SidecarExtensions returns the lower-case extensions ignored when locating the
// primary output file for platform.
func SidecarExtensions(platform model.Platform) map[string]bool {
	exts := make(map[string]bool, len(textSidecars)+len(imageSidecars))
	for _, e := range textSidecars {
		exts[e] = true
	}
	if !imagesArePrimary[platform] {
		for _, e := range imageSidecars {
			exts[e] = true
		}
	}
	return exts
}

// locateOutput finds the single non-empty, non-sidecar file in dir.
func locateOutput(dir string, platform model.Platform) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read output directory: %w", err)
	}

	sidecars := SidecarExtensions(platform)

	var candidates []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if sidecars[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		candidates = append(candidates, filepath.Join(dir, entry.Name()))
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("no media file in output directory")
	case 1:
		return candidates[0], nil
	default:
		return "", fmt.Errorf("expected one media file, found %d", len(candidates))
	}
}

// findThumbnail returns the first image file in dir other than exclude.
func findThumbnail(dir, exclude string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if path == exclude {
			continue
		}
		if isImageSidecar(entry.Name()) {
			return path
		}
	}
	return ""
}

func isImageSidecar(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range imageSidecars {
		if ext == e {
			return true
		}
	}
	return false
}

// findAudio returns the first non-empty *_audio.* file with an audio extension.
func findAudio(dir string) string {
	matches, err := filepath.Glob(filepath.Join(dir, "*_audio.*"))
	if err != nil {
		return ""
	}
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
			continue
		}
		switch strings.ToLower(filepath.Ext(m)) {
		case ".m4a", ".mp3", ".ogg", ".opus":
			return m
		}
	}
	return ""
}

// assetTypeOf infers the asset type from the file extension.
func assetTypeOf(path string) model.AssetType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".avi", ".mov", ".mkv", ".webm", ".flv":
		return model.AssetTypeVideo
	case ".jpg", ".jpeg", ".png", ".webp":
		return model.AssetTypePhoto
	case ".m4a", ".mp3", ".ogg", ".opus", ".wav":
		return model.AssetTypeAudio
	default:
		return model.AssetTypeDocument
	}
}
