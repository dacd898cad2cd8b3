package model

import (
	"os"
	"time"
)

// AssetType is the kind of media a cached handle refers to.
type AssetType string

const (
	AssetTypeVideo    AssetType = "video"
	AssetTypeAudio    AssetType = "audio"
	AssetTypePhoto    AssetType = "photo"
	AssetTypeDocument AssetType = "document"
)

func (t AssetType) IsValid() bool {
	switch t {
	case AssetTypeVideo, AssetTypeAudio, AssetTypePhoto, AssetTypeDocument:
		return true
	default:
		return false
	}
}

func (t AssetType) String() string {
	return string(t)
}

// AssetDescriptor is the result of a successful resolution.
// The caller owns it once returned and must call Cleanup after the files
// have been persisted or forwarded.
type AssetDescriptor struct {
	LocalFilePath   string
	Title           string
	DurationSeconds *int
	ThumbnailPath   string
	AudioPath       string
	Platform        Platform
	SourceURL       string
	Type            AssetType

	workDir string
}

// NewAssetDescriptor binds a descriptor to the private work directory holding its files.
func NewAssetDescriptor(workDir string, d AssetDescriptor) *AssetDescriptor {
	d.workDir = workDir
	return &d
}

// WorkDir returns the directory that holds the descriptor's files.
func (d *AssetDescriptor) WorkDir() string {
	return d.workDir
}

// HasAudio reports whether a separate audio-only file was extracted.
func (d *AssetDescriptor) HasAudio() bool {
	return d.AudioPath != ""
}

// Cleanup removes every temporary file that belongs to the descriptor.
func (d *AssetDescriptor) Cleanup() error {
	if d == nil || d.workDir == "" {
		return nil
	}
	return os.RemoveAll(d.workDir)
}

// CacheEntry maps a canonical URL to a durable handle issued by the delivery surface.
// RemoteAssetID is opaque and must round-trip unchanged.
type CacheEntry struct {
	Key             string
	Platform        Platform
	RemoteAssetID   string
	RemoteUniqueID  string
	AssetType       AssetType
	Title           string
	ThumbnailID     string
	SizeBytes       *int64
	DurationSeconds *int
	AccessCount     int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy so callers cannot mutate a value held by the cache.
func (e *CacheEntry) Clone() *CacheEntry {
	if e == nil {
		return nil
	}
	c := *e
	if e.SizeBytes != nil {
		v := *e.SizeBytes
		c.SizeBytes = &v
	}
	if e.DurationSeconds != nil {
		v := *e.DurationSeconds
		c.DurationSeconds = &v
	}
	return &c
}
