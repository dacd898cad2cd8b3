package repository

import (
	"context"

	"github.com/hszk-dev/mediacache/internal/domain/model"
)

// MediaLinkRepository is the persistent tier of the media cache.
// At most one entry exists per canonical URL.
type MediaLinkRepository interface {
	// GetByURL returns ErrMediaLinkNotFound when no entry exists for url.
	GetByURL(ctx context.Context, url string) (*model.CacheEntry, error)

	// Create returns ErrDuplicateMediaLink if an entry for entry.Key already exists.
	Create(ctx context.Context, entry *model.CacheEntry) error

	// Update replaces the handle fields of an existing entry.
	// Returns ErrMediaLinkNotFound if the entry does not exist.
	Update(ctx context.Context, entry *model.CacheEntry) error

	// IncrementAccess bumps the access counter of an entry.
	IncrementAccess(ctx context.Context, url string) error

	// Delete removes an entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, url string) error

	// ListByPlatformAndType returns the most recently updated entries first.
	ListByPlatformAndType(ctx context.Context, platform model.Platform, assetType model.AssetType, limit int) ([]*model.CacheEntry, error)
}
