package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/domain/repository"
	"github.com/hszk-dev/mediacache/internal/infrastructure/cache"
	"github.com/hszk-dev/mediacache/internal/infrastructure/metrics"
)

// CacheService is the two-tier media cache: a bounded in-process tier in front
// of a persistent store keyed by canonical URL.
type CacheService interface {
	// Lookup checks the memory tier, then the persistent tier. Persistent read
	// errors count as a miss. A persistent hit is copied into the memory tier.
	Lookup(ctx context.Context, key string) (*model.CacheEntry, bool)

	// Store upserts entry under entry.Key and refreshes the memory tier.
	// When another writer inserted the key first, the winner's entry is returned.
	// Persistent failures are returned as *model.CacheIOError.
	Store(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error)

	// Invalidate drops key from both tiers, e.g. after its remote handle went stale.
	Invalidate(ctx context.Context, key string) error
}

type cacheService struct {
	memory     *cache.MemoryCache[*model.CacheEntry]
	persistent repository.MediaLinkRepository
	now        func() time.Time
}

// NewCacheService creates a CacheService over the given tiers.
func NewCacheService(memory *cache.MemoryCache[*model.CacheEntry], persistent repository.MediaLinkRepository) CacheService {
	return &cacheService{
		memory:     memory,
		persistent: persistent,
		now:        time.Now,
	}
}

// Lookup implements the read-through path.
func (s *cacheService) Lookup(ctx context.Context, key string) (*model.CacheEntry, bool) {
	if entry, ok := s.memory.Get(key); ok {
		recordCacheOp(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeMemory)
		return entry.Clone(), true
	}
	recordCacheOp(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeMemory)

	entry, err := s.persistent.GetByURL(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrMediaLinkNotFound) {
			recordCacheOp(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypePersistent)
		} else {
			recordCacheOp(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypePersistent)
			slog.Warn("persistent cache lookup failed, treating as miss",
				"key", key,
				"error", err,
			)
		}
		return nil, false
	}
	recordCacheOp(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypePersistent)

	// Best-effort: a failed counter update must not fail the lookup.
	if err := s.persistent.IncrementAccess(ctx, key); err != nil {
		recordCacheOp(metrics.CacheOpIncrement, metrics.CacheStatusError, metrics.CacheTypePersistent)
		slog.Warn("failed to increment access count",
			"key", key,
			"error", err,
		)
	} else {
		recordCacheOp(metrics.CacheOpIncrement, metrics.CacheStatusSuccess, metrics.CacheTypePersistent)
		entry.AccessCount++
		entry.UpdatedAt = s.now()
	}

	s.memory.Set(key, entry.Clone())
	return entry, true
}

// Store implements the write path.
func (s *cacheService) Store(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error) {
	stored, err := s.upsert(ctx, entry.Clone())
	if err != nil {
		recordCacheOp(metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypePersistent)
		// The memory tier still serves the fresh handle for this process.
		s.memory.Set(entry.Key, entry.Clone())
		recordCacheOp(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeMemory)
		return nil, err
	}
	recordCacheOp(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypePersistent)

	s.memory.Set(stored.Key, stored.Clone())
	recordCacheOp(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeMemory)
	return stored, nil
}

func (s *cacheService) upsert(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error) {
	now := s.now()

	existing, err := s.persistent.GetByURL(ctx, entry.Key)
	switch {
	case err == nil:
		entry.CreatedAt = existing.CreatedAt
		entry.AccessCount = existing.AccessCount
		if err := s.persistent.Update(ctx, entry); err != nil {
			return nil, &model.CacheIOError{Op: "update", Err: err}
		}
		return entry, nil
	case !errors.Is(err, repository.ErrMediaLinkNotFound):
		return nil, &model.CacheIOError{Op: "read", Err: err}
	}

	entry.CreatedAt = now
	entry.UpdatedAt = now
	err = s.persistent.Create(ctx, entry)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, repository.ErrDuplicateMediaLink) {
		return nil, &model.CacheIOError{Op: "create", Err: err}
	}

	// Lost the insert race: the unique key decides, so return what the winner wrote.
	winner, err := s.persistent.GetByURL(ctx, entry.Key)
	if err != nil {
		return nil, &model.CacheIOError{Op: "read", Err: err}
	}
	slog.Info("cache entry already created by another writer", "key", entry.Key)
	return winner, nil
}

// Invalidate removes key from both tiers.
func (s *cacheService) Invalidate(ctx context.Context, key string) error {
	s.memory.Delete(key)
	recordCacheOp(metrics.CacheOpDelete, metrics.CacheStatusSuccess, metrics.CacheTypeMemory)

	if err := s.persistent.Delete(ctx, key); err != nil {
		recordCacheOp(metrics.CacheOpDelete, metrics.CacheStatusError, metrics.CacheTypePersistent)
		return &model.CacheIOError{Op: "delete", Err: err}
	}
	recordCacheOp(metrics.CacheOpDelete, metrics.CacheStatusSuccess, metrics.CacheTypePersistent)
	return nil
}

func recordCacheOp(op, status, cacheType string) {
	metrics.CacheOperationsTotal.WithLabelValues(op, status, cacheType).Inc()
}
