package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/domain/repository"
	"github.com/hszk-dev/mediacache/internal/infrastructure/metrics"
	"github.com/hszk-dev/mediacache/internal/infrastructure/storage"
)

// AudioCacheKey is the cache key of the audio-only companion of a video entry.
func AudioCacheKey(canonicalURL string) string {
	return canonicalURL + "#audio"
}

// PublishService resolves links and publishes the result to the delivery surface.
type PublishService interface {
	// Fetch returns the cache entry for rawURL, resolving and uploading on a miss.
	// Concurrent calls for the same canonical URL share one resolution.
	Fetch(ctx context.Context, rawURL string) (*model.CacheEntry, error)

	// Cached returns the entry for a canonical key when its stored object still exists.
	// An entry whose object is gone is a stale handle: it is invalidated and reported as a miss.
	Cached(ctx context.Context, key string) (*model.CacheEntry, bool)

	// Evict invalidates the entry for a canonical key and deletes its stored object.
	Evict(ctx context.Context, key string) error

	// ProcessTask handles a resolve task from the message queue.
	// Returns nil on success or permanent failure (classified or invalid link).
	// Returns error for transient failures that should trigger a retry.
	ProcessTask(ctx context.Context, task repository.ResolveTask) error
}

type publishService struct {
	media   MediaService
	cache   CacheService
	storage repository.ObjectStorage
	sfGroup singleflight.Group
}

// NewPublishService creates a new PublishService instance.
func NewPublishService(media MediaService, cacheSvc CacheService, store repository.ObjectStorage) PublishService {
	return &publishService{
		media:   media,
		cache:   cacheSvc,
		storage: store,
	}
}

// Fetch implements the cache-aside pattern with in-flight de-duplication.
func (s *publishService) Fetch(ctx context.Context, rawURL string) (*model.CacheEntry, error) {
	d := s.media.Detect(rawURL)
	if !d.Valid {
		return nil, ErrInvalidURL
	}
	if !d.Supported {
		return nil, ErrUnsupportedURL
	}

	// Detached from the caller; the resolver applies its own timeouts.
	ch := s.sfGroup.DoChan(d.CanonicalURL, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), d)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s: %w", d.CanonicalURL, ctx.Err())
	case res := <-ch:
		if res.Shared {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
		} else {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.CacheEntry).Clone(), nil
	}
}

func (s *publishService) fetch(ctx context.Context, d Detection) (*model.CacheEntry, error) {
	if entry, ok := s.Cached(ctx, d.CanonicalURL); ok {
		return entry, nil
	}

	desc, err := s.media.ResolveMedia(ctx, d.CanonicalURL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := desc.Cleanup(); err != nil {
			slog.Warn("failed to remove resolved files", "dir", desc.WorkDir(), "error", err)
		}
	}()

	entry, audio, err := s.publish(ctx, d.CanonicalURL, desc)
	if err != nil {
		return nil, err
	}

	if audio != nil {
		if _, err := s.cache.Store(ctx, audio); err != nil {
			slog.Warn("failed to cache audio entry", "key", audio.Key, "error", err)
		}
	}

	stored, err := s.cache.Store(ctx, entry)
	if err != nil {
		// The upload succeeded; the caller can still use the handle uncached.
		slog.Warn("failed to cache media entry", "key", entry.Key, "error", err)
		return entry, nil
	}
	return stored, nil
}

func (s *publishService) Cached(ctx context.Context, key string) (*model.CacheEntry, bool) {
	entry, ok := s.cache.Lookup(ctx, key)
	if !ok {
		return nil, false
	}
	if !storage.IsObjectKey(entry.RemoteAssetID) {
		return entry, true
	}

	exists, err := s.storage.Exists(ctx, entry.RemoteAssetID)
	if err != nil {
		// Only a confirmed missing object marks the handle stale.
		slog.Warn("failed to check stored object", "key", key, "remote_asset_id", entry.RemoteAssetID, "error", err)
		return entry, true
	}
	if exists {
		return entry, true
	}

	slog.Info("stale cache handle", "key", key, "remote_asset_id", entry.RemoteAssetID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		slog.Warn("failed to invalidate stale handle", "key", key, "error", err)
	}
	return nil, false
}

func (s *publishService) Evict(ctx context.Context, key string) error {
	entry, found := s.cache.Lookup(ctx, key)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		return err
	}
	if !found || !storage.IsObjectKey(entry.RemoteAssetID) {
		return nil
	}

	if err := s.storage.Delete(ctx, entry.RemoteAssetID); err != nil {
		slog.Warn("failed to delete stored object", "key", key, "remote_asset_id", entry.RemoteAssetID, "error", err)
	}
	return nil
}

// publish uploads the primary file, and the thumbnail and audio track when present.
func (s *publishService) publish(ctx context.Context, key string, desc *model.AssetDescriptor) (*model.CacheEntry, *model.CacheEntry, error) {
	resolutionID := uuid.NewString()
	platform := desc.Platform.String()

	primaryKey := storage.ObjectKey(platform, resolutionID, desc.LocalFilePath)
	etag, size, err := s.uploadFile(ctx, desc.LocalFilePath, primaryKey)
	if err != nil {
		return nil, nil, fmt.Errorf("upload media: %w", err)
	}

	entry := &model.CacheEntry{
		Key:             key,
		Platform:        desc.Platform,
		RemoteAssetID:   primaryKey,
		RemoteUniqueID:  etag,
		AssetType:       desc.Type,
		Title:           desc.Title,
		SizeBytes:       &size,
		DurationSeconds: desc.DurationSeconds,
	}

	if desc.ThumbnailPath != "" {
		thumbKey := storage.ObjectKey(platform, resolutionID, desc.ThumbnailPath)
		if _, _, err := s.uploadFile(ctx, desc.ThumbnailPath, thumbKey); err != nil {
			slog.Warn("failed to upload thumbnail", "key", thumbKey, "error", err)
		} else {
			entry.ThumbnailID = thumbKey
		}
	}

	if !desc.HasAudio() {
		return entry, nil, nil
	}

	audioKey := storage.ObjectKey(platform, resolutionID, desc.AudioPath)
	audioETag, audioSize, err := s.uploadFile(ctx, desc.AudioPath, audioKey)
	if err != nil {
		slog.Warn("failed to upload audio track", "key", audioKey, "error", err)
		return entry, nil, nil
	}

	audio := &model.CacheEntry{
		Key:             AudioCacheKey(key),
		Platform:        desc.Platform,
		RemoteAssetID:   audioKey,
		RemoteUniqueID:  audioETag,
		AssetType:       model.AssetTypeAudio,
		Title:           desc.Title,
		ThumbnailID:     entry.ThumbnailID,
		SizeBytes:       &audioSize,
		DurationSeconds: desc.DurationSeconds,
	}
	return entry, audio, nil
}

// uploadFile uploads a single file to object storage.
func (s *publishService) uploadFile(ctx context.Context, localPath, key string) (string, int64, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", 0, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat file: %w", err)
	}

	etag, err := s.storage.Upload(ctx, key, file, info.Size(), storage.ContentType(localPath))
	if err != nil {
		return "", 0, fmt.Errorf("storage upload: %w", err)
	}
	return etag, info.Size(), nil
}

// ProcessTask handles a resolve task.
func (s *publishService) ProcessTask(ctx context.Context, task repository.ResolveTask) error {
	entry, err := s.Fetch(ctx, task.URL)
	if err == nil {
		slog.Info("resolve task completed",
			"task_id", task.TaskID,
			"url", task.URL,
			"remote_asset_id", entry.RemoteAssetID,
		)
		return nil
	}

	if kind, ok := model.KindOf(err); ok {
		// Retrying a classified failure gives the same answer.
		slog.Warn("resolve task failed permanently",
			"task_id", task.TaskID,
			"url", task.URL,
			"kind", kind.String(),
			"requested_by", task.RequestedBy,
		)
		return nil
	}
	if errors.Is(err, ErrInvalidURL) || errors.Is(err, ErrUnsupportedURL) {
		slog.Warn("resolve task rejected", "task_id", task.TaskID, "url", task.URL, "error", err)
		return nil
	}

	return fmt.Errorf("process resolve task %s: %w", task.TaskID, err)
}
