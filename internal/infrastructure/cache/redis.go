package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/domain/repository"
)

const (
	mediaLinkKeyPrefix   = "media_link:"
	mediaLinkStatsSuffix = ":stats"
	mediaLinkIndexPrefix = "media_links:idx:"

	statsFieldAccessCount = "access_count"
	statsFieldTouchedAt   = "touched_at"
)

// mediaLinkJSON is the JSON representation of a CacheEntry stored in Redis.
// The access counter lives in a separate hash so hits never rewrite this document.
type mediaLinkJSON struct {
	Key             string `json:"key"`
	Platform        string `json:"platform"`
	RemoteAssetID   string `json:"remote_asset_id"`
	RemoteUniqueID  string `json:"remote_unique_id,omitempty"`
	AssetType       string `json:"asset_type"`
	Title           string `json:"title"`
	ThumbnailID     string `json:"thumbnail_id,omitempty"`
	SizeBytes       *int64 `json:"size_bytes,omitempty"`
	DurationSeconds *int   `json:"duration_seconds,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// RedisMediaLinkRepository implements repository.MediaLinkRepository on Redis.
// SETNX on the entry key is the uniqueness arbiter for concurrent inserts.
type RedisMediaLinkRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisMediaLinkRepository creates a new Redis-backed persistent tier.
func NewRedisMediaLinkRepository(client *redis.Client) *RedisMediaLinkRepository {
	return &RedisMediaLinkRepository{
		client: client,
		now:    time.Now,
	}
}

// GetByURL retrieves the entry for url together with its access stats.
func (r *RedisMediaLinkRepository) GetByURL(ctx context.Context, url string) (*model.CacheEntry, error) {
	data, err := r.client.Get(ctx, r.entryKey(url)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrMediaLinkNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	entry, err := r.deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize media link: %w", err)
	}

	stats, err := r.client.HGetAll(ctx, r.statsKey(url)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if v, ok := stats[statsFieldAccessCount]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			entry.AccessCount = n
		}
	}
	if v, ok := stats[statsFieldTouchedAt]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil && ts.After(entry.UpdatedAt) {
			entry.UpdatedAt = ts
		}
	}

	return entry, nil
}

// Create inserts a new entry. A concurrent writer that loses the SETNX gets ErrDuplicateMediaLink.
func (r *RedisMediaLinkRepository) Create(ctx context.Context, entry *model.CacheEntry) error {
	data, err := r.serialize(entry)
	if err != nil {
		return fmt.Errorf("serialize media link: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.entryKey(entry.Key), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return repository.ErrDuplicateMediaLink
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.statsKey(entry.Key))
		pipe.HSet(ctx, r.statsKey(entry.Key), statsFieldAccessCount, entry.AccessCount)
		pipe.ZAdd(ctx, r.indexKey(entry.Platform, entry.AssetType), redis.Z{
			Score:  float64(entry.UpdatedAt.UnixNano()),
			Member: entry.Key,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis index media link: %w", err)
	}

	return nil
}

// Update replaces the stored document of an existing entry.
func (r *RedisMediaLinkRepository) Update(ctx context.Context, entry *model.CacheEntry) error {
	existing, err := r.loadDocument(ctx, entry.Key)
	if err != nil {
		return err
	}

	entry.UpdatedAt = r.now()
	data, err := r.serialize(entry)
	if err != nil {
		return fmt.Errorf("serialize media link: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetXX(ctx, r.entryKey(entry.Key), data, 0)
		oldIndex := r.indexKey(model.Platform(existing.Platform), model.AssetType(existing.AssetType))
		newIndex := r.indexKey(entry.Platform, entry.AssetType)
		if oldIndex != newIndex {
			pipe.ZRem(ctx, oldIndex, entry.Key)
		}
		pipe.ZAdd(ctx, newIndex, redis.Z{
			Score:  float64(entry.UpdatedAt.UnixNano()),
			Member: entry.Key,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis update media link: %w", err)
	}

	return nil
}

// IncrementAccess bumps the access counter and refreshes the touch time.
func (r *RedisMediaLinkRepository) IncrementAccess(ctx context.Context, url string) error {
	n, err := r.client.Exists(ctx, r.entryKey(url)).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if n == 0 {
		return repository.ErrMediaLinkNotFound
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, r.statsKey(url), statsFieldAccessCount, 1)
		pipe.HSet(ctx, r.statsKey(url), statsFieldTouchedAt, r.now().Format(time.RFC3339Nano))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis increment access: %w", err)
	}

	return nil
}

// Delete removes an entry, its stats and its index membership.
func (r *RedisMediaLinkRepository) Delete(ctx context.Context, url string) error {
	existing, err := r.loadDocument(ctx, url)
	if err != nil {
		if errors.Is(err, repository.ErrMediaLinkNotFound) {
			return nil
		}
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.entryKey(url), r.statsKey(url))
		pipe.ZRem(ctx, r.indexKey(model.Platform(existing.Platform), model.AssetType(existing.AssetType)), url)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// ListByPlatformAndType returns the most recently updated entries of one (platform, type) pair.
// A non-positive limit returns all of them.
func (r *RedisMediaLinkRepository) ListByPlatformAndType(ctx context.Context, platform model.Platform, assetType model.AssetType, limit int) ([]*model.CacheEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	urls, err := r.client.ZRevRange(ctx, r.indexKey(platform, assetType), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange: %w", err)
	}

	entries := make([]*model.CacheEntry, 0, len(urls))
	for _, url := range urls {
		entry, err := r.GetByURL(ctx, url)
		if err != nil {
			if errors.Is(err, repository.ErrMediaLinkNotFound) {
				continue
			}
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (r *RedisMediaLinkRepository) loadDocument(ctx context.Context, url string) (*mediaLinkJSON, error) {
	data, err := r.client.Get(ctx, r.entryKey(url)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrMediaLinkNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var doc mediaLinkJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("deserialize media link: %w", err)
	}
	return &doc, nil
}

func (r *RedisMediaLinkRepository) entryKey(url string) string {
	return mediaLinkKeyPrefix + url
}

func (r *RedisMediaLinkRepository) statsKey(url string) string {
	return mediaLinkKeyPrefix + url + mediaLinkStatsSuffix
}

func (r *RedisMediaLinkRepository) indexKey(platform model.Platform, assetType model.AssetType) string {
	return mediaLinkIndexPrefix + platform.String() + ":" + assetType.String()
}

// serialize converts a CacheEntry to JSON bytes.
func (r *RedisMediaLinkRepository) serialize(entry *model.CacheEntry) ([]byte, error) {
	v := mediaLinkJSON{
		Key:             entry.Key,
		Platform:        entry.Platform.String(),
		RemoteAssetID:   entry.RemoteAssetID,
		RemoteUniqueID:  entry.RemoteUniqueID,
		AssetType:       entry.AssetType.String(),
		Title:           entry.Title,
		ThumbnailID:     entry.ThumbnailID,
		SizeBytes:       entry.SizeBytes,
		DurationSeconds: entry.DurationSeconds,
		CreatedAt:       entry.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:       entry.UpdatedAt.Format(time.RFC3339Nano),
	}
	return json.Marshal(v)
}

// deserialize converts JSON bytes to a CacheEntry.
func (r *RedisMediaLinkRepository) deserialize(data []byte) (*model.CacheEntry, error) {
	var v mediaLinkJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	createdAt, err := time.Parse(time.RFC3339Nano, v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, v.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &model.CacheEntry{
		Key:             v.Key,
		Platform:        model.Platform(v.Platform),
		RemoteAssetID:   v.RemoteAssetID,
		RemoteUniqueID:  v.RemoteUniqueID,
		AssetType:       model.AssetType(v.AssetType),
		Title:           v.Title,
		ThumbnailID:     v.ThumbnailID,
		SizeBytes:       v.SizeBytes,
		DurationSeconds: v.DurationSeconds,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}

// Compile-time verification that RedisMediaLinkRepository implements repository.MediaLinkRepository.
var _ repository.MediaLinkRepository = (*RedisMediaLinkRepository)(nil)
