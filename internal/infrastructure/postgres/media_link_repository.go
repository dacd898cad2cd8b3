package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/domain/repository"
	"github.com/hszk-dev/mediacache/internal/infrastructure/metrics"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const mediaLinkColumns = `url, platform, remote_asset_id, remote_unique_id, asset_type, title,
		thumbnail_id, size_bytes, duration_seconds, access_count, created_at, updated_at`

// MediaLinkRepository implements repository.MediaLinkRepository using PostgreSQL.
type MediaLinkRepository struct {
	db DBTX
}

// NewMediaLinkRepository creates a new MediaLinkRepository instance.
func NewMediaLinkRepository(db DBTX) *MediaLinkRepository {
	return &MediaLinkRepository{db: db}
}

// GetByURL retrieves the cache entry for a canonical URL.
func (r *MediaLinkRepository) GetByURL(ctx context.Context, url string) (*model.CacheEntry, error) {
	query := `SELECT ` + mediaLinkColumns + ` FROM media_links WHERE url = $1`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableMediaLinks).Inc()

	entry, err := scanMediaLink(r.db.QueryRow(ctx, query, url))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrMediaLinkNotFound
		}
		return nil, fmt.Errorf("failed to get media link: %w", err)
	}

	return entry, nil
}

// Create persists a new cache entry.
func (r *MediaLinkRepository) Create(ctx context.Context, entry *model.CacheEntry) error {
	const query = `
		INSERT INTO media_links (url, platform, remote_asset_id, remote_unique_id, asset_type, title,
			thumbnail_id, size_bytes, duration_seconds, access_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TableMediaLinks).Inc()

	_, err := r.db.Exec(ctx, query,
		entry.Key,
		entry.Platform.String(),
		entry.RemoteAssetID,
		nullString(entry.RemoteUniqueID),
		entry.AssetType.String(),
		entry.Title,
		nullString(entry.ThumbnailID),
		entry.SizeBytes,
		entry.DurationSeconds,
		entry.AccessCount,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateMediaLink
		}
		return fmt.Errorf("failed to create media link: %w", err)
	}

	return nil
}

// Update replaces the handle fields of an existing entry. The access counter is left untouched.
func (r *MediaLinkRepository) Update(ctx context.Context, entry *model.CacheEntry) error {
	const query = `
		UPDATE media_links
		SET platform = $2, remote_asset_id = $3, remote_unique_id = $4, asset_type = $5, title = $6,
			thumbnail_id = $7, size_bytes = $8, duration_seconds = $9, updated_at = $10
		WHERE url = $1
	`

	entry.UpdatedAt = time.Now()

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableMediaLinks).Inc()

	tag, err := r.db.Exec(ctx, query,
		entry.Key,
		entry.Platform.String(),
		entry.RemoteAssetID,
		nullString(entry.RemoteUniqueID),
		entry.AssetType.String(),
		entry.Title,
		nullString(entry.ThumbnailID),
		entry.SizeBytes,
		entry.DurationSeconds,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update media link: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrMediaLinkNotFound
	}

	return nil
}

// IncrementAccess bumps access_count and refreshes updated_at in one statement.
func (r *MediaLinkRepository) IncrementAccess(ctx context.Context, url string) error {
	const query = `
		UPDATE media_links
		SET access_count = access_count + 1, updated_at = $2
		WHERE url = $1
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableMediaLinks).Inc()

	tag, err := r.db.Exec(ctx, query, url, time.Now())
	if err != nil {
		return fmt.Errorf("failed to increment access count: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrMediaLinkNotFound
	}

	return nil
}

// Delete removes an entry. Missing entries are not an error.
func (r *MediaLinkRepository) Delete(ctx context.Context, url string) error {
	const query = `DELETE FROM media_links WHERE url = $1`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryDelete, metrics.TableMediaLinks).Inc()

	if _, err := r.db.Exec(ctx, query, url); err != nil {
		return fmt.Errorf("failed to delete media link: %w", err)
	}

	return nil
}

// ListByPlatformAndType returns entries of one (platform, asset_type) pair, most recently updated first.
func (r *MediaLinkRepository) ListByPlatformAndType(ctx context.Context, platform model.Platform, assetType model.AssetType, limit int) ([]*model.CacheEntry, error) {
	query := `SELECT ` + mediaLinkColumns + `
		FROM media_links
		WHERE platform = $1 AND asset_type = $2
		ORDER BY updated_at DESC`

	args := []any{platform.String(), assetType.String()}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableMediaLinks).Inc()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query media links: %w", err)
	}
	defer rows.Close()

	var entries []*model.CacheEntry
	for rows.Next() {
		entry, err := scanMediaLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media link: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media links: %w", err)
	}

	return entries, nil
}

// scanMediaLink scans a single row into a CacheEntry. pgx.Rows satisfies pgx.Row.
func scanMediaLink(row pgx.Row) (*model.CacheEntry, error) {
	var (
		entry          model.CacheEntry
		platform       string
		assetType      string
		remoteUniqueID *string
		thumbnailID    *string
	)

	err := row.Scan(
		&entry.Key,
		&platform,
		&entry.RemoteAssetID,
		&remoteUniqueID,
		&assetType,
		&entry.Title,
		&thumbnailID,
		&entry.SizeBytes,
		&entry.DurationSeconds,
		&entry.AccessCount,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Platform = model.Platform(platform)
	entry.AssetType = model.AssetType(assetType)
	if remoteUniqueID != nil {
		entry.RemoteUniqueID = *remoteUniqueID
	}
	if thumbnailID != nil {
		entry.ThumbnailID = *thumbnailID
	}

	return &entry, nil
}

// nullString returns nil for empty strings, otherwise returns a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time verification that MediaLinkRepository implements repository.MediaLinkRepository.
var _ repository.MediaLinkRepository = (*MediaLinkRepository)(nil)
