package postgres

import (
	"context"
	"fmt"
)

var schemaStatements = []string{`
CREATE TABLE IF NOT EXISTS media_links (
	url              TEXT PRIMARY KEY,
	platform         TEXT NOT NULL,
	remote_asset_id  TEXT NOT NULL,
	remote_unique_id TEXT,
	asset_type       TEXT NOT NULL,
	title            TEXT NOT NULL DEFAULT '',
	thumbnail_id     TEXT,
	size_bytes       BIGINT,
	duration_seconds INTEGER,
	access_count     INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_media_links_platform_type ON media_links (platform, asset_type)`,
}

// EnsureSchema creates the media_links table and its secondary index if they do not exist.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
