// internal/repository/image_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"camera-service/internal/database"
	"camera-service/internal/model"
	"camera-service/internal/utils"
)

// imageRepository implements ImageRepository on PostgreSQL
type imageRepository struct {
	db     *database.DB
	logger *utils.ServiceLogger
}

// NewImageRepository creates a new image repository
func NewImageRepository(db *database.DB, logger *zap.Logger) ImageRepository {
	return &imageRepository{
		db:     db,
		logger: utils.NewServiceLogger(logger, "image-repository"),
	}
}

const imageColumns = `name, slot, size, mode, created_at, digest, cached_at, cataloged_at`

// ReplaceAll rewrites the catalog inside one transaction
func (r *imageRepository) ReplaceAll(ctx context.Context, images []*model.Image) error {
	start := time.Now()
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		// keep cache state for entries that are still the same picture
		if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE old_images ON COMMIT DROP AS SELECT name, size, digest, cached_at FROM images`); err != nil {
			return fmt.Errorf("failed to snapshot catalog: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM images`); err != nil {
			return fmt.Errorf("failed to clear catalog: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO images (name, slot, size, mode, created_at, digest, cached_at, cataloged_at)
			SELECT $1, $2, $3, $4, $5, o.digest, o.cached_at, $6
			FROM (SELECT 1) AS one
			LEFT JOIN old_images o ON o.name = $1 AND o.size = $3
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, img := range images {
			if _, err := stmt.ExecContext(ctx,
				img.Name, img.Slot, img.Size, img.Mode, img.CreatedAt, img.CatalogedAt,
			); err != nil {
				return fmt.Errorf("failed to insert image %s: %w", img.Name, err)
			}
		}
		return nil
	})
	r.logger.LogDatabaseQuery("replace catalog", time.Since(start), err)
	return err
}

// List returns the catalog ordered by slot
func (r *imageRepository) List(ctx context.Context) ([]*model.Image, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+imageColumns+` FROM images ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	var images []*model.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// GetByName retrieves one image
func (r *imageRepository) GetByName(ctx context.Context, name string) (*model.Image, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE name = $1`, name)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image %s: %w", name, ErrNotFound)
	}
	return img, err
}

// MarkCached records the digest of a cached image
func (r *imageRepository) MarkCached(ctx context.Context, name, digest string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE images SET digest = $2, cached_at = $3 WHERE name = $1`, name, digest, at)
	if err != nil {
		return fmt.Errorf("failed to mark image cached: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("image %s: %w", name, ErrNotFound)
	}
	return nil
}

// Count returns the number of catalog entries
func (r *imageRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanImage(s scanner) (*model.Image, error) {
	img := &model.Image{}
	var mode int64
	err := s.Scan(&img.Name, &img.Slot, &img.Size, &mode, &img.CreatedAt,
		&img.Digest, &img.CachedAt, &img.CatalogedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan image: %w", err)
	}
	img.Mode = uint32(mode)
	return img, nil
}
