// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"camera-service/internal/model"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// ImageRepository defines catalog data access operations
type ImageRepository interface {
	// ReplaceAll swaps the whole catalog in one step. Cache state of
	// images whose name and size did not change is carried over.
	ReplaceAll(ctx context.Context, images []*model.Image) error
	List(ctx context.Context) ([]*model.Image, error)
	GetByName(ctx context.Context, name string) (*model.Image, error)
	MarkCached(ctx context.Context, name, digest string, at time.Time) error
	Count(ctx context.Context) (int, error)
}

// TransferRepository defines transfer log data access operations
type TransferRepository interface {
	Create(ctx context.Context, transfer *model.Transfer) error
	Update(ctx context.Context, transfer *model.Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Transfer, error)
	List(ctx context.Context, filter *model.TransferFilter) ([]*model.Transfer, int, error)
	GetStats(ctx context.Context) (*TransferStats, error)

	// Cleanup
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

// TransferStats summarises the transfer log
type TransferStats struct {
	Total      int   `json:"total"`
	Completed  int   `json:"completed"`
	Failed     int   `json:"failed"`
	Running    int   `json:"running"`
	TotalBytes int64 `json:"total_bytes"`
}
