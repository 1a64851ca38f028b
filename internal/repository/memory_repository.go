// internal/repository/memory_repository.go
package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"camera-service/internal/model"
)

// memoryImageRepository keeps the catalog in memory when no database is
// configured.
type memoryImageRepository struct {
	mu     sync.RWMutex
	images map[string]*model.Image
}

// NewMemoryImageRepository creates an in-memory image repository
func NewMemoryImageRepository() ImageRepository {
	return &memoryImageRepository{images: make(map[string]*model.Image)}
}

func (r *memoryImageRepository) ReplaceAll(_ context.Context, images []*model.Image) error {
	next := make(map[string]*model.Image, len(images))
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range images {
		c := *img
		if old, ok := r.images[img.Name]; ok && old.Size == img.Size {
			c.Digest, c.CachedAt = old.Digest, old.CachedAt
		}
		next[c.Name] = &c
	}
	r.images = next
	return nil
}

func (r *memoryImageRepository) List(_ context.Context) ([]*model.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*model.Image, 0, len(r.images))
	for _, img := range r.images {
		c := *img
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Slot < list[j].Slot })
	return list, nil
}

func (r *memoryImageRepository) GetByName(_ context.Context, name string) (*model.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img, ok := r.images[name]
	if !ok {
		return nil, fmt.Errorf("image %s: %w", name, ErrNotFound)
	}
	c := *img
	return &c, nil
}

func (r *memoryImageRepository) MarkCached(_ context.Context, name, digest string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[name]
	if !ok {
		return fmt.Errorf("image %s: %w", name, ErrNotFound)
	}
	img.Digest = &digest
	img.CachedAt = &at
	return nil
}

func (r *memoryImageRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.images), nil
}

// memoryTransferRepository keeps the transfer log in memory
type memoryTransferRepository struct {
	mu        sync.RWMutex
	transfers map[uuid.UUID]*model.Transfer
}

// NewMemoryTransferRepository creates an in-memory transfer repository
func NewMemoryTransferRepository() TransferRepository {
	return &memoryTransferRepository{transfers: make(map[uuid.UUID]*model.Transfer)}
}

func (r *memoryTransferRepository) Create(_ context.Context, t *model.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transfers[t.ID]; exists {
		return fmt.Errorf("transfer %s already exists", t.ID)
	}
	c := *t
	r.transfers[t.ID] = &c
	return nil
}

func (r *memoryTransferRepository) Update(_ context.Context, t *model.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transfers[t.ID]; !exists {
		return fmt.Errorf("transfer %s: %w", t.ID, ErrNotFound)
	}
	c := *t
	r.transfers[t.ID] = &c
	return nil
}

func (r *memoryTransferRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transfers[id]
	if !ok {
		return nil, fmt.Errorf("transfer %s: %w", id, ErrNotFound)
	}
	c := *t
	return &c, nil
}

func (r *memoryTransferRepository) List(_ context.Context, filter *model.TransferFilter) ([]*model.Transfer, int, error) {
	r.mu.RLock()
	var matched []*model.Transfer
	for _, t := range r.transfers {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.ImageName != "" && t.ImageName != filter.ImageName {
			continue
		}
		c := *t
		matched = append(matched, &c)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].StartedAt.After(matched[j].StartedAt) })
	total := len(matched)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	start := min(filter.Offset, total)
	end := min(start+limit, total)
	return matched[start:end], total, nil
}

func (r *memoryTransferRepository) GetStats(_ context.Context) (*TransferStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := &TransferStats{Total: len(r.transfers)}
	for _, t := range r.transfers {
		switch t.Status {
		case model.TransferStatusCompleted:
			s.Completed++
			s.TotalBytes += t.Bytes
		case model.TransferStatusFailed:
			s.Failed++
		case model.TransferStatusRunning:
			s.Running++
		}
	}
	return s, nil
}

func (r *memoryTransferRepository) DeleteOlderThan(_ context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, t := range r.transfers {
		finished := t.Status == model.TransferStatusCompleted || t.Status == model.TransferStatusFailed
		if finished && t.StartedAt.Before(olderThan) {
			delete(r.transfers, id)
			deleted++
		}
	}
	return deleted, nil
}
