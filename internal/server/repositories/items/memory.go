package items

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
)

// MemoryRepository is an in-process Repository used in tests and
// single-node deployments without a database.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*models.StorageItem
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*models.StorageItem)}
}

func (r *MemoryRepository) Create(ctx context.Context, item *models.StorageItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = cloneItem(item)
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.StorageItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneItem(item), nil
}

func (r *MemoryRepository) Update(ctx context.Context, item *models.StorageItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[item.ID]
	if !ok {
		return common.ErrNotFound
	}
	stored.Name = item.Name
	stored.ContentType = item.ContentType
	stored.Metadata = maps.Clone(item.Metadata)
	stored.Size = item.Size
	stored.StorageKey = item.StorageKey
	stored.KeyID = item.KeyID
	stored.Nonce = item.Nonce
	stored.Compressed = item.Compressed
	stored.Encrypted = item.Encrypted
	stored.Checksum = item.Checksum
	stored.Status = item.Status
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status models.ItemStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return common.ErrNotFound
	}
	item.Status = status
	item.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) RecordAccess(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return common.ErrNotFound
	}
	item.AccessCount++
	now := time.Now()
	item.LastAccessed = &now
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepository) ListByOwner(ctx context.Context, ownerID string, status models.ItemStatus) ([]*models.StorageItem, error) {
	return r.filter(func(i *models.StorageItem) bool {
		return i.OwnerID == ownerID && i.Status == status
	}), nil
}

func (r *MemoryRepository) ListByVault(ctx context.Context, vaultID string, status models.ItemStatus) ([]*models.StorageItem, error) {
	return r.filter(func(i *models.StorageItem) bool {
		return i.VaultID == vaultID && i.Status == status
	}), nil
}

func (r *MemoryRepository) ListByStatus(ctx context.Context, status models.ItemStatus) ([]*models.StorageItem, error) {
	return r.filter(func(i *models.StorageItem) bool {
		return i.Status == status
	}), nil
}

func (r *MemoryRepository) filter(keep func(*models.StorageItem) bool) []*models.StorageItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.StorageItem
	for _, item := range r.items {
		if keep(item) {
			result = append(result, cloneItem(item))
		}
	}
	return result
}

// cloneItem copies the record so callers cannot mutate stored state
// through the returned pointer or its metadata map.
func cloneItem(item *models.StorageItem) *models.StorageItem {
	clone := *item
	clone.Metadata = maps.Clone(item.Metadata)
	return &clone
}
