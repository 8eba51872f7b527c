package permissions

import (
	"context"
	"sync"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
)

// MemoryRepository is an in-process Repository used in tests and
// single-node deployments without a database.
type MemoryRepository struct {
	mu    sync.RWMutex
	perms map[string]*models.StoragePermission
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{perms: make(map[string]*models.StoragePermission)}
}

func (r *MemoryRepository) Create(ctx context.Context, p *models.StoragePermission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	r.perms[p.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetForUser(ctx context.Context, itemID, userID string) (*models.StoragePermission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.perms {
		if p.ItemID == itemID && p.UserID == userID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryRepository) ListByItem(ctx context.Context, itemID string) ([]*models.StoragePermission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.StoragePermission
	for _, p := range r.perms {
		if p.ItemID == itemID {
			clone := *p
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.perms[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.perms, id)
	return nil
}

func (r *MemoryRepository) DeleteByItem(ctx context.Context, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.perms {
		if p.ItemID == itemID {
			delete(r.perms, id)
		}
	}
	return nil
}
