package versions

import (
	"context"
	"sort"
	"sync"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
)

// MemoryRepository is an in-process Repository used in tests and
// single-node deployments without a database.
type MemoryRepository struct {
	mu       sync.RWMutex
	versions map[string]*models.StorageVersion
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{versions: make(map[string]*models.StorageVersion)}
}

func (r *MemoryRepository) Create(ctx context.Context, v *models.StorageVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *v
	r.versions[v.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetByNumber(ctx context.Context, itemID string, number int) (*models.StorageVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.versions {
		if v.ItemID == itemID && v.Number == number {
			clone := *v
			return &clone, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryRepository) ListByItem(ctx context.Context, itemID string) ([]*models.StorageVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.StorageVersion
	for _, v := range r.versions {
		if v.ItemID == itemID {
			clone := *v
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (r *MemoryRepository) CountByItem(ctx context.Context, itemID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, v := range r.versions {
		if v.ItemID == itemID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.versions[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.versions, id)
	return nil
}

func (r *MemoryRepository) DeleteByItem(ctx context.Context, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, v := range r.versions {
		if v.ItemID == itemID {
			delete(r.versions, id)
		}
	}
	return nil
}
