package keys

import (
	"context"
	"sync"
	"time"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
)

// MemoryRepository is an in-process Repository used in tests and
// single-node deployments without a database.
type MemoryRepository struct {
	mu   sync.RWMutex
	keys map[string]*models.EncryptionKey
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{keys: make(map[string]*models.EncryptionKey)}
}

// cloneKey copies the record including its material, so callers that
// wipe the returned key material cannot corrupt the stored copy.
func cloneKey(k *models.EncryptionKey) *models.EncryptionKey {
	clone := *k
	clone.Material = make([]byte, len(k.Material))
	copy(clone.Material, k.Material)
	return &clone
}

func (r *MemoryRepository) Create(ctx context.Context, k *models.EncryptionKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[k.ID] = cloneKey(k)
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.EncryptionKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneKey(k), nil
}

func (r *MemoryRepository) Touch(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return common.ErrNotFound
	}
	now := time.Now()
	k.LastUsed = &now
	return nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status models.KeyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return common.ErrNotFound
	}
	k.Status = status
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.keys, id)
	return nil
}
