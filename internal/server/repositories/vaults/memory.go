package vaults

import (
	"context"
	"sync"
	"time"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
)

// MemoryRepository is an in-process Repository used in tests and
// single-node deployments without a database. AddUsed holds the write
// lock across the check-and-apply, matching the SQL conditional update.
type MemoryRepository struct {
	mu     sync.RWMutex
	vaults map[string]*models.StorageVault
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{vaults: make(map[string]*models.StorageVault)}
}

func (r *MemoryRepository) Create(ctx context.Context, v *models.StorageVault) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *v
	r.vaults[v.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.StorageVault, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vaults[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := *v
	return &clone, nil
}

func (r *MemoryRepository) AddUsed(ctx context.Context, id string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vaults[id]
	if !ok {
		return common.ErrNotFound
	}
	if delta > 0 && v.CapacityLimit > 0 && v.CapacityUsed+delta > v.CapacityLimit {
		return common.ErrCapacity
	}
	v.CapacityUsed += delta
	if v.CapacityUsed < 0 {
		v.CapacityUsed = 0
	}
	v.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, v *models.StorageVault) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.vaults[v.ID]
	if !ok {
		return common.ErrNotFound
	}
	stored.Name = v.Name
	stored.CapacityLimit = v.CapacityLimit
	stored.WarningThreshold = v.WarningThreshold
	stored.AutoArchive = v.AutoArchive
	stored.CompressByDefault = v.CompressByDefault
	stored.Deduplicate = v.Deduplicate
	stored.VersioningEnabled = v.VersioningEnabled
	stored.MaxVersions = v.MaxVersions
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.StorageVault, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.StorageVault
	for _, v := range r.vaults {
		if v.OwnerID == ownerID {
			clone := *v
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vaults[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.vaults, id)
	return nil
}
