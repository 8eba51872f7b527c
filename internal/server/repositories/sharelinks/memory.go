package sharelinks

import (
	"context"
	"sync"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
)

// MemoryRepository is an in-process Repository used in tests and
// single-node deployments without a database. The redeem path holds the
// write lock across the check-and-increment, giving the same no-overshoot
// guarantee as the SQL conditional update.
type MemoryRepository struct {
	mu    sync.RWMutex
	links map[string]*models.ShareLink // by id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{links: make(map[string]*models.ShareLink)}
}

func (r *MemoryRepository) Create(ctx context.Context, l *models.ShareLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *l
	r.links[l.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.links {
		if l.Token == token {
			clone := *l
			return &clone, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryRepository) Redeem(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.Token != token {
			continue
		}
		if l.MaxAccess > 0 && l.AccessCount >= l.MaxAccess {
			return common.ErrAccessDenied
		}
		l.AccessCount++
		return nil
	}
	return common.ErrAccessDenied
}

func (r *MemoryRepository) ListByItem(ctx context.Context, itemID string) ([]*models.ShareLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.ShareLink
	for _, l := range r.links {
		if l.ItemID == itemID {
			clone := *l
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *MemoryRepository) SharedItemIDs(ctx context.Context) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]struct{})
	for _, l := range r.links {
		result[l.ItemID] = struct{}{}
	}
	return result, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.links[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.links, id)
	return nil
}

func (r *MemoryRepository) DeleteByItem(ctx context.Context, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, l := range r.links {
		if l.ItemID == itemID {
			delete(r.links, id)
		}
	}
	return nil
}
