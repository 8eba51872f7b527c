// Package versions persists StorageVersion records, ordered by version
// number per item.
package versions

import (
	"context"

	"github.com/avolkovs/fieldvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, v *models.StorageVersion) error
	GetByNumber(ctx context.Context, itemID string, number int) (*models.StorageVersion, error)
	// ListByItem returns versions ordered by ascending number.
	ListByItem(ctx context.Context, itemID string) ([]*models.StorageVersion, error)
	CountByItem(ctx context.Context, itemID string) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteByItem(ctx context.Context, itemID string) error
}
