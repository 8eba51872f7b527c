// Package items persists StorageItem records.
package items

import (
	"context"

	"github.com/avolkovs/fieldvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, item *models.StorageItem) error
	GetByID(ctx context.Context, id string) (*models.StorageItem, error)
	// Update rewrites the mutable content fields (name, size, storage key,
	// nonce, checksum, flags, status) of an existing record.
	Update(ctx context.Context, item *models.StorageItem) error
	UpdateStatus(ctx context.Context, id string, status models.ItemStatus) error
	// RecordAccess atomically increments the access counter and stamps the
	// last-access time.
	RecordAccess(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error

	ListByOwner(ctx context.Context, ownerID string, status models.ItemStatus) ([]*models.StorageItem, error)
	ListByVault(ctx context.Context, vaultID string, status models.ItemStatus) ([]*models.StorageItem, error)
	ListByStatus(ctx context.Context, status models.ItemStatus) ([]*models.StorageItem, error)
}
