// Package permissions persists StoragePermission records.
package permissions

import (
	"context"

	"github.com/avolkovs/fieldvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.StoragePermission) error
	// GetForUser returns the permission entry binding userID to itemID,
	// expired or not; expiry evaluation belongs to the caller.
	GetForUser(ctx context.Context, itemID, userID string) (*models.StoragePermission, error)
	ListByItem(ctx context.Context, itemID string) ([]*models.StoragePermission, error)
	Delete(ctx context.Context, id string) error
	DeleteByItem(ctx context.Context, itemID string) error
}
