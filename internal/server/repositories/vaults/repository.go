// Package vaults persists StorageVault records and owns the atomic
// capacity accounting.
package vaults

import (
	"context"

	"github.com/avolkovs/fieldvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, v *models.StorageVault) error
	GetByID(ctx context.Context, id string) (*models.StorageVault, error)
	// AddUsed applies a signed byte delta to the vault's usage in one
	// conditional statement. A positive delta that would push usage past
	// the capacity limit returns common.ErrCapacity; a negative delta
	// never drives usage below zero.
	AddUsed(ctx context.Context, id string, delta int64) error
	Update(ctx context.Context, v *models.StorageVault) error
	ListByOwner(ctx context.Context, ownerID string) ([]*models.StorageVault, error)
	Delete(ctx context.Context, id string) error
}
