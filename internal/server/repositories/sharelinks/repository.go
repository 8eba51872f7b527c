// Package sharelinks persists ShareLink records and owns the atomic
// access-count bookkeeping.
package sharelinks

import (
	"context"

	"github.com/avolkovs/fieldvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, l *models.ShareLink) error
	GetByToken(ctx context.Context, token string) (*models.ShareLink, error)
	// Redeem performs a conditional increment of the access counter,
	// bounded by the link's max-access cap. It returns
	// common.ErrAccessDenied when the cap is already reached, so that
	// concurrent redemptions can never overshoot it.
	Redeem(ctx context.Context, token string) error
	ListByItem(ctx context.Context, itemID string) ([]*models.ShareLink, error)
	// SharedItemIDs returns the set of item ids that have at least one
	// share link.
	SharedItemIDs(ctx context.Context) (map[string]struct{}, error)
	Delete(ctx context.Context, id string) error
	DeleteByItem(ctx context.Context, itemID string) error
}
