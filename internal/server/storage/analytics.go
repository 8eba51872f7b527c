package storage

import (
	"context"

	"github.com/avolkovs/fieldvault/internal/analytics"
	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
)

// StorageAnalytics aggregates usage statistics over the caller's active
// items. A non-empty vaultID narrows the report to one vault, which must
// belong to the caller.
func (e *Engine) StorageAnalytics(ctx context.Context, callerID, vaultID string) (*analytics.Report, error) {
	var (
		items []*models.StorageItem
		err   error
	)
	if vaultID != "" {
		vault, verr := e.repos.Vaults.GetByID(ctx, vaultID)
		if verr != nil {
			return nil, verr
		}
		if vault.OwnerID != callerID {
			return nil, common.ErrAccessDenied
		}
		items, err = e.repos.Items.ListByVault(ctx, vaultID, models.StatusActive)
	} else {
		items, err = e.repos.Items.ListByOwner(ctx, callerID, models.StatusActive)
	}
	if err != nil {
		return nil, err
	}

	shared, err := e.repos.ShareLinks.SharedItemIDs(ctx)
	if err != nil {
		return nil, err
	}

	return analytics.Aggregate(items, shared), nil
}
