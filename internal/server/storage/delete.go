package storage

import (
	"context"
	"fmt"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
	"golang.org/x/sync/errgroup"
)

// DeleteFile removes an item. A soft delete flips the status and keeps
// both bytes and metadata; it still occupies vault capacity. A permanent
// delete removes every byte (current content and all versions) and the
// metadata record; byte removal is best effort, metadata removal is
// unconditional once attempted.
func (e *Engine) DeleteFile(ctx context.Context, itemID, callerID string, permanent bool) error {
	item, err := e.repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}

	if err := e.auth.Require(ctx, item, callerID, models.CapDelete); err != nil {
		return err
	}

	if !permanent {
		if item.Status == models.StatusDeleted {
			return nil
		}
		return e.repos.Items.UpdateStatus(ctx, itemID, models.StatusDeleted)
	}

	release := e.locks.acquire(itemID)
	defer release()

	versions, err := e.repos.Versions.ListByItem(ctx, itemID)
	if err != nil {
		return err
	}

	locators := make([]string, 0, len(versions)+1)
	locators = append(locators, item.StorageKey)
	for _, v := range versions {
		locators = append(locators, v.StorageKey)
	}

	var g errgroup.Group
	for _, locator := range locators {
		g.Go(func() error {
			if err := e.blobs.Delete(ctx, locator); err != nil {
				e.log.Warn(ctx, "failed to delete bytes during permanent delete",
					"item", itemID, "key", locator, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	// Metadata removal proceeds regardless of byte-deletion outcomes to
	// avoid orphaned-but-invisible records.
	if err := e.repos.Versions.DeleteByItem(ctx, itemID); err != nil {
		e.log.Warn(ctx, "failed to delete version records", "item", itemID, "err", err)
	}
	if err := e.repos.Permissions.DeleteByItem(ctx, itemID); err != nil {
		e.log.Warn(ctx, "failed to delete permission records", "item", itemID, "err", err)
	}
	if err := e.repos.ShareLinks.DeleteByItem(ctx, itemID); err != nil {
		e.log.Warn(ctx, "failed to delete share links", "item", itemID, "err", err)
	}
	if err := e.repos.Items.Delete(ctx, itemID); err != nil {
		return err
	}

	e.releaseCapacity(ctx, item.VaultID, item.Size)

	e.log.Info(ctx, "permanently deleted item", "item", itemID, "versions", len(versions))
	return nil
}

// UndeleteFile reverses a soft delete.
func (e *Engine) UndeleteFile(ctx context.Context, itemID, callerID string) error {
	return e.transition(ctx, itemID, callerID, models.CapDelete, models.StatusDeleted, models.StatusActive)
}

// ArchiveFile moves an active item out of the working set. Archived items
// are excluded from retrieval and analytics but keep their bytes.
func (e *Engine) ArchiveFile(ctx context.Context, itemID, callerID string) error {
	return e.transition(ctx, itemID, callerID, models.CapWrite, models.StatusActive, models.StatusArchived)
}

// UnarchiveFile returns an archived item to the working set.
func (e *Engine) UnarchiveFile(ctx context.Context, itemID, callerID string) error {
	return e.transition(ctx, itemID, callerID, models.CapWrite, models.StatusArchived, models.StatusActive)
}

func (e *Engine) transition(ctx context.Context, itemID, callerID string, capability models.Capability, from, to models.ItemStatus) error {
	item, err := e.repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if err := e.auth.Require(ctx, item, callerID, capability); err != nil {
		return err
	}
	if item.Status != from {
		return fmt.Errorf("%w: item is %s, not %s", common.ErrValidation, item.Status, from)
	}
	return e.repos.Items.UpdateStatus(ctx, itemID, to)
}
