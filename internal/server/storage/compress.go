package storage

import (
	"context"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
)

// CompressFile rewrites an uncompressed item's stored bytes in compressed
// form. A no-op for items already compressed. Used by retention policies
// with the compress action.
func (e *Engine) CompressFile(ctx context.Context, itemID, callerID string) error {
	item, err := e.repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.Status != models.StatusActive && item.Status != models.StatusArchived {
		return common.ErrNotFound
	}
	if err := e.auth.Require(ctx, item, callerID, models.CapWrite); err != nil {
		return err
	}
	if item.Compressed {
		return nil
	}

	content, err := e.fetchContent(ctx, item)
	if err != nil {
		return err
	}

	sealed, err := e.seal(ctx, content.Data, true, item.Encrypted, item.KeyID)
	if err != nil {
		return err
	}

	release := e.locks.acquire(itemID)
	defer release()

	if err := e.blobs.Write(ctx, item.StorageKey, sealed.data); err != nil {
		e.log.Error(ctx, "byte store write failed", "item", itemID, "err", err)
		return common.ErrIO
	}

	item.Compressed = sealed.compressed
	item.Nonce = sealed.nonce
	item.KeyID = sealed.keyID
	if err := e.repos.Items.Update(ctx, item); err != nil {
		return err
	}

	e.log.Info(ctx, "compressed stored bytes", "item", itemID)
	return nil
}
