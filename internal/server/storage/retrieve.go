package storage

import (
	"context"
	"errors"

	"github.com/avolkovs/fieldvault/internal/bytestore"
	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
)

// FileContent is the result of a successful retrieval: the original bytes
// plus the declared metadata.
type FileContent struct {
	Data        []byte
	Name        string
	ContentType string
	Size        int64
}

// RetrieveFile reads an item back through the reverse pipeline. The
// checksum of the decrypted, decompressed bytes must match the stored
// value; on mismatch the item is flagged corrupted and no bytes are
// returned.
func (e *Engine) RetrieveFile(ctx context.Context, itemID, callerID string) (*FileContent, error) {
	item, err := e.repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.StatusActive {
		return nil, common.ErrNotFound
	}

	if err := e.auth.Require(ctx, item, callerID, models.CapRead); err != nil {
		return nil, err
	}

	return e.fetchContent(ctx, item)
}

// fetchContent runs the reverse pipeline for an already-authorized item.
func (e *Engine) fetchContent(ctx context.Context, item *models.StorageItem) (*FileContent, error) {
	raw, err := e.blobs.Read(ctx, item.StorageKey)
	if err != nil {
		if errors.Is(err, bytestore.ErrNotExist) {
			e.log.Error(ctx, "stored bytes missing", "item", item.ID)
			e.markCorrupted(ctx, item.ID)
			return nil, common.ErrIntegrity
		}
		e.log.Error(ctx, "byte store read failed", "item", item.ID, "err", err)
		return nil, common.ErrIO
	}

	data, err := e.open(ctx, item, raw)
	if err != nil {
		if errors.Is(err, common.ErrIntegrity) {
			e.markCorrupted(ctx, item.ID)
		}
		return nil, err
	}

	if err := e.repos.Items.RecordAccess(ctx, item.ID); err != nil {
		e.log.Warn(ctx, "failed to record access", "item", item.ID, "err", err)
	}

	return &FileContent{
		Data:        data,
		Name:        item.Name,
		ContentType: item.ContentType,
		Size:        int64(len(data)),
	}, nil
}

func (e *Engine) markCorrupted(ctx context.Context, itemID string) {
	if err := e.repos.Items.UpdateStatus(ctx, itemID, models.StatusCorrupted); err != nil {
		e.log.Warn(ctx, "failed to flag item corrupted", "item", itemID, "err", err)
	}
}

// ListFiles returns the caller's own items in the given status.
func (e *Engine) ListFiles(ctx context.Context, callerID string, status models.ItemStatus) ([]*models.StorageItem, error) {
	return e.repos.Items.ListByOwner(ctx, callerID, status)
}

// ListAllFiles returns every item in the given status across all owners.
// For in-process consumers such as the retention sweeper, not for callers.
func (e *Engine) ListAllFiles(ctx context.Context, status models.ItemStatus) ([]*models.StorageItem, error) {
	return e.repos.Items.ListByStatus(ctx, status)
}
