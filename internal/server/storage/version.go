package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/digest"
	"github.com/avolkovs/fieldvault/internal/server/models"
	"github.com/google/uuid"
)

// VersionResult reports the outcome of a version-creating operation.
type VersionResult struct {
	Number   int
	Retained int
}

// CreateFileVersion snapshots the item's current stored bytes into the
// version history and replaces the active content with newData, processed
// through the item's existing compression/encryption settings. The
// history is pruned to the owning vault's max-versions bound, oldest
// first, deleting evicted byte stores.
func (e *Engine) CreateFileVersion(ctx context.Context, itemID string, newData []byte, callerID, comment string) (*VersionResult, error) {
	size := int64(len(newData))
	if size > e.maxObjectSize {
		return nil, fmt.Errorf("%w: object of %d bytes exceeds maximum %d", common.ErrValidation, size, e.maxObjectSize)
	}

	item, err := e.repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.StatusActive {
		return nil, common.ErrNotFound
	}
	if err := e.auth.Require(ctx, item, callerID, models.CapWrite); err != nil {
		return nil, err
	}

	maxVersions, err := e.maxVersionsFor(ctx, item)
	if err != nil {
		return nil, err
	}

	checksum := digest.Sum(newData)

	// Compression and encryption run before the per-item lock is taken;
	// only the snapshot, the overwrite and the metadata mutation are
	// serialized.
	sealed, err := e.seal(ctx, newData, item.Compressed, item.Encrypted, item.KeyID)
	if err != nil {
		return nil, err
	}

	release := e.locks.acquire(itemID)
	defer release()

	// Re-read under the lock; a concurrent writer may have advanced the
	// item since the unlocked read.
	item, err = e.repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if item.VaultID != "" {
		if err := e.repos.Vaults.AddUsed(ctx, item.VaultID, size-item.Size); err != nil {
			return nil, err
		}
	}

	number, err := e.snapshotCurrent(ctx, item, callerID, comment)
	if err != nil {
		e.releaseCapacity(ctx, item.VaultID, size-item.Size)
		return nil, err
	}

	if err := e.blobs.Write(ctx, item.StorageKey, sealed.data); err != nil {
		e.releaseCapacity(ctx, item.VaultID, size-item.Size)
		e.log.Error(ctx, "byte store write failed", "item", itemID, "err", err)
		return nil, common.ErrIO
	}

	item.Size = size
	item.Checksum = checksum
	item.Nonce = sealed.nonce
	item.KeyID = sealed.keyID
	// seal skips compression below the threshold, so the flag follows the
	// actual pipeline outcome, not the item's previous state.
	item.Compressed = sealed.compressed
	item.Encrypted = sealed.encrypted
	if err := e.repos.Items.Update(ctx, item); err != nil {
		return nil, err
	}

	retained, err := e.pruneVersions(ctx, itemID, maxVersions)
	if err != nil {
		return nil, err
	}

	e.log.Info(ctx, "created version", "item", itemID, "number", number, "retained", retained)
	return &VersionResult{Number: number, Retained: retained}, nil
}

// RestoreFileVersion copies a retained version's bytes back into the
// active slot. The current state is snapshotted first, so the restore is
// itself undoable.
func (e *Engine) RestoreFileVersion(ctx context.Context, itemID string, number int, callerID string) (int, error) {
	item, err := e.repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if item.Status != models.StatusActive {
		return 0, common.ErrNotFound
	}
	if err := e.auth.Require(ctx, item, callerID, models.CapWrite); err != nil {
		return 0, err
	}

	maxVersions, err := e.maxVersionsFor(ctx, item)
	if err != nil {
		return 0, err
	}

	release := e.locks.acquire(itemID)
	defer release()

	item, err = e.repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return 0, err
	}

	target, err := e.repos.Versions.GetByNumber(ctx, itemID, number)
	if err != nil {
		return 0, err
	}
	if !target.Restorable {
		return 0, fmt.Errorf("%w: version %d is not restorable", common.ErrNotFound, number)
	}

	if item.VaultID != "" {
		if err := e.repos.Vaults.AddUsed(ctx, item.VaultID, target.Size-item.Size); err != nil {
			return 0, err
		}
	}

	if _, err := e.snapshotCurrent(ctx, item, callerID, "backup before restore"); err != nil {
		e.releaseCapacity(ctx, item.VaultID, target.Size-item.Size)
		return 0, err
	}

	if err := e.blobs.Copy(ctx, target.StorageKey, item.StorageKey); err != nil {
		e.releaseCapacity(ctx, item.VaultID, target.Size-item.Size)
		e.log.Error(ctx, "byte store copy failed", "item", itemID, "err", err)
		return 0, common.ErrIO
	}

	// The restored bytes carry the pipeline state they were sealed under,
	// which may differ from the item's current flags (e.g. after a later
	// CompressFile).
	item.Size = target.Size
	item.Checksum = target.Checksum
	item.KeyID = target.KeyID
	item.Nonce = target.Nonce
	item.Compressed = target.Compressed
	item.Encrypted = target.Encrypted
	if err := e.repos.Items.Update(ctx, item); err != nil {
		return 0, err
	}

	if _, err := e.pruneVersions(ctx, itemID, maxVersions); err != nil {
		return 0, err
	}

	e.log.Info(ctx, "restored version", "item", itemID, "number", number)
	return target.Number, nil
}

// ListVersions returns an item's retained history, oldest first.
func (e *Engine) ListVersions(ctx context.Context, itemID, callerID string) ([]*models.StorageVersion, error) {
	item, err := e.repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := e.auth.Require(ctx, item, callerID, models.CapRead); err != nil {
		return nil, err
	}
	return e.repos.Versions.ListByItem(ctx, itemID)
}

// snapshotCurrent copies the item's current stored bytes (already in
// compressed/encrypted form) into a new version record. Must be called
// with the item lock held.
func (e *Engine) snapshotCurrent(ctx context.Context, item *models.StorageItem, callerID, comment string) (int, error) {
	existing, err := e.repos.Versions.ListByItem(ctx, item.ID)
	if err != nil {
		return 0, err
	}
	// Numbering continues past evicted versions, so a pruned history can
	// never reissue a retained number.
	number := 1
	if len(existing) > 0 {
		number = existing[len(existing)-1].Number + 1
	}
	versionKey := fmt.Sprintf("%s_v%d", item.StorageKey, number)

	if err := e.blobs.Copy(ctx, item.StorageKey, versionKey); err != nil {
		e.log.Error(ctx, "version snapshot copy failed", "item", item.ID, "err", err)
		return 0, common.ErrIO
	}

	version := &models.StorageVersion{
		ID:         uuid.NewString(),
		ItemID:     item.ID,
		Number:     number,
		StorageKey: versionKey,
		Size:       item.Size,
		Checksum:   item.Checksum,
		KeyID:      item.KeyID,
		Nonce:      item.Nonce,
		Compressed: item.Compressed,
		Encrypted:  item.Encrypted,
		CreatedBy:  callerID,
		Comment:    comment,
		Restorable: true,
		CreatedAt:  time.Now(),
	}
	if err := e.repos.Versions.Create(ctx, version); err != nil {
		if delErr := e.blobs.Delete(ctx, versionKey); delErr != nil {
			e.log.Warn(ctx, "orphaned version bytes", "key", versionKey, "err", delErr)
		}
		return 0, err
	}
	return number, nil
}

// pruneVersions evicts the oldest versions beyond bound and deletes their
// bytes. Must be called with the item lock held. Returns the retained
// count.
func (e *Engine) pruneVersions(ctx context.Context, itemID string, bound int) (int, error) {
	versions, err := e.repos.Versions.ListByItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if len(versions) <= bound {
		return len(versions), nil
	}

	evict := versions[:len(versions)-bound]
	for _, v := range evict {
		if err := e.blobs.Delete(ctx, v.StorageKey); err != nil {
			e.log.Warn(ctx, "failed to delete evicted version bytes",
				"item", itemID, "number", v.Number, "err", err)
		}
		if err := e.repos.Versions.Delete(ctx, v.ID); err != nil {
			return 0, err
		}
	}
	return bound, nil
}

func (e *Engine) maxVersionsFor(ctx context.Context, item *models.StorageItem) (int, error) {
	if item.VaultID == "" {
		return e.defaultMaxVersions, nil
	}
	vault, err := e.repos.Vaults.GetByID(ctx, item.VaultID)
	if err != nil {
		return 0, err
	}
	if !vault.VersioningEnabled {
		return 0, fmt.Errorf("%w: versioning disabled for vault %s", common.ErrValidation, vault.ID)
	}
	if vault.MaxVersions <= 0 {
		return e.defaultMaxVersions, nil
	}
	return vault.MaxVersions, nil
}
