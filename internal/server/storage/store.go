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

// StoreRequest describes one storeFile operation. Encryption is on unless
// explicitly disabled; compression is opt-in (or inherited from the vault
// default) and only applies above the engine threshold.
type StoreRequest struct {
	Name        string
	ContentType string
	Metadata    map[string]string
	Data        []byte
	OwnerID     string
	VaultID     string

	Compress          bool
	DisableEncryption bool
}

// StoreResult reports what StoreFile persisted.
type StoreResult struct {
	ItemID     string
	Checksum   string
	Size       int64
	Compressed bool
	Encrypted  bool
}

// StoreFile validates, transforms and persists a new item, granting its
// owner the full capability set and charging the owning vault's capacity.
func (e *Engine) StoreFile(ctx context.Context, req StoreRequest) (*StoreResult, error) {
	if req.Name == "" || req.OwnerID == "" {
		return nil, fmt.Errorf("%w: name and owner are required", common.ErrValidation)
	}
	size := int64(len(req.Data))
	if size > e.maxObjectSize {
		return nil, fmt.Errorf("%w: object of %d bytes exceeds maximum %d", common.ErrValidation, size, e.maxObjectSize)
	}

	// The checksum always covers the original bytes, before compression
	// and encryption.
	checksum := digest.Sum(req.Data)

	compress := req.Compress
	var vault *models.StorageVault
	if req.VaultID != "" {
		var err error
		vault, err = e.repos.Vaults.GetByID(ctx, req.VaultID)
		if err != nil {
			return nil, err
		}
		compress = compress || vault.CompressByDefault
	}

	sealed, err := e.seal(ctx, req.Data, compress, !req.DisableEncryption, "")
	if err != nil {
		return nil, err
	}

	// Reserve vault capacity before touching the byte store, so a quota
	// breach fails fast and concurrent uploads cannot oversubscribe.
	if vault != nil {
		if err := e.repos.Vaults.AddUsed(ctx, vault.ID, size); err != nil {
			return nil, err
		}
		e.warnNearCapacity(ctx, vault, size)
	}

	storageKey := newStorageKey()
	if err := e.blobs.Write(ctx, storageKey, sealed.data); err != nil {
		e.releaseCapacity(ctx, req.VaultID, size)
		e.log.Error(ctx, "byte store write failed", "err", err)
		return nil, common.ErrIO
	}

	now := time.Now()
	item := &models.StorageItem{
		ID:          uuid.NewString(),
		OwnerID:     req.OwnerID,
		VaultID:     req.VaultID,
		Name:        req.Name,
		ContentType: req.ContentType,
		Metadata:    req.Metadata,
		Size:        size,
		StorageKey:  storageKey,
		KeyID:       sealed.keyID,
		Nonce:       sealed.nonce,
		Compressed:  sealed.compressed,
		Encrypted:   sealed.encrypted,
		Checksum:    checksum,
		Status:      models.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if item.Encrypted {
		item.Algorithm = common.AlgorithmAESGCM
	}

	if err := e.repos.Items.Create(ctx, item); err != nil {
		if delErr := e.blobs.Delete(ctx, storageKey); delErr != nil {
			e.log.Warn(ctx, "orphaned bytes after failed item create", "key", storageKey, "err", delErr)
		}
		e.releaseCapacity(ctx, req.VaultID, size)
		return nil, err
	}

	ownerPerm := &models.StoragePermission{
		ID:           uuid.NewString(),
		ItemID:       item.ID,
		UserID:       req.OwnerID,
		Role:         "owner",
		Capabilities: models.AllCapabilities(),
		GrantedBy:    req.OwnerID,
		GrantedAt:    now,
	}
	if err := e.repos.Permissions.Create(ctx, ownerPerm); err != nil {
		e.log.Warn(ctx, "failed to record owner permission", "item", item.ID, "err", err)
	}

	e.log.Info(ctx, "stored object", "item", item.ID, "bytes", size,
		"compressed", item.Compressed, "encrypted", item.Encrypted)

	return &StoreResult{
		ItemID:     item.ID,
		Checksum:   checksum,
		Size:       size,
		Compressed: item.Compressed,
		Encrypted:  item.Encrypted,
	}, nil
}

func (e *Engine) releaseCapacity(ctx context.Context, vaultID string, size int64) {
	if vaultID == "" || size == 0 {
		return
	}
	if err := e.repos.Vaults.AddUsed(ctx, vaultID, -size); err != nil {
		e.log.Warn(ctx, "failed to release vault capacity", "vault", vaultID, "err", err)
	}
}

func (e *Engine) warnNearCapacity(ctx context.Context, vault *models.StorageVault, delta int64) {
	if vault.WarningThreshold <= 0 {
		return
	}
	if vault.CapacityUsed+delta >= vault.WarningThreshold {
		e.log.Warn(ctx, "vault usage crossed warning threshold",
			"vault", vault.ID, "used", vault.CapacityUsed+delta, "threshold", vault.WarningThreshold)
	}
}
