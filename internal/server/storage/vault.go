package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
	"github.com/google/uuid"
)

// VaultRequest describes a new vault.
type VaultRequest struct {
	OwnerID string
	Name    string

	// CapacityLimit is the quota in bytes; 0 means unlimited.
	CapacityLimit    int64
	WarningThreshold int64

	AutoArchive       bool
	CompressByDefault bool
	VersioningEnabled bool
	// MaxVersions defaults when zero.
	MaxVersions int
}

// CreateVault registers a new vault for an owner.
func (e *Engine) CreateVault(ctx context.Context, req *VaultRequest) (*models.StorageVault, error) {
	if req.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner is required", common.ErrValidation)
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	if req.CapacityLimit < 0 {
		return nil, fmt.Errorf("%w: negative capacity limit", common.ErrValidation)
	}
	if req.WarningThreshold < 0 || (req.CapacityLimit > 0 && req.WarningThreshold > req.CapacityLimit) {
		return nil, fmt.Errorf("%w: warning threshold out of range", common.ErrValidation)
	}

	maxVersions := req.MaxVersions
	if maxVersions <= 0 {
		maxVersions = e.defaultMaxVersions
	}

	now := time.Now()
	vault := &models.StorageVault{
		ID:                uuid.NewString(),
		OwnerID:           req.OwnerID,
		Name:              req.Name,
		CapacityLimit:     req.CapacityLimit,
		WarningThreshold:  req.WarningThreshold,
		AutoArchive:       req.AutoArchive,
		CompressByDefault: req.CompressByDefault,
		VersioningEnabled: req.VersioningEnabled,
		MaxVersions:       maxVersions,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := e.repos.Vaults.Create(ctx, vault); err != nil {
		return nil, err
	}

	e.log.Info(ctx, "created vault", "vault", vault.ID, "owner", req.OwnerID)
	return vault, nil
}

// GetVault fetches a vault owned by the caller.
func (e *Engine) GetVault(ctx context.Context, vaultID, callerID string) (*models.StorageVault, error) {
	vault, err := e.repos.Vaults.GetByID(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if vault.OwnerID != callerID {
		return nil, common.ErrAccessDenied
	}
	return vault, nil
}

// ListVaults returns the caller's vaults.
func (e *Engine) ListVaults(ctx context.Context, callerID string) ([]*models.StorageVault, error) {
	return e.repos.Vaults.ListByOwner(ctx, callerID)
}
