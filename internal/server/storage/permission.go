package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
	"github.com/google/uuid"
)

// GrantRequest describes a permission grant on an item.
type GrantRequest struct {
	ItemID   string
	CallerID string

	UserID       string
	Role         string
	Capabilities models.CapabilitySet
	ExpiresAt    *time.Time
}

// GrantAccess records a capability set for a user on an item. Requires
// the share capability.
func (e *Engine) GrantAccess(ctx context.Context, req *GrantRequest) (*models.StoragePermission, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user is required", common.ErrValidation)
	}
	if len(req.Capabilities) == 0 {
		return nil, fmt.Errorf("%w: empty capability set", common.ErrValidation)
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("%w: expiry in the past", common.ErrValidation)
	}

	item, err := e.repos.Items.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if err := e.auth.Require(ctx, item, req.CallerID, models.CapShare); err != nil {
		return nil, err
	}

	perm := &models.StoragePermission{
		ID:           uuid.NewString(),
		ItemID:       req.ItemID,
		UserID:       req.UserID,
		Role:         req.Role,
		Capabilities: req.Capabilities,
		GrantedBy:    req.CallerID,
		GrantedAt:    time.Now(),
		ExpiresAt:    req.ExpiresAt,
	}
	if err := e.repos.Permissions.Create(ctx, perm); err != nil {
		return nil, err
	}

	e.log.Info(ctx, "granted access", "item", req.ItemID, "user", req.UserID,
		"capabilities", req.Capabilities.String())
	return perm, nil
}

// RevokeAccess removes a user's permission entry from an item. Requires
// the share capability; the owner's own entry cannot be revoked.
func (e *Engine) RevokeAccess(ctx context.Context, itemID, userID, callerID string) error {
	item, err := e.repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if err := e.auth.Require(ctx, item, callerID, models.CapShare); err != nil {
		return err
	}
	if userID == item.OwnerID {
		return fmt.Errorf("%w: cannot revoke the owner", common.ErrValidation)
	}

	perm, err := e.repos.Permissions.GetForUser(ctx, itemID, userID)
	if err != nil {
		return err
	}
	if err := e.repos.Permissions.Delete(ctx, perm.ID); err != nil {
		return err
	}

	e.log.Info(ctx, "revoked access", "item", itemID, "user", userID)
	return nil
}
