// Package access implements authorization for storage operations:
// capability checks against stored permissions, and signed download grants
// handed out when a share link is redeemed. Authentication itself happens
// outside the engine; callers arrive with an already established identity.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
	"github.com/avolkovs/fieldvault/internal/server/repositories/permissions"
)

// Authorizer answers capability questions about items.
type Authorizer struct {
	perms permissions.Repository
}

func NewAuthorizer(perms permissions.Repository) *Authorizer {
	return &Authorizer{perms: perms}
}

// Require returns nil when userID holds cap on item: the owner holds every
// capability, everyone else needs an unexpired permission entry listing
// it. Anything else is common.ErrAccessDenied.
func (a *Authorizer) Require(ctx context.Context, item *models.StorageItem, userID string, cap models.Capability) error {
	if item.OwnerID == userID {
		return nil
	}

	perm, err := a.perms.GetForUser(ctx, item.ID, userID)
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrAccessDenied
	}
	if err != nil {
		return err
	}
	if perm.Expired(time.Now()) {
		return common.ErrAccessDenied
	}
	if !perm.Capabilities.Has(cap) {
		return fmt.Errorf("%w: missing %s", common.ErrAccessDenied, cap)
	}
	return nil
}
