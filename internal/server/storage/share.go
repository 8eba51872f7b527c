package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/cryptox"
	"github.com/avolkovs/fieldvault/internal/server/access"
	"github.com/avolkovs/fieldvault/internal/server/models"
	"github.com/google/uuid"
)

// ShareRequest describes a new share link for an item.
type ShareRequest struct {
	ItemID   string
	CallerID string

	// Capabilities defaults to read+download when empty.
	Capabilities models.CapabilitySet

	ExpiresAt *time.Time
	// MaxAccess caps total redemptions; 0 means unlimited.
	MaxAccess int
	// Password, when set, must be presented at redemption.
	Password string
}

// ShareResult is the caller-facing view of a created link.
type ShareResult struct {
	Token     string
	URL       string
	ExpiresAt *time.Time
	MaxAccess int
}

// RedeemResult is what a successful redemption yields: a short-lived
// signed grant for the underlying item.
type RedeemResult struct {
	ItemID       string
	Grant        string
	Capabilities models.CapabilitySet
}

// CreateShareLink issues an anonymous-access token for an item. Requires
// the share capability on the item.
func (e *Engine) CreateShareLink(ctx context.Context, req *ShareRequest) (*ShareResult, error) {
	if req.MaxAccess < 0 {
		return nil, fmt.Errorf("%w: negative max access", common.ErrValidation)
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("%w: expiry in the past", common.ErrValidation)
	}

	item, err := e.repos.Items.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.StatusActive {
		return nil, common.ErrNotFound
	}
	if err := e.auth.Require(ctx, item, req.CallerID, models.CapShare); err != nil {
		return nil, err
	}

	caps := req.Capabilities
	if len(caps) == 0 {
		caps = models.CapabilitySet{models.CapRead, models.CapDownload}
	}

	var passwordHash string
	if req.Password != "" {
		passwordHash, err = cryptox.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash share password: %w", err)
		}
	}

	token, err := cryptox.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate share token: %w", err)
	}

	link := &models.ShareLink{
		ID:           uuid.NewString(),
		ItemID:       req.ItemID,
		Token:        token,
		Capabilities: caps,
		ExpiresAt:    req.ExpiresAt,
		MaxAccess:    req.MaxAccess,
		PasswordHash: passwordHash,
		CreatedBy:    req.CallerID,
		CreatedAt:    time.Now(),
	}
	if err := e.repos.ShareLinks.Create(ctx, link); err != nil {
		return nil, err
	}

	e.log.Info(ctx, "created share link", "item", req.ItemID, "max_access", req.MaxAccess)
	return &ShareResult{
		Token:     token,
		URL:       "/share/" + token,
		ExpiresAt: req.ExpiresAt,
		MaxAccess: req.MaxAccess,
	}, nil
}

// RedeemShareLink exchanges a token (and password, if the link has one)
// for a signed download grant, consuming one access from the link's cap.
// Expired, exhausted or bad-password redemptions all return
// common.ErrAccessDenied.
func (e *Engine) RedeemShareLink(ctx context.Context, token, password string) (*RedeemResult, error) {
	link, err := e.repos.ShareLinks.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrAccessDenied
		}
		return nil, err
	}
	if link.Expired(time.Now()) {
		return nil, common.ErrAccessDenied
	}
	if link.PasswordHash != "" && !cryptox.VerifyPassword(password, link.PasswordHash) {
		return nil, common.ErrAccessDenied
	}

	// The item check runs before the counter increment, so a redemption
	// against a deleted or archived item does not burn a bounded use.
	item, err := e.repos.Items.GetByID(ctx, link.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.StatusActive {
		return nil, common.ErrNotFound
	}

	// The counter increment is conditional on the cap; two concurrent
	// redemptions of a one-use link race here and exactly one wins.
	if err := e.repos.ShareLinks.Redeem(ctx, token); err != nil {
		return nil, err
	}

	grant, err := access.IssueGrant(item.ID, link.Capabilities, e.grantSecret, e.grantTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue grant: %w", err)
	}

	e.log.Info(ctx, "redeemed share link", "item", link.ItemID)
	return &RedeemResult{
		ItemID:       item.ID,
		Grant:        grant,
		Capabilities: link.Capabilities,
	}, nil
}

// RetrieveByGrant fetches an item's content using a download grant issued
// by RedeemShareLink instead of a caller identity.
func (e *Engine) RetrieveByGrant(ctx context.Context, grant string) (*FileContent, error) {
	claims, err := access.ParseGrant(grant, e.grantSecret)
	if err != nil {
		return nil, err
	}

	caps := make(models.CapabilitySet, len(claims.Capabilities))
	for i, c := range claims.Capabilities {
		caps[i] = models.Capability(c)
	}
	if !caps.Has(models.CapRead) && !caps.Has(models.CapDownload) {
		return nil, common.ErrAccessDenied
	}

	item, err := e.repos.Items.GetByID(ctx, claims.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.StatusActive {
		return nil, common.ErrNotFound
	}

	return e.fetchContent(ctx, item)
}
