// Package keymanager issues and looks up per-item symmetric keys. Key
// material is persisted through the keys repository, so objects encrypted
// before a restart stay readable after it.
package keymanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/cryptox"
	"github.com/avolkovs/fieldvault/internal/server/models"
	"github.com/avolkovs/fieldvault/internal/server/repositories/keys"
	"github.com/google/uuid"
)

// Provider mints and resolves encryption keys for the storage engine.
type Provider interface {
	// Mint creates, persists and returns a fresh active key.
	Mint(ctx context.Context) (*models.EncryptionKey, error)
	// Lookup resolves id to usable key material and stamps its last-used
	// time. Revoked keys resolve to ErrCrypto.
	Lookup(ctx context.Context, id string) (*models.EncryptionKey, error)
	// Rotate marks the key rotated. Existing objects keep decrypting with
	// it; new writes must mint a new key.
	Rotate(ctx context.Context, id string) error
	// Revoke makes the key unusable for both directions.
	Revoke(ctx context.Context, id string) error
}

// RepositoryProvider is the durable Provider implementation.
type RepositoryProvider struct {
	repo keys.Repository
}

func NewRepositoryProvider(repo keys.Repository) *RepositoryProvider {
	return &RepositoryProvider{repo: repo}
}

func (p *RepositoryProvider) Mint(ctx context.Context) (*models.EncryptionKey, error) {
	material, err := cryptox.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}

	key := &models.EncryptionKey{
		ID:        uuid.NewString(),
		Algorithm: common.AlgorithmAESGCM,
		Material:  material,
		Status:    models.KeyActive,
		CreatedAt: time.Now(),
	}
	if err := p.repo.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("persist key: %w", err)
	}
	return key, nil
}

func (p *RepositoryProvider) Lookup(ctx context.Context, id string) (*models.EncryptionKey, error) {
	key, err := p.repo.GetByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("%w: key not found", common.ErrCrypto)
	}
	if err != nil {
		return nil, err
	}
	if key.Status == models.KeyRevoked {
		return nil, fmt.Errorf("%w: key revoked", common.ErrCrypto)
	}

	// Best effort; a failed stamp must not block decryption. The returned
	// record reflects the stamp so callers see the post-lookup state.
	if err := p.repo.Touch(ctx, id); err == nil {
		now := time.Now()
		key.LastUsed = &now
	}

	return key, nil
}

func (p *RepositoryProvider) Rotate(ctx context.Context, id string) error {
	return p.repo.UpdateStatus(ctx, id, models.KeyRotated)
}

func (p *RepositoryProvider) Revoke(ctx context.Context, id string) error {
	return p.repo.UpdateStatus(ctx, id, models.KeyRevoked)
}
