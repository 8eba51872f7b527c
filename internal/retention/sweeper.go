// Package retention runs lifecycle policies over stored items: a
// ticker-driven sweeper matches items against policy rules and applies
// the resulting archive/delete/compress actions through the storage
// engine, acting as the item's owner.
package retention

import (
	"context"
	"time"

	"github.com/avolkovs/fieldvault/internal/logging"
	"github.com/avolkovs/fieldvault/internal/server/models"
	"github.com/avolkovs/fieldvault/internal/server/storage"
)

// Engine is the subset of storage-engine operations the sweeper consumes.
type Engine interface {
	ListAllFiles(ctx context.Context, status models.ItemStatus) ([]*models.StorageItem, error)
	ArchiveFile(ctx context.Context, itemID, callerID string) error
	DeleteFile(ctx context.Context, itemID, callerID string, permanent bool) error
	CompressFile(ctx context.Context, itemID, callerID string) error
}

var _ Engine = (*storage.Engine)(nil)

// Sweeper evaluates retention policies on a fixed interval.
type Sweeper struct {
	engine   Engine
	policies []models.RetentionPolicy
	interval time.Duration
	log      logging.Logger

	now func() time.Time
}

func NewSweeper(engine Engine, policies []models.RetentionPolicy, interval time.Duration, log logging.Logger) *Sweeper {
	return &Sweeper{
		engine:   engine,
		policies: policies,
		interval: interval,
		log:      log.With("component", "retention-sweeper"),
		now:      time.Now,
	}
}

// Run sweeps until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one evaluation pass over all active items. Action failures
// are logged and do not stop the pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	items, err := s.engine.ListAllFiles(ctx, models.StatusActive)
	if err != nil {
		s.log.Error(ctx, "failed to list items for sweep", "err", err)
		return
	}

	applied := 0
	for _, item := range items {
		if action, ok := s.match(item); ok {
			if err := s.apply(ctx, item, action); err != nil {
				s.log.Warn(ctx, "retention action failed",
					"item", item.ID, "action", action, "err", err)
				continue
			}
			applied++
		}
	}

	if applied > 0 {
		s.log.Info(ctx, "sweep applied retention actions", "count", applied)
	}
}

// match returns the first action whose policy scopes and rule conditions
// cover the item. Rules are evaluated in declaration order.
func (s *Sweeper) match(item *models.StorageItem) (models.RetentionAction, bool) {
	now := s.now()
	for _, policy := range s.policies {
		if !policy.Enabled || !inScope(policy, item) {
			continue
		}
		for _, rule := range policy.Rules {
			if ruleMatches(rule, item, now) {
				return rule.Action, true
			}
		}
	}
	return "", false
}

func inScope(policy models.RetentionPolicy, item *models.StorageItem) bool {
	switch policy.Scope {
	case models.ScopeGlobal:
		return true
	case models.ScopeVault:
		return item.VaultID == policy.Target
	case models.ScopeType:
		return item.ContentType == policy.Target
	case models.ScopeUser:
		return item.OwnerID == policy.Target
	default:
		return false
	}
}

func ruleMatches(rule models.RetentionRule, item *models.StorageItem, now time.Time) bool {
	cutoff := now.Add(-rule.Threshold - rule.Delay)
	switch rule.Condition {
	case models.CondAgeOver:
		return item.CreatedAt.Before(cutoff)
	case models.CondNotAccessedFor:
		last := item.CreatedAt
		if item.LastAccessed != nil {
			last = *item.LastAccessed
		}
		return last.Before(cutoff)
	default:
		return false
	}
}

func (s *Sweeper) apply(ctx context.Context, item *models.StorageItem, action models.RetentionAction) error {
	switch action {
	case models.ActionArchive:
		return s.engine.ArchiveFile(ctx, item.ID, item.OwnerID)
	case models.ActionDelete:
		return s.engine.DeleteFile(ctx, item.ID, item.OwnerID, false)
	case models.ActionCompress:
		return s.engine.CompressFile(ctx, item.ID, item.OwnerID)
	default:
		return nil
	}
}
