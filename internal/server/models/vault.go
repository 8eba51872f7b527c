package models

import "time"

// StorageVault is a capacity- and policy-scoped container grouping items
// under shared settings and quota.
type StorageVault struct {
	ID      string
	OwnerID string
	Name    string

	// CapacityLimit is the quota in bytes; 0 means unlimited.
	CapacityLimit int64
	// CapacityUsed is adjusted by the signed size delta of every store,
	// delete and version operation scoped to this vault. Never negative.
	CapacityUsed int64
	// WarningThreshold triggers a log warning when usage crosses it.
	WarningThreshold int64

	AutoArchive       bool
	CompressByDefault bool
	Deduplicate       bool
	VersioningEnabled bool
	// MaxVersions bounds the retained version history per item.
	MaxVersions int

	CreatedAt time.Time
	UpdatedAt time.Time
}
