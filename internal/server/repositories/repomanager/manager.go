// Package repomanager wires repository implementations together for
// injection into the storage engine.
package repomanager

import (
	"github.com/avolkovs/fieldvault/internal/server/repositories/items"
	"github.com/avolkovs/fieldvault/internal/server/repositories/keys"
	"github.com/avolkovs/fieldvault/internal/server/repositories/permissions"
	"github.com/avolkovs/fieldvault/internal/server/repositories/sharelinks"
	"github.com/avolkovs/fieldvault/internal/server/repositories/vaults"
	"github.com/avolkovs/fieldvault/internal/server/repositories/versions"
)

// Repositories bundles the per-aggregate metadata repositories consumed
// by the storage engine.
type Repositories struct {
	Items       items.Repository
	Versions    versions.Repository
	Permissions permissions.Repository
	ShareLinks  sharelinks.Repository
	Vaults      vaults.Repository
	Keys        keys.Repository
}

// NewMemory returns a fully in-process repository set.
func NewMemory() Repositories {
	return Repositories{
		Items:       items.NewMemoryRepository(),
		Versions:    versions.NewMemoryRepository(),
		Permissions: permissions.NewMemoryRepository(),
		ShareLinks:  sharelinks.NewMemoryRepository(),
		Vaults:      vaults.NewMemoryRepository(),
		Keys:        keys.NewMemoryRepository(),
	}
}
