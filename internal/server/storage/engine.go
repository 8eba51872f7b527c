// Package storage implements the storage engine: the orchestrator that
// composes checksum, compression, encryption, key management, versioning
// and access control over two injected collaborators, the metadata
// repositories and the byte store.
package storage

import (
	"fmt"
	"time"

	"github.com/avolkovs/fieldvault/internal/bytestore"
	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/keymanager"
	"github.com/avolkovs/fieldvault/internal/logging"
	"github.com/avolkovs/fieldvault/internal/server/access"
	"github.com/avolkovs/fieldvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Options carries the tunable limits of the engine. Zero values fall back
// to the defaults in the common package.
type Options struct {
	MaxObjectSize        int64
	CompressionThreshold int64
	DefaultMaxVersions   int
	GrantSecret          string
	GrantTTL             time.Duration
}

// Engine is the storage orchestrator. It is safe for concurrent use;
// mutations of a single item are serialized through a per-item lock arena.
type Engine struct {
	repos repomanager.Repositories
	blobs bytestore.ByteStore
	keys  keymanager.Provider
	auth  *access.Authorizer
	log   logging.Logger

	maxObjectSize        int64
	compressionThreshold int64
	defaultMaxVersions   int
	grantSecret          []byte
	grantTTL             time.Duration

	locks *lockArena
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(repos repomanager.Repositories, blobs bytestore.ByteStore, keys keymanager.Provider, log logging.Logger, opts Options) *Engine {
	if opts.MaxObjectSize <= 0 {
		opts.MaxObjectSize = common.DefaultMaxObjectSize
	}
	if opts.CompressionThreshold <= 0 {
		opts.CompressionThreshold = common.DefaultCompressionThreshold
	}
	if opts.DefaultMaxVersions <= 0 {
		opts.DefaultMaxVersions = common.DefaultMaxVersions
	}
	if opts.GrantTTL <= 0 {
		opts.GrantTTL = 15 * time.Minute
	}

	return &Engine{
		repos:                repos,
		blobs:                blobs,
		keys:                 keys,
		auth:                 access.NewAuthorizer(repos.Permissions),
		log:                  log.With("component", "storage-engine"),
		maxObjectSize:        opts.MaxObjectSize,
		compressionThreshold: opts.CompressionThreshold,
		defaultMaxVersions:   opts.DefaultMaxVersions,
		grantSecret:          []byte(opts.GrantSecret),
		grantTTL:             opts.GrantTTL,
		locks:                newLockArena(),
	}
}

// newStorageKey generates a unique byte-store locator for a new object.
func newStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("items/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}
