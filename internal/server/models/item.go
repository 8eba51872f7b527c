// Package models defines the data model persisted through the metadata
// repositories. Versions, permissions and share links are stored as
// separate collections keyed by item id rather than embedded in the item
// record, so each can grow and be evicted independently.
package models

import "time"

// ItemStatus is the lifecycle state of a stored item.
type ItemStatus string

const (
	StatusActive    ItemStatus = "active"
	StatusArchived  ItemStatus = "archived"
	StatusDeleted   ItemStatus = "deleted"
	StatusCorrupted ItemStatus = "corrupted"
)

// StorageItem describes one logical stored object: its metadata, the
// location of its current content, and the crypto parameters needed to
// read it back.
type StorageItem struct {
	ID string
	// OwnerID is the creator; the owner implicitly holds every capability.
	OwnerID string
	// VaultID scopes the item to a capacity/policy container. Empty for
	// unscoped items.
	VaultID string

	Name        string
	ContentType string
	// Metadata is an opaque caller-supplied key/value set persisted with
	// the item. The engine stores and returns it untouched.
	Metadata map[string]string
	// Size is the logical size of the original bytes, before compression
	// and encryption.
	Size int64

	// StorageKey locates the current (possibly transformed) bytes in the
	// byte store.
	StorageKey string

	// KeyID references the EncryptionKey used for the current content.
	// Empty when the item is stored unencrypted.
	KeyID     string
	Algorithm string
	// Nonce is the AEAD nonce for the current content. A fresh nonce is
	// recorded on every write of the active slot.
	Nonce []byte

	Compressed bool
	Encrypted  bool

	// Checksum is the hex digest of the original bytes supplied at the
	// most recent write. Every successful retrieval recomputes it after
	// decrypt+decompress and must get the same value.
	Checksum string

	Status ItemStatus

	AccessCount  int64
	LastAccessed *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
