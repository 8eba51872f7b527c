package models

import "time"

// KeyStatus is the lifecycle state of an encryption key.
type KeyStatus string

const (
	KeyActive  KeyStatus = "active"
	KeyRotated KeyStatus = "rotated"
	KeyRevoked KeyStatus = "revoked"
)

// EncryptionKey holds per-item symmetric key material. The nonce for each
// encryption operation is generated fresh per write and stored on the item
// or version, never on the key.
type EncryptionKey struct {
	ID        string
	Algorithm string
	Material  []byte

	Status    KeyStatus
	CreatedAt time.Time
	LastUsed  *time.Time
}
