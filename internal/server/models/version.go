package models

import "time"

// StorageVersion is a retained prior content state of an item. The stored
// bytes keep the compressed/encrypted form they had while active, so the
// version carries its own pipeline state (nonce, key, flags) alongside
// size and checksum for a faithful restore.
type StorageVersion struct {
	ID     string
	ItemID string
	// Number is monotonically increasing per item, starting at 1, with
	// no gaps at assignment time (pruning removes the oldest numbers).
	Number int

	StorageKey string
	Size       int64
	Checksum   string
	KeyID      string
	Nonce      []byte
	Compressed bool
	Encrypted  bool

	CreatedBy  string
	Comment    string
	Restorable bool
	CreatedAt  time.Time
}
