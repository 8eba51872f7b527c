package models

import "time"

// ShareLink grants capability- and usage-bounded access to one item
// without requiring caller identity. The token is an opaque random value;
// the optional password is stored only as a salted argon2id verifier.
type ShareLink struct {
	ID     string
	ItemID string
	Token  string

	Capabilities CapabilitySet

	ExpiresAt *time.Time
	// MaxAccess caps total redemptions; 0 means unlimited.
	MaxAccess   int
	AccessCount int

	PasswordHash string

	CreatedBy string
	CreatedAt time.Time
}

// Expired reports whether the link is past its expiry at now. Usage
// exhaustion is enforced atomically at redemption time, not here.
func (l *ShareLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}
