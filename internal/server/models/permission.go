package models

import (
	"strings"
	"time"
)

// Capability is a single permitted action on an item.
type Capability string

const (
	CapRead   Capability = "read"
	CapWrite  Capability = "write"
	CapDelete Capability = "delete"
	CapShare  Capability = "share"
	// CapDownload is a share-link-only capability.
	CapDownload Capability = "download"
)

// CapabilitySet is an unordered collection of capabilities.
type CapabilitySet []Capability

// Has reports whether the set contains c.
func (s CapabilitySet) Has(c Capability) bool {
	for _, v := range s {
		if v == c {
			return true
		}
	}
	return false
}

// String renders the set in its stored form, e.g. "read,write".
func (s CapabilitySet) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

// ParseCapabilitySet reverses CapabilitySet.String.
func ParseCapabilitySet(s string) CapabilitySet {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	set := make(CapabilitySet, len(parts))
	for i, p := range parts {
		set[i] = Capability(p)
	}
	return set
}

// AllCapabilities is the full set granted to an item's owner on creation.
func AllCapabilities() CapabilitySet {
	return CapabilitySet{CapRead, CapWrite, CapDelete, CapShare}
}

// StoragePermission grants a user a capability set on one item, optionally
// until an expiry. An expired permission is treated as absent.
type StoragePermission struct {
	ID     string
	ItemID string
	UserID string
	Role   string

	Capabilities CapabilitySet

	GrantedBy string
	GrantedAt time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the permission has lapsed at now.
func (p *StoragePermission) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}
