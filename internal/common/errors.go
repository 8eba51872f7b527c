// Package common defines shared constants and sentinel errors used across
// FieldVault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Validation / lookup errors, surfaced to callers with their message.
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")

	// Authorization errors (missing capability, expired permission,
	// dead share link, wrong share password).
	ErrAccessDenied = errors.New("access denied")

	// Pipeline errors. Detail is logged internally; callers only ever
	// see the bare sentinel.
	ErrIntegrity = errors.New("integrity check failed")
	ErrCrypto    = errors.New("crypto failure")
	ErrIO        = errors.New("storage io failure")

	// Vault quota exceeded.
	ErrCapacity = errors.New("capacity exceeded")

	// Concurrent writer lost an optimistic version check.
	ErrVersionConflict = errors.New("version conflict")

	// Grant errors (invalid or malformed download grant).
	ErrInvalidGrant = errors.New("invalid grant")
)
