// Package bytestore abstracts the raw byte persistence consumed by the
// storage engine. Implementations exist for the local filesystem, for
// S3-compatible object storage, and in memory for tests.
package bytestore

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Read/Copy when the locator has no bytes.
var ErrNotExist = errors.New("object does not exist")

// ByteStore writes, reads, deletes and copies raw bytes at a locator
// (a slash-separated path/key).
type ByteStore interface {
	Write(ctx context.Context, locator string, data []byte) error
	Read(ctx context.Context, locator string) ([]byte, error)
	Delete(ctx context.Context, locator string) error
	Copy(ctx context.Context, src, dst string) error
}
