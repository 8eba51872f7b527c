package bytestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps object payloads on the local filesystem under a root
// directory, mirroring the locator's slash-separated segments. Writes go
// through a unique temp file and a rename, so readers never observe a
// partially written object.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at root.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) path(locator string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(locator))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid locator %q", locator)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *LocalStore) Write(ctx context.Context, locator string, data []byte) error {
	objPath, err := s.path(locator)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(objPath), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(objPath), ".obj-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, objPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *LocalStore) Read(ctx context.Context, locator string) ([]byte, error) {
	objPath, err := s.path(locator)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(objPath)
	if os.IsNotExist(err) {
		return nil, ErrNotExist
	}
	return data, err
}

func (s *LocalStore) Delete(ctx context.Context, locator string) error {
	objPath, err := s.path(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(objPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Copy links the source payload into place when the filesystem allows it,
// falling back to a plain byte copy.
func (s *LocalStore) Copy(ctx context.Context, src, dst string) error {
	srcPath, err := s.path(src)
	if err != nil {
		return err
	}
	dstPath, err := s.path(dst)
	if err != nil {
		return err
	}
	if srcPath == dstPath {
		return nil
	}

	if _, err := os.Stat(srcPath); os.IsNotExist(err) {
		return ErrNotExist
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}

	// An existing destination must be removed first, otherwise a hard
	// link would fail and a copy would silently keep the old inode linked.
	if err := os.Remove(dstPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Link(srcPath, dstPath); err == nil {
		return nil
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	return s.Write(ctx, dst, data)
}
