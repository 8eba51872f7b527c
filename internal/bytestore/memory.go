package bytestore

import (
	"context"
	"sync"
)

// MemoryStore is an in-process ByteStore for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Write(ctx context.Context, locator string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := make([]byte, len(data))
	copy(clone, data)
	s.objects[locator] = clone
	return nil
}

func (s *MemoryStore) Read(ctx context.Context, locator string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[locator]
	if !ok {
		return nil, ErrNotExist
	}
	clone := make([]byte, len(data))
	copy(clone, data)
	return clone, nil
}

func (s *MemoryStore) Delete(ctx context.Context, locator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, locator)
	return nil
}

func (s *MemoryStore) Copy(ctx context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[src]
	if !ok {
		return ErrNotExist
	}
	clone := make([]byte, len(data))
	copy(clone, data)
	s.objects[dst] = clone
	return nil
}

// Exists reports whether the locator currently has bytes. Test helper.
func (s *MemoryStore) Exists(locator string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[locator]
	return ok
}

// Corrupt flips one byte of the stored object in place. Test helper for
// integrity scenarios.
func (s *MemoryStore) Corrupt(locator string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[locator]
	if !ok || len(data) == 0 {
		return false
	}
	data[0] ^= 0x01
	return true
}

// Len returns the number of stored objects. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
