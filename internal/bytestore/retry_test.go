package bytestore

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// flakyStore fails the first n calls of every operation.
type flakyStore struct {
	ByteStore
	failures int32
}

func (f *flakyStore) Read(ctx context.Context, locator string) ([]byte, error) {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return nil, errors.New("transient backend failure")
	}
	return f.ByteStore.Read(ctx, locator)
}

func TestRetryingStore_RecoversFromTransientFailure(t *testing.T) {
	inner := NewMemoryStore()
	ctx := context.Background()
	if err := inner.Write(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}

	flaky := &flakyStore{ByteStore: inner, failures: 2}
	s := NewRetryingStore(flaky, 3, time.Second)

	data, err := s.Read(ctx, "k")
	if err != nil {
		t.Fatalf("Read after transient failures: %v", err)
	}
	if string(data) != "v" {
		t.Errorf("got %q, want %q", data, "v")
	}
}

func TestRetryingStore_GivesUpAfterMaxRetries(t *testing.T) {
	flaky := &flakyStore{ByteStore: NewMemoryStore(), failures: 100}
	s := NewRetryingStore(flaky, 2, time.Second)

	if _, err := s.Read(context.Background(), "k"); err == nil {
		t.Error("expected error after exhausting retries")
	}
}

func TestRetryingStore_DoesNotRetryMissingObject(t *testing.T) {
	inner := NewMemoryStore()
	s := NewRetryingStore(inner, 5, time.Second)

	start := time.Now()
	_, err := s.Read(context.Background(), "missing")
	if !errors.Is(err, ErrNotExist) {
		t.Fatalf("want ErrNotExist, got %v", err)
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Error("missing object appears to have been retried with backoff")
	}
}
