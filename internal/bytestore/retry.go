package bytestore

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryingStore decorates a ByteStore with bounded exponential backoff and
// a per-attempt timeout, so transient backend failures retry instead of
// failing the operation. Missing objects are not retried.
type RetryingStore struct {
	next           ByteStore
	attemptTimeout time.Duration
	backoff        func() retry.Backoff
}

// NewRetryingStore wraps next. maxRetries bounds the retry count beyond
// the first attempt; attemptTimeout bounds each individual attempt.
func NewRetryingStore(next ByteStore, maxRetries uint64, attemptTimeout time.Duration) *RetryingStore {
	return &RetryingStore{
		next:           next,
		attemptTimeout: attemptTimeout,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(maxRetries, retry.NewExponential(50*time.Millisecond))
		},
	}
}

func (s *RetryingStore) do(ctx context.Context, op func(ctx context.Context) error) error {
	return retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attemptCtx := ctx
		if s.attemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, s.attemptTimeout)
			defer cancel()
		}
		err := op(attemptCtx)
		if err == nil || errors.Is(err, ErrNotExist) {
			return err
		}
		return retry.RetryableError(err)
	})
}

func (s *RetryingStore) Write(ctx context.Context, locator string, data []byte) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.next.Write(ctx, locator, data)
	})
}

func (s *RetryingStore) Read(ctx context.Context, locator string) ([]byte, error) {
	var data []byte
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		data, err = s.next.Read(ctx, locator)
		return err
	})
	return data, err
}

func (s *RetryingStore) Delete(ctx context.Context, locator string) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.next.Delete(ctx, locator)
	})
}

func (s *RetryingStore) Copy(ctx context.Context, src, dst string) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.next.Copy(ctx, src, dst)
	})
}
