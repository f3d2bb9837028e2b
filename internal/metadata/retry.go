package metadata

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
	"github.com/ivlev/prompt2path/pkg/logger"
)

const (
	DefaultMaxTries        = 3
	DefaultInitialInterval = 100 * time.Millisecond
)

// RetryingStore retries retryable store failures with exponential backoff.
// Not-found and invalid input are returned immediately.
type RetryingStore struct {
	next            Store
	MaxTries        uint
	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

func NewRetryingStore(next Store) *RetryingStore {
	return &RetryingStore{
		next:            next,
		MaxTries:        DefaultMaxTries,
		InitialInterval: DefaultInitialInterval,
		MaxElapsed:      5 * time.Second,
	}
}

func (s *RetryingStore) GetModelMetadata(ctx context.Context, id string) (*ModelMetadata, error) {
	return retry(ctx, s, "get", func() (*ModelMetadata, error) {
		return s.next.GetModelMetadata(ctx, id)
	})
}

func (s *RetryingStore) StoreModelMetadata(ctx context.Context, id string, md *ModelMetadata) error {
	_, err := retry(ctx, s, "store", func() (struct{}, error) {
		return struct{}{}, s.next.StoreModelMetadata(ctx, id, md)
	})
	return err
}

func (s *RetryingStore) StoreEnvironmentalMetadata(ctx context.Context, id string, env *EnvironmentMetadata) error {
	_, err := retry(ctx, s, "store_environment", func() (struct{}, error) {
		return struct{}{}, s.next.StoreEnvironmentalMetadata(ctx, id, env)
	})
	return err
}

func retry[T any](ctx context.Context, s *RetryingStore, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.InitialInterval

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !apperrors.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		logger.Debug(ctx, "metadata store call failed, retrying", "op", op, "attempt", attempt, "error", err)
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.MaxTries),
		backoff.WithMaxElapsedTime(s.MaxElapsed),
	)
}
