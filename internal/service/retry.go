package service

import (
	"context"
	"time"
)

// retryFixed ejecuta fn hasta maxRetries reintentos con delay fijo, solo
// mientras retryable(err) sea true. Sin backoff: la ventana que cubre es el
// aprovisionamiento del backend, no fallas de red.
func retryFixed[T any](
	ctx context.Context,
	maxRetries int,
	delay time.Duration,
	fn func(ctx context.Context) (T, error),
	retryable func(error) bool,
) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) || attempt == maxRetries {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
