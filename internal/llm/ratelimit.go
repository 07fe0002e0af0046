package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces calls to the capability provider. It is injected into the
// client so production can match a provider quota while tests disable
// pacing entirely.
type Limiter interface {
	Wait(ctx context.Context) error
}

// FixedDelay spaces consecutive calls at least delay apart. The first
// call goes through immediately.
func FixedDelay(delay time.Duration) Limiter {
	return rate.NewLimiter(rate.Every(delay), 1)
}

type nopLimiter struct{}

func (nopLimiter) Wait(context.Context) error { return nil }

// NopLimiter never waits. Intended for tests.
func NopLimiter() Limiter { return nopLimiter{} }
