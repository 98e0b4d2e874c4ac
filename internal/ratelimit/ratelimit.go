package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

var ErrThrottled = errors.New("too many scrape requests")

// Gate admits scrapes. A token bucket throttles how often they start and a
// weighted semaphore bounds how many browser sessions run at once.
type Gate struct {
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	max     int64
}

// NewGate allows perSecond scrapes per second with the given burst and at
// most maxConcurrent running together.
func NewGate(perSecond float64, burst, maxConcurrent int) *Gate {
	if burst < 1 {
		burst = 1
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Gate{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     int64(maxConcurrent),
	}
}

// Enter reserves a slot for one scrape. It fails fast with ErrThrottled when
// the bucket is empty and otherwise waits for a free session slot until ctx
// is done. Callers must call the returned release func exactly once.
func (g *Gate) Enter(ctx context.Context) (func(), error) {
	if !g.limiter.Allow() {
		return nil, ErrThrottled
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a free browser slot: %w", err)
	}
	return func() { g.sem.Release(1) }, nil
}

func (g *Gate) MaxConcurrent() int {
	return int(g.max)
}
