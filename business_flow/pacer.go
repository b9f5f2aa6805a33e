package businessflow

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks between consecutive sends
type Pacer interface {
	Wait(ctx context.Context) error
}

// PacerFactory builds a pacer for a given gap between sends
type PacerFactory func(gap time.Duration) Pacer

// RatePacer spaces sends by a fixed gap using a single-token bucket
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer returns a pacer whose first Wait already blocks for one gap
func NewRatePacer(gap time.Duration) Pacer {
	if gap <= 0 {
		return noopPacer{}
	}
	limiter := rate.NewLimiter(rate.Every(gap), 1)
	limiter.Allow()
	return &RatePacer{limiter: limiter}
}

func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

type noopPacer struct{}

func (noopPacer) Wait(context.Context) error { return nil }

// NoopPacerFactory never waits
func NoopPacerFactory(time.Duration) Pacer { return noopPacer{} }
