// Package ratelimit provides the single process-wide throttle shared by
// every call into the anti-bot solver. The solver fronts one origin site;
// exceeding its tolerated request rate gets the solver's exit blocked, which
// takes down scraping for everyone.
package ratelimit

import (
	"context"

	"rocket-tracker/internal/config"

	"go.uber.org/fx"
	"golang.org/x/time/rate"
)

type Limiter struct {
	limiter *rate.Limiter
}

// New builds a limiter from a requests-per-minute budget. Burst is 1 so
// calls spread evenly instead of clustering at window edges.
func New(cfg *config.Config) *Limiter {
	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	return &Limiter{limiter: rate.NewLimiter(perSecond, 1)}
}

// Wait blocks until a request slot frees or the context ends. Safe for
// concurrent use; waiting callers queue inside rate.Limiter.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

var Module = fx.Provide(New)
