package collision

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/entity"
	"github.com/opd-ai/go-collide/pkg/logging"
)

// PairFilter lets the host suppress pair checks before any geometry work,
// for example between projectiles of the same team.
type PairFilter interface {
	ShouldSkipPair(src, dst entity.Body, deltaTimeMs float64) bool
}

// PairFilterFunc adapts a function to PairFilter
type PairFilterFunc func(src, dst entity.Body, deltaTimeMs float64) bool

// ShouldSkipPair calls f
func (f PairFilterFunc) ShouldSkipPair(src, dst entity.Body, deltaTimeMs float64) bool {
	return f(src, dst, deltaTimeMs)
}

// GuardedFilter wraps a host filter with a circuit breaker. Panics raised by
// the filter count as failures; after enough consecutive failures the breaker
// opens and the filter is bypassed, so every pair gets checked, until the
// breaker's timeout lets a trial call through.
//
// The breaker allocates on every call, so a GuardedFilter trades the
// allocation-free step for isolation from a misbehaving filter.
type GuardedFilter struct {
	filter  PairFilter
	breaker *gobreaker.TwoStepCircuitBreaker
	logger  *logging.Logger
}

// NewGuardedFilter creates a GuardedFilter around filter. A nil logger
// discards breaker logs.
func NewGuardedFilter(filter PairFilter, settings config.BreakerConfig, logger *logging.Logger) *GuardedFilter {
	if logger == nil {
		logger = logging.Discard()
	}
	maxFailures := uint32(settings.MaxConsecutiveFailures)
	if maxFailures == 0 {
		maxFailures = 1
	}

	g := &GuardedFilter{filter: filter, logger: logger}
	g.breaker = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        "collide-pair-filter",
		MaxRequests: uint32(settings.MaxRequests),
		Interval:    time.Duration(settings.Interval),
		Timeout:     time.Duration(settings.Timeout),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "pair filter breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return g
}

// ShouldSkipPair consults the wrapped filter unless the breaker is open
func (g *GuardedFilter) ShouldSkipPair(src, dst entity.Body, deltaTimeMs float64) (skip bool) {
	done, err := g.breaker.Allow()
	if err != nil {
		return false
	}

	defer func() {
		if p := recover(); p != nil {
			done(false)
			g.logger.Error(context.Background(), "pair filter failed", fmt.Errorf("panic: %v", p),
				"source", uint64(src.GetID()),
				"target", uint64(dst.GetID()),
			)
			skip = false
			return
		}
		done(true)
	}()

	return g.filter.ShouldSkipPair(src, dst, deltaTimeMs)
}

// State returns the breaker state
func (g *GuardedFilter) State() gobreaker.State {
	return g.breaker.State()
}

// Counts returns the breaker's request counters
func (g *GuardedFilter) Counts() gobreaker.Counts {
	return g.breaker.Counts()
}
