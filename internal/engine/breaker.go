package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerSettings configures WithBreaker.
type BreakerSettings struct {
	// Failures is the number of consecutive failures that opens the breaker.
	Failures uint32
	// Timeout is how long the breaker stays open before letting a probe through.
	Timeout time.Duration
}

type breakerEngine struct {
	Engine
	cb *gobreaker.CircuitBreaker
}

// WithBreaker wraps e in a circuit breaker. While open, calls fail fast with
// gobreaker.ErrOpenState instead of reaching the engine.
func WithBreaker(e Engine, s BreakerSettings) Engine {
	if s.Failures == 0 {
		s.Failures = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        e.Name(),
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("engine", name).Str("from", from.String()).Str("to", to.String()).Msg("Engine breaker state changed")
		},
	})
	return &breakerEngine{Engine: e, cb: cb}
}

func (b *breakerEngine) Translate(ctx context.Context, from, to Language, text string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.Engine.Translate(ctx, from, to, text)
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", b.Name(), err)
	}
	return out.(string), nil
}
