package rabbitmq

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/angelmondragon/carline-backend/pkg/logger"
)

const breakerTimeout = 30 * time.Second

// NewCircuitBreaker opens after three consecutive failures and lets three
// trial requests through once the timeout elapses.
func NewCircuitBreaker(name string, logg *logger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logg == nil {
				return
			}
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "circuit breaker state changed")
		},
	})
}
