package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while the provider is considered down.
var ErrCircuitOpen = errors.New("email provider circuit open")

type BreakerConfig struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// BreakerSender stops calling a failing provider for OpenTimeout after
// FailureThreshold consecutive failures.
type BreakerSender struct {
	next    Sender
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerSender(next Sender, logger *slog.Logger, cfg BreakerConfig) *BreakerSender {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        next.ProviderID(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("email circuit breaker state changed", "provider", name, "from", from.String(), "to", to.String())
			}
		},
	}
	return &BreakerSender{next: next, breaker: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

func (s *BreakerSender) ProviderID() string {
	return s.next.ProviderID()
}

func (s *BreakerSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.next.Send(ctx, to, subject, htmlBody)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, s.next.ProviderID())
	}
	return err
}
