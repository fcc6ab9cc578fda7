package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/notify"
)

// NewNotifierFromEnv builds the provider from EMAIL_PROVIDER behind a circuit
// breaker and an async dispatcher.
func NewNotifierFromEnv(logger *slog.Logger) (*notify.Dispatcher, error) {
	var sender notify.Sender
	switch provider := strings.ToLower(config.String("EMAIL_PROVIDER", "noop")); provider {
	case "smtp":
		sender = notify.NewSMTPSender(
			config.String("SMTP_HOST", "localhost"),
			config.String("SMTP_PORT", "1025"),
			config.String("SMTP_FROM", config.String("FROM_EMAIL", "")),
		)
	case "resend":
		resendSender, err := notify.NewResendSender(
			config.String("RESEND_URL", ""),
			config.String("RESEND_API_KEY", ""),
			config.String("FROM_EMAIL", "onboarding@resend.dev"),
		)
		if err != nil {
			return nil, err
		}
		sender = resendSender
	case "noop", "":
		sender = notify.NewNoopSender()
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", provider)
	}

	queueSize, err := config.Int("NOTIFY_QUEUE_SIZE", 100)
	if err != nil {
		return nil, err
	}
	breaker := notify.NewBreakerSender(sender, logger, notify.BreakerConfig{})
	logger.Info("email notifier configured", "provider", sender.ProviderID(), "queue_size", queueSize)
	return notify.NewDispatcher(breaker, logger, notify.DispatcherConfig{QueueSize: queueSize}), nil
}
