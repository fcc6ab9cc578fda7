package booking

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Error taxonomy. Callers branch with errors.Is; the wrapped message carries
// the detail.
var (
	ErrValidation = errors.New("invalid request")
	ErrNotFound   = model.ErrNotFound
	ErrConflict   = model.ErrConflict
	// ErrStore marks transient or unknown storage failures. The whole
	// operation may be retried from scratch.
	ErrStore = errors.New("store unavailable")
	// ErrOutsideAvailability is a validation failure for a start time that
	// does not fit any availability window.
	ErrOutsideAvailability = fmt.Errorf("%w: requested time is outside availability", ErrValidation)
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// classify keeps domain outcomes as they are and marks everything else as a
// retryable store failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
