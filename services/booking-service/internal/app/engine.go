package app

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
)

// EngineConfigFromEnv reads BOOKING_TZ_OFFSET, BOOKING_REQUIRE_WINDOW,
// STORE_TIMEOUT and PUBLIC_BASE_URL.
func EngineConfigFromEnv() (booking.Config, error) {
	loc, err := availability.ParseOffset(config.String("BOOKING_TZ_OFFSET", "+06:00"))
	if err != nil {
		return booking.Config{}, fmt.Errorf("BOOKING_TZ_OFFSET: %w", err)
	}
	requireWindow, err := config.Bool("BOOKING_REQUIRE_WINDOW", false)
	if err != nil {
		return booking.Config{}, err
	}
	storeTimeout, err := config.Duration("STORE_TIMEOUT", 5*time.Second)
	if err != nil {
		return booking.Config{}, err
	}
	return booking.Config{
		Location:          loc,
		StoreTimeout:      storeTimeout,
		RequireWindow:     requireWindow,
		PublicBaseURL:     config.String("PUBLIC_BASE_URL", "http://localhost:8083"),
		ReschedulePageURL: config.String("RESCHEDULE_PAGE_URL", ""),
	}, nil
}
