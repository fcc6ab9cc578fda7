package booking

import "github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"

type Actor int

const (
	ActorCustomer Actor = iota
	ActorStaff
)

// CanTransition reports whether actor may move a booking to status to.
// Customers act through their token on whatever the booking currently is and
// can only cancel or reschedule; staff may set any status from any status.
func CanTransition(actor Actor, _ model.Status, to model.Status) bool {
	if _, err := model.ParseStatus(string(to)); err != nil {
		return false
	}
	switch actor {
	case ActorStaff:
		return true
	case ActorCustomer:
		return to == model.StatusCancelled || to == model.StatusRescheduled
	default:
		return false
	}
}
