package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

func TestCanTransition(t *testing.T) {
	for _, from := range model.Statuses {
		for _, to := range model.Statuses {
			assert.True(t, CanTransition(ActorStaff, from, to), "staff %s -> %s", from, to)
		}
		assert.True(t, CanTransition(ActorCustomer, from, model.StatusCancelled))
		assert.True(t, CanTransition(ActorCustomer, from, model.StatusRescheduled))
		assert.False(t, CanTransition(ActorCustomer, from, model.StatusConfirmed))
		assert.False(t, CanTransition(ActorCustomer, from, model.StatusNoShow))
	}
	assert.False(t, CanTransition(ActorStaff, model.StatusConfirmed, "booked"))
}

func TestNewCancelToken(t *testing.T) {
	a, err := NewCancelToken()
	assert.NoError(t, err)
	b, err := NewCancelToken()
	assert.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
