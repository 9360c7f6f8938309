package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avelazquez/zocalo-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to enums.OrderStatus
		want     bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, true},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, true},
		{enums.OrderStatusPending, enums.OrderStatusShipped, false},
		{enums.OrderStatusPending, enums.OrderStatusDelivered, false},
		{enums.OrderStatusConfirmed, enums.OrderStatusShipped, true},
		{enums.OrderStatusConfirmed, enums.OrderStatusCancelled, true},
		{enums.OrderStatusConfirmed, enums.OrderStatusReturned, false},
		{enums.OrderStatusShipped, enums.OrderStatusDelivered, true},
		{enums.OrderStatusShipped, enums.OrderStatusCancelled, false},
		{enums.OrderStatusDelivered, enums.OrderStatusReturned, true},
		{enums.OrderStatusDelivered, enums.OrderStatusCancelled, false},
		{enums.OrderStatusCancelled, enums.OrderStatusConfirmed, false},
		{enums.OrderStatusReturned, enums.OrderStatusConfirmed, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	t.Parallel()

	for _, status := range []enums.OrderStatus{
		enums.OrderStatusCancelled,
		enums.OrderStatusReturned,
	} {
		assert.Empty(t, AllowedTransitions(status), "terminal status %s", status)
	}
}
