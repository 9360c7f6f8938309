package orders

import "github.com/avelazquez/zocalo-backend/pkg/enums"

// fulfillmentTransitions is the single source of truth for the order state
// machine. Cancellation is only reachable before shipment; returns only after
// delivery.
var fulfillmentTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:   {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered: {enums.OrderStatusReturned},
}

// CanTransition reports whether the fulfillment state machine allows from→to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range fulfillmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the reachable statuses from the given one.
func AllowedTransitions(from enums.OrderStatus) []enums.OrderStatus {
	return fulfillmentTransitions[from]
}
