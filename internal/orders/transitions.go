package orders

import (
	"github.com/accordmusic/accord-backend/pkg/enums"
)

// lifecycle holds the forward edges of the order state machine. Cancellation
// is handled separately because its permission rules depend on ownership.
var lifecycle = map[enums.OrderStatus]enums.OrderStatus{
	enums.OrderStatusNew:        enums.OrderStatusPreparing,
	enums.OrderStatusPreparing:  enums.OrderStatusReady,
	enums.OrderStatusReady:      enums.OrderStatusDelivering,
	enums.OrderStatusDelivering: enums.OrderStatusFinished,
}

// slotTransitions maps each staff slot to the forward transitions it owns.
var slotTransitions = map[enums.AssignmentSlot]map[enums.OrderStatus]enums.OrderStatus{
	enums.AssignmentSlotManager: {
		enums.OrderStatusNew:       enums.OrderStatusPreparing,
		enums.OrderStatusPreparing: enums.OrderStatusReady,
	},
	enums.AssignmentSlotCourier: {
		enums.OrderStatusReady:      enums.OrderStatusDelivering,
		enums.OrderStatusDelivering: enums.OrderStatusFinished,
	},
}

// cancelableStatuses are the states an order may be canceled from. Once a
// courier is on the road the order has to run to completion.
var cancelableStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusNew:       true,
	enums.OrderStatusPreparing: true,
	enums.OrderStatusReady:     true,
}

// NextStatus returns the single forward transition from the given status, or
// false when the status is terminal.
func NextStatus(from enums.OrderStatus) (enums.OrderStatus, bool) {
	next, ok := lifecycle[from]
	return next, ok
}

// CanCancelFrom reports whether cancellation is permitted from the status.
func CanCancelFrom(from enums.OrderStatus) bool {
	return cancelableStatuses[from]
}

// SlotForTransition identifies the staff slot responsible for the forward
// edge from one status to another. Returns false when no slot owns the edge.
func SlotForTransition(from, to enums.OrderStatus) (enums.AssignmentSlot, bool) {
	for slot, edges := range slotTransitions {
		if edges[from] == to {
			return slot, true
		}
	}
	return "", false
}

// RoleOwnsTransition reports whether the role may drive the forward edge.
// Admins may drive any edge; managers and couriers only the edges their slot
// owns. Clients never advance orders.
func RoleOwnsTransition(role enums.Role, from, to enums.OrderStatus) bool {
	if _, ok := SlotForTransition(from, to); !ok {
		return false
	}
	switch role {
	case enums.RoleAdmin:
		return true
	case enums.RoleManager:
		return slotTransitions[enums.AssignmentSlotManager][from] == to
	case enums.RoleCourier:
		return slotTransitions[enums.AssignmentSlotCourier][from] == to
	default:
		return false
	}
}
