package enums

import "fmt"

// AssignmentSlot is the functional capacity an order claim is made under,
// distinct from the claiming user's account role.
type AssignmentSlot string

const (
	AssignmentSlotManager AssignmentSlot = "manager"
	AssignmentSlotCourier AssignmentSlot = "courier"
)

// Slot codes reuse the matching role codes in the order_assignments table.
var assignmentSlotCodes = map[AssignmentSlot]int64{
	AssignmentSlotManager: RoleCodeManager,
	AssignmentSlotCourier: RoleCodeCourier,
}

var validAssignmentSlots = []AssignmentSlot{
	AssignmentSlotManager,
	AssignmentSlotCourier,
}

// String implements fmt.Stringer.
func (a AssignmentSlot) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AssignmentSlot.
func (a AssignmentSlot) IsValid() bool {
	for _, candidate := range validAssignmentSlots {
		if candidate == a {
			return true
		}
	}
	return false
}

// Code returns the stable numeric code stored in the database.
func (a AssignmentSlot) Code() int64 {
	return assignmentSlotCodes[a]
}

// ParseAssignmentSlot converts raw input into an AssignmentSlot.
func ParseAssignmentSlot(value string) (AssignmentSlot, error) {
	for _, candidate := range validAssignmentSlots {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment slot %q", value)
}

// AssignmentSlotFromCode maps a stored numeric code back to a slot.
func AssignmentSlotFromCode(code int64) (AssignmentSlot, error) {
	for slot, c := range assignmentSlotCodes {
		if c == code {
			return slot, nil
		}
	}
	return "", fmt.Errorf("invalid assignment slot code %d", code)
}
