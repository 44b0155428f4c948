package enums

import "testing"

func TestRoleCodesRoundTrip(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleClient, RoleManager, RoleCourier} {
		got, err := RoleFromCode(role.Code())
		if err != nil {
			t.Fatalf("RoleFromCode(%d): %v", role.Code(), err)
		}
		if got != role {
			t.Fatalf("expected %s got %s", role, got)
		}
	}
	if _, err := RoleFromCode(99); err == nil {
		t.Fatal("expected error for unknown role code")
	}
}

func TestParseRole(t *testing.T) {
	if role, err := ParseRole("courier"); err != nil || role != RoleCourier {
		t.Fatalf("unexpected result %v %v", role, err)
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if !RoleManager.IsStaff() || RoleClient.IsStaff() {
		t.Fatal("staff classification wrong")
	}
}

func TestParseOrderStatus(t *testing.T) {
	for _, s := range OrderStatuses() {
		parsed, err := ParseOrderStatus(string(s))
		if err != nil || parsed != s {
			t.Fatalf("round trip failed for %s: %v", s, err)
		}
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if !OrderStatusFinished.IsTerminal() || !OrderStatusCanceled.IsTerminal() {
		t.Fatal("terminal statuses misclassified")
	}
	if OrderStatusReady.IsTerminal() {
		t.Fatal("ready must not be terminal")
	}
}

func TestAssignmentSlotCodes(t *testing.T) {
	if AssignmentSlotManager.Code() != RoleCodeManager {
		t.Fatal("manager slot code must match manager role code")
	}
	if AssignmentSlotCourier.Code() != RoleCodeCourier {
		t.Fatal("courier slot code must match courier role code")
	}
	slot, err := AssignmentSlotFromCode(RoleCodeCourier)
	if err != nil || slot != AssignmentSlotCourier {
		t.Fatalf("unexpected slot %v %v", slot, err)
	}
	if _, err := AssignmentSlotFromCode(1); err == nil {
		t.Fatal("admin code is not a slot")
	}
}
