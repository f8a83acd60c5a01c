package enums

import "testing"

func TestParseUserRoleIsCaseInsensitive(t *testing.T) {
	role, err := ParseUserRole(" dismisser ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != UserRoleDismisser {
		t.Fatalf("expected DISMISSER, got %s", role)
	}
	if _, err := ParseUserRole("JANITOR"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
	if UserRoleAdmin.HasProfile() {
		t.Fatal("admins have no role profile")
	}
}

func TestPickupStatusPredicates(t *testing.T) {
	tests := []struct {
		status   PickupStatus
		pending  bool
		terminal bool
	}{
		{PickupStatusQueued, true, false},
		{PickupStatusNotified, true, false},
		{PickupStatusReady, false, false},
		{PickupStatusDismissed, false, true},
	}
	for _, tt := range tests {
		if tt.status.IsPending() != tt.pending {
			t.Fatalf("%s pending mismatch", tt.status)
		}
		if tt.status.IsTerminal() != tt.terminal {
			t.Fatalf("%s terminal mismatch", tt.status)
		}
	}
}

func TestParsePickupStatus(t *testing.T) {
	status, err := ParsePickupStatus("ready")
	if err != nil || status != PickupStatusReady {
		t.Fatalf("expected READY, got %q err=%v", status, err)
	}
	if _, err := ParsePickupStatus("LOST"); err == nil {
		t.Fatal("expected invalid status to fail")
	}
}

func TestOutboxEnumsValidate(t *testing.T) {
	if !EventStudentDismissed.IsValid() {
		t.Fatal("expected student_dismissed to be valid")
	}
	if OutboxAggregateType("order").IsValid() {
		t.Fatal("expected unknown aggregate to fail")
	}
	if !OutboxDLQReasonMaxAttempts.IsValid() || OutboxDLQErrorReason("timeout").IsValid() {
		t.Fatal("dlq reason validation mismatch")
	}
}

func TestEveryOutboxEventHasAnAggregate(t *testing.T) {
	for _, et := range OutboxEventTypes {
		if !et.Aggregate().IsValid() {
			t.Fatalf("%s has no aggregate", et)
		}
	}
	if OutboxEventType("order_paid").Aggregate() != "" {
		t.Fatal("unknown event types must not resolve an aggregate")
	}
	if OutboxEventType("order_paid").IsValid() {
		t.Fatal("unknown event type reported valid")
	}
}

func TestDismissalMethodIsValid(t *testing.T) {
	if !DismissalMethodCarline.IsValid() {
		t.Fatalf("expected CARLINE to be valid")
	}
	if DismissalMethod("WALKER").IsValid() {
		t.Fatalf("expected unknown method to be invalid")
	}
}
