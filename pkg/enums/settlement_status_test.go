package enums

import "testing"

func TestParseSettlementStatus(t *testing.T) {
	for _, raw := range []string{"pending", "eligible", "paid", "failed", "cancelled"} {
		status, err := ParseSettlementStatus(raw)
		if err != nil {
			t.Fatalf("ParseSettlementStatus(%q): %v", raw, err)
		}
		if string(status) != raw {
			t.Fatalf("expected %q got %q", raw, status)
		}
	}
	if _, err := ParseSettlementStatus("canceled"); err == nil {
		t.Fatal("expected american spelling to be rejected")
	}
}

func TestSettlementStatusTerminal(t *testing.T) {
	terminal := map[SettlementStatus]bool{
		SettlementStatusPending:   false,
		SettlementStatusEligible:  false,
		SettlementStatusFailed:    false,
		SettlementStatusPaid:      true,
		SettlementStatusCancelled: true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%s terminal = %v, want %v", status, got, want)
		}
	}
}

func TestMemberRoleIsValid(t *testing.T) {
	for _, role := range []MemberRole{MemberRoleOwner, MemberRoleAdmin, MemberRoleOps} {
		if !role.IsValid() {
			t.Fatalf("expected %q to be valid", role)
		}
	}
	if MemberRole("superuser").IsValid() {
		t.Fatal("unexpected valid role superuser")
	}
}

func TestOutboxEventTypeParsing(t *testing.T) {
	got, err := ParseOutboxEventType("settlement_payout_paid")
	if err != nil || got != EventSettlementPayoutPaid {
		t.Fatalf("ParseOutboxEventType = %q, %v", got, err)
	}
	if _, err := ParseOutboxEventType("order_shipped"); err == nil {
		t.Fatal("expected error for unknown event type")
	}
	if OutboxAggregateType("cart").IsValid() {
		t.Fatal("unexpected valid aggregate cart")
	}
}
