package enums

import "fmt"

// SettlementStatus tracks a ledger entry through its payout lifecycle.
type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusEligible  SettlementStatus = "eligible"
	SettlementStatusPaid      SettlementStatus = "paid"
	SettlementStatusFailed    SettlementStatus = "failed"
	SettlementStatusCancelled SettlementStatus = "cancelled"
)

var validSettlementStatuses = []SettlementStatus{
	SettlementStatusPending,
	SettlementStatusEligible,
	SettlementStatusPaid,
	SettlementStatusFailed,
	SettlementStatusCancelled,
}

// String implements fmt.Stringer.
func (s SettlementStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SettlementStatus.
func (s SettlementStatus) IsValid() bool {
	for _, candidate := range validSettlementStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s SettlementStatus) IsTerminal() bool {
	return s == SettlementStatusPaid || s == SettlementStatusCancelled
}

// ParseSettlementStatus converts raw input into a SettlementStatus.
func ParseSettlementStatus(value string) (SettlementStatus, error) {
	for _, candidate := range validSettlementStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement status %q", value)
}

// TransitionReason explains why a ledger entry changed status.
type TransitionReason string

const (
	TransitionReasonIngested          TransitionReason = "order_paid"
	TransitionReasonHoldElapsed       TransitionReason = "hold_elapsed"
	TransitionReasonOrderRefunded     TransitionReason = "order_refunded"
	TransitionReasonTransferSucceeded TransitionReason = "transfer_succeeded"
	TransitionReasonTransferFailed    TransitionReason = "transfer_failed"
	TransitionReasonRetryScheduled    TransitionReason = "retry_scheduled"
	TransitionReasonAdminResubmitted  TransitionReason = "admin_resubmitted"
	TransitionReasonAdminCancelled    TransitionReason = "admin_cancelled"
)

var validTransitionReasons = []TransitionReason{
	TransitionReasonIngested,
	TransitionReasonHoldElapsed,
	TransitionReasonOrderRefunded,
	TransitionReasonTransferSucceeded,
	TransitionReasonTransferFailed,
	TransitionReasonRetryScheduled,
	TransitionReasonAdminResubmitted,
	TransitionReasonAdminCancelled,
}

// IsValid reports whether the value is a known TransitionReason.
func (r TransitionReason) IsValid() bool {
	for _, candidate := range validTransitionReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// TransferFailureKind classifies failed payout attempts.
type TransferFailureKind string

const (
	TransferFailureTransient TransferFailureKind = "transient"
	TransferFailurePermanent TransferFailureKind = "permanent"
)

// IsValid reports whether the value is a known TransferFailureKind.
func (k TransferFailureKind) IsValid() bool {
	return k == TransferFailureTransient || k == TransferFailurePermanent
}
