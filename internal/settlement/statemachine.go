package settlement

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

// ErrInvalidTransition is returned when a status change is not an edge of
// the settlement state machine.
var ErrInvalidTransition = errors.New("invalid settlement transition")

// None marks the creation edge, where an entry has no prior status.
const None enums.SettlementStatus = ""

type edge struct {
	from enums.SettlementStatus
	to   enums.SettlementStatus
}

var allowedReasons = map[edge][]enums.TransitionReason{
	{None, enums.SettlementStatusPending}: {enums.TransitionReasonIngested},

	{enums.SettlementStatusPending, enums.SettlementStatusEligible}:  {enums.TransitionReasonHoldElapsed},
	{enums.SettlementStatusPending, enums.SettlementStatusCancelled}: {enums.TransitionReasonOrderRefunded},

	{enums.SettlementStatusEligible, enums.SettlementStatusPaid}:      {enums.TransitionReasonTransferSucceeded},
	{enums.SettlementStatusEligible, enums.SettlementStatusFailed}:    {enums.TransitionReasonTransferFailed},
	{enums.SettlementStatusEligible, enums.SettlementStatusCancelled}: {enums.TransitionReasonOrderRefunded},

	{enums.SettlementStatusFailed, enums.SettlementStatusEligible}: {
		enums.TransitionReasonRetryScheduled,
		enums.TransitionReasonAdminResubmitted,
	},
	{enums.SettlementStatusFailed, enums.SettlementStatusCancelled}: {enums.TransitionReasonAdminCancelled},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to enums.SettlementStatus) bool {
	_, ok := allowedReasons[edge{from, to}]
	return ok
}

// ValidateTransition checks the edge and that the reason belongs to it.
func ValidateTransition(from, to enums.SettlementStatus, reason enums.TransitionReason) error {
	reasons, ok := allowedReasons[edge{from, to}]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, displayStatus(from), to)
	}
	for _, candidate := range reasons {
		if candidate == reason {
			return nil
		}
	}
	return fmt.Errorf("%w: reason %q not allowed for %s -> %s", ErrInvalidTransition, reason, displayStatus(from), to)
}

func displayStatus(s enums.SettlementStatus) string {
	if s == None {
		return "none"
	}
	return string(s)
}
