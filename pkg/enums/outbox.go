package enums

import "fmt"

// OutboxAggregateType identifies the aggregate an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregateSettlementEntry OutboxAggregateType = "settlement_entry"
	AggregateCheckoutGroup   OutboxAggregateType = "checkout_group"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateSettlementEntry,
	AggregateCheckoutGroup,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType identifies the payload carried by an outbox row or inbound message.
type OutboxEventType string

const (
	// EventOrderPaid is consumed from the billing topic, never emitted here.
	EventOrderPaid OutboxEventType = "order_paid"

	EventSettlementPayoutPaid         OutboxEventType = "settlement_payout_paid"
	EventSettlementPayoutAttention    OutboxEventType = "settlement_payout_attention"
	EventSettlementAllocationRejected OutboxEventType = "settlement_allocation_rejected"
	EventSettlementEntryCancelled     OutboxEventType = "settlement_entry_cancelled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPaid,
	EventSettlementPayoutPaid,
	EventSettlementPayoutAttention,
	EventSettlementAllocationRejected,
	EventSettlementEntryCancelled,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why the publisher gave up on an outbox row.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts means publishing kept failing past the retry budget.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable means the row can never be published as stored.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
