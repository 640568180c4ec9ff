package payouts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

// TransferRequest moves one payout's funds to a seller's connected account.
type TransferRequest struct {
	SellerID       uuid.UUID
	Destination    string
	AmountCents    int64
	Currency       string
	IdempotencyKey string
	// TransferGroup ties retries of the same payout together so an earlier
	// successful transfer can be found after the idempotency window lapses.
	TransferGroup string
	EntryIDs      []uuid.UUID
}

// TransferResult is the provider's record of a completed transfer.
type TransferResult struct {
	TransferID string
	FeeCents   int64
}

// TransferClient is the external payment capability.
type TransferClient interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	// FindTransfer returns the live transfer made under group to destination,
	// or nil when none landed. It never moves money.
	FindTransfer(ctx context.Context, group, destination string) (*TransferResult, error)
}

// TransferError is a failed transfer classified for the retry policy.
type TransferError struct {
	Kind   enums.TransferFailureKind
	Reason string
	Err    error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transfer %s failure: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("transfer %s failure: %s", e.Kind, e.Reason)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *TransferError) Retryable() bool {
	return e.Kind == enums.TransferFailureTransient
}

// Transient builds a retryable transfer failure.
func Transient(reason string, err error) *TransferError {
	return &TransferError{Kind: enums.TransferFailureTransient, Reason: reason, Err: err}
}

// Permanent builds a failure that needs an operator.
func Permanent(reason string, err error) *TransferError {
	return &TransferError{Kind: enums.TransferFailurePermanent, Reason: reason, Err: err}
}

// AsTransferError classifies err. Unclassified errors, timeouts included, are
// transient because the transfer may still succeed under the same key.
func AsTransferError(err error) *TransferError {
	if err == nil {
		return nil
	}
	var te *TransferError
	if errors.As(err, &te) {
		return te
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient("transfer timed out", err)
	}
	return Transient("transfer request failed", err)
}
