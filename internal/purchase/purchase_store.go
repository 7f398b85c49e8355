// internal/purchase/purchase_store.go
package purchase

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store handles persistence for purchases.
//
// Every write here is a field-level merge, not a row replacement. That is
// what makes duplicate deliveries convergent: a second MergePayment with the
// same snapshot rewrites the same columns to the same values and never
// touches amount/tip. There is no UpdatePurchase that takes a whole record.
type Store interface {
	GetPurchase(ctx context.Context, customerID, purchaseID uuid.UUID) (*Purchase, error)

	// MergePayment appends/overwrites the payment sub-state and transitions
	// the lifecycle state. amount, tip, currency and payment method columns
	// are not part of the statement.
	MergePayment(ctx context.Context, customerID, purchaseID uuid.UUID, snapshot IntentSnapshot, state State) error

	// MergeError appends a user-safe error message and moves the purchase to
	// ERRORED. Idempotent: re-writing the same message is a no-op in effect.
	MergeError(ctx context.Context, customerID, purchaseID uuid.UUID, userMessage string) error

	// GetStuck fetches purchases sitting in a non-terminal state for longer
	// than olderThan, for the reconciliation worker. Oldest first.
	GetStuck(ctx context.Context, limit int, olderThan time.Duration) ([]*Purchase, error)

	// GetByIntentID correlates an inbound processor webhook ("pi_...") with
	// our record.
	GetByIntentID(ctx context.Context, intentID string) (*Purchase, error)
}
