// internal/purchase/models.purchase.go
package purchase

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Standard purchase errors.
var (
	ErrPurchaseNotFound = errors.New("purchase not found")

	// ErrImmutableFields protects amount/tip. The orchestrator only ever
	// appends payment or error fields; it never rewrites what checkout wrote.
	ErrImmutableFields = errors.New("amount and tip are immutable after creation")
)

// State is the explicit lifecycle of a purchase. The original flow chained
// storage triggers; here every transition is driven by a queue event or a
// direct call, so ordering and retries stay auditable.
type State string

const (
	StateValidating        State = "VALIDATING"
	StateCharging          State = "CHARGING"
	StateNeedsConfirmation State = "NEEDS_CONFIRMATION"
	StatePaid              State = "PAID"
	StateErrored           State = "ERRORED"
)

// Terminal reports whether the purchase needs no further work from us.
func (s State) Terminal() bool {
	return s == StatePaid || s == StateErrored
}

// IntentStatus is the processor's payment-intent lifecycle state, validated
// at the gateway boundary into this strict internal form. Business logic
// never reads the processor's loosely-typed payload directly.
type IntentStatus string

const (
	IntentStatusSucceeded             IntentStatus = "succeeded"
	IntentStatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentStatusRequiresAction        IntentStatus = "requires_action"
	IntentStatusProcessing            IntentStatus = "processing"
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentStatusCanceled              IntentStatus = "canceled"
)

// IntentSnapshot is the slice of the processor's intent object we persist on
// the purchase. It is merged onto the record, never replacing amount/tip.
type IntentSnapshot struct {
	ID           string       // processor intent reference, e.g. "pi_3M..."
	Status       IntentStatus //
	AmountCents  int64        // total the processor will capture
	ClientSecret string       // needed by the checkout UI for step-up auth
}

// StateForIntent maps a processor status onto our state machine.
// requires_action lands in NEEDS_CONFIRMATION too: the charge is alive but
// cannot finish without another step (ours or the customer's).
func StateForIntent(status IntentStatus) State {
	switch status {
	case IntentStatusSucceeded:
		return StatePaid
	case IntentStatusRequiresConfirmation, IntentStatusRequiresAction:
		return StateNeedsConfirmation
	case IntentStatusProcessing:
		return StateCharging
	case IntentStatusRequiresPaymentMethod, IntentStatusCanceled:
		return StateErrored
	default:
		return StateCharging
	}
}

// Purchase is one customer-initiated transaction attempt. Identity is the
// (CustomerID, PurchaseID) pair; PurchaseID is generated by checkout and
// doubles as the processor idempotency key.
type Purchase struct {
	PurchaseID      uuid.UUID
	CustomerID      uuid.UUID
	GameID          uuid.UUID
	AmountCents     int64  // immutable once set by checkout
	TipCents        int64  // immutable once set by checkout
	Currency        string // e.g. "usd"
	PaymentMethodID string // processor payment method on file

	State   State
	Payment *IntentSnapshot // nil until the orchestrator has run
	Error   *string         // user-safe message only, nil unless errored

	CreatedAt time.Time
	UpdatedAt time.Time
}
