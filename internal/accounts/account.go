// internal/accounts/account.go
package accounts

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPayoutAccountNotFound   = errors.New("payout account not found")
	ErrCustomerProfileNotFound = errors.New("customer payment profile not found")

	// ErrPayoutAccountUnlinked means onboarding started but the creator never
	// finished connecting their processor account. Purchases against such a
	// creator short-circuit: cannot pay out, so do not charge.
	ErrPayoutAccountUnlinked = errors.New("creator has no linked payout account")
)

// PayoutAccount is the creator-side payout destination. Created empty when
// creator onboarding begins; StripeAccountID is populated exactly once by the
// account linker and never mutated elsewhere.
type PayoutAccount struct {
	CreatorID       uuid.UUID
	StripeAccountID string // "acct_..." connected account, empty until linked
	LinkedAt        *time.Time
	CreatedAt       time.Time
}

// Linked reports whether the creator can actually receive transfers.
func (a *PayoutAccount) Linked() bool {
	return a != nil && a.StripeAccountID != ""
}

// CustomerPaymentProfile holds the processor's customer reference for a
// purchasing customer. Read-only to the payment pipeline; kept on the
// purchase context for audit even on paths that do not send it.
type CustomerPaymentProfile struct {
	CustomerID       uuid.UUID
	StripeCustomerID string // "cus_..."
	Email            string
	CreatedAt        time.Time
}
