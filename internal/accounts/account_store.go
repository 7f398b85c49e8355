// internal/accounts/account_store.go
package accounts

import (
	"context"

	"github.com/google/uuid"
)

// PayoutAccountStore handles persistence for creator payout destinations.
type PayoutAccountStore interface {
	GetPayoutAccount(ctx context.Context, creatorID uuid.UUID) (*PayoutAccount, error)

	// LinkPayoutAccount merges the processor account id onto the creator's
	// record. Only the account id and linked_at columns are written; it does
	// not create the row (onboarding does) and it never clears an existing id.
	LinkPayoutAccount(ctx context.Context, creatorID uuid.UUID, stripeAccountID string) error
}

// CustomerProfileStore is the read-only customer-side lookup.
type CustomerProfileStore interface {
	GetCustomerProfile(ctx context.Context, customerID uuid.UUID) (*CustomerPaymentProfile, error)
}
