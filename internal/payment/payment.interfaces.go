// internal/payment/payment.interfaces.go
package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/accounts"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/catalog"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/purchase"
)

// Gateway abstracts the actual money mover (Stripe today). It accepts a
// Context for cancellation and timeout propagation; every call crosses the
// network and can fail, time out, or return a non-terminal status.
type Gateway interface {
	// ChargeAttempt creates AND attempts confirmation of a payment intent in
	// one call (manual confirmation mode). The resulting snapshot may be
	// non-terminal: "requires_confirmation" means a second confirm step is
	// still needed.
	ChargeAttempt(ctx context.Context, req ChargeRequest) (*purchase.IntentSnapshot, error)

	// ConfirmAttempt runs the second half of the two-phase create/confirm
	// protocol against an existing intent.
	ConfirmAttempt(ctx context.Context, intentID string) (*purchase.IntentSnapshot, error)

	// GetIntent fetches the processor's current view of an intent, for the
	// reconciliation worker.
	GetIntent(ctx context.Context, intentID string) (*purchase.IntentSnapshot, error)
}

// GameProvider lets the service validate a purchase against the catalog
// without knowing about the DB.
type GameProvider interface {
	GetGame(ctx context.Context, gameID uuid.UUID) (*catalog.Game, error)
}

// PayoutAccountProvider resolves the creator's payout destination.
type PayoutAccountProvider interface {
	GetPayoutAccount(ctx context.Context, creatorID uuid.UUID) (*accounts.PayoutAccount, error)
}

// CustomerProfileProvider resolves the processor customer reference for the
// purchasing customer.
type CustomerProfileProvider interface {
	GetCustomerProfile(ctx context.Context, customerID uuid.UUID) (*accounts.CustomerPaymentProfile, error)
}

// Reporter is the diagnostic sink for raw (unredacted) failures. Fire and
// forget: implementations never return an error and never block primary
// control flow on sink health.
type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
}

// EventPublisher emits purchase lifecycle events onto the work queue. The
// Kafka producer satisfies this. Optional: a nil publisher disables the
// explicit update chain (the reconciler then backstops pending
// confirmations).
type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}
