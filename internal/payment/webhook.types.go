// internal/payment/webhook.types.go
package payment

import "github.com/RyanMcMahon/BoardGameStar-sub001/internal/purchase"

// NormalizedEvent is a processor notification translated into our own terms.
// Whatever provider it came from, the service only ever sees this shape.
type NormalizedEvent struct {
	Provider          string                // e.g. "Stripe"
	ProviderPaymentID string                // e.g. "pi_3M..."
	Status            purchase.IntentStatus //
	AmountCents       int64                 // 0 when the event did not carry it
	ErrorCode         *string               // e.g. "card_declined"
	ErrorMessage      *string               //
}

// WebhookProcessor parses and verifies raw HTTP webhook bytes into a
// NormalizedEvent. A nil event with a nil error means "valid but not a type
// we act on".
type WebhookProcessor interface {
	Provider() string
	VerifyAndParse(payload []byte, headers map[string]string) (*NormalizedEvent, error)
}
