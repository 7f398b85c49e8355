// internal/payment/webhook/stripe/processor.go
package stripe

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/payment"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/purchase"
)

// Processor verifies and parses Stripe webhook deliveries into the service's
// NormalizedEvent. Out-of-band intent settlements (3DS completed on the
// customer's device, async payment methods) arrive through here rather than
// through the confirmation watcher.
type Processor struct {
	secret string
}

func New(signingSecret string) *Processor {
	return &Processor{secret: signingSecret}
}

func (p *Processor) Provider() string {
	return "Stripe"
}

func (p *Processor) VerifyAndParse(payload []byte, headers map[string]string) (*payment.NormalizedEvent, error) {
	event, err := webhook.ConstructEvent(
		payload,
		headers["Stripe-Signature"],
		p.secret,
	)
	if err != nil {
		return nil, fmt.Errorf("stripe signature invalid: %w", err)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		// An event type whose payload isn't an intent. Not an error, just
		// nothing for us.
		return nil, nil
	}

	switch event.Type {
	case "payment_intent.succeeded":
		return &payment.NormalizedEvent{
			Provider:          "Stripe",
			ProviderPaymentID: pi.ID,
			Status:            purchase.IntentStatusSucceeded,
			AmountCents:       pi.Amount,
		}, nil

	case "payment_intent.payment_failed":
		var code, msg *string
		if pi.LastPaymentError != nil {
			c := string(pi.LastPaymentError.Code)
			m := pi.LastPaymentError.Msg
			code, msg = &c, &m
		}
		return &payment.NormalizedEvent{
			Provider:          "Stripe",
			ProviderPaymentID: pi.ID,
			Status:            purchase.IntentStatusRequiresPaymentMethod,
			AmountCents:       pi.Amount,
			ErrorCode:         code,
			ErrorMessage:      msg,
		}, nil
	}

	// Event types we don't act on.
	return nil, nil
}
