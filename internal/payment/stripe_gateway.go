// internal/payment/stripe_gateway.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/purchase"
)

// StripeGateway implements Gateway against Stripe PaymentIntents with
// destination charges: the full amount is captured from the customer and
// TransferData routes the creator's cut to their connected account in the
// same intent.
type StripeGateway struct {
	client *client.API
}

// NewStripeGateway constructs a gateway around an explicitly initialized
// client. No package-global stripe state: the client lifecycle is scoped to
// process start and injected everywhere it is needed.
func NewStripeGateway(apiKey string) *StripeGateway {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &StripeGateway{client: sc}
}

// ChargeAttempt creates a payment intent and asks Stripe to attempt
// confirmation in the same call. Confirmation mode is manual, so the
// returned status can be "requires_confirmation" rather than terminal; the
// confirmation watcher owns that second step.
func (sg *StripeGateway) ChargeAttempt(ctx context.Context, req ChargeRequest) (*purchase.IntentSnapshot, error) {
	if req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.PaymentMethodID == "" || req.CustomerID == "" {
		return nil, ErrNoPaymentMethod
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.AmountCents),
		Currency:      stripe.String(req.Currency),
		Customer:      stripe.String(req.CustomerID),
		PaymentMethod: stripe.String(req.PaymentMethodID),

		// Create and attempt confirmation in one round trip, but in manual
		// confirmation mode: payment methods that need a second step come
		// back as requires_confirmation instead of failing.
		Confirm:            stripe.Bool(true),
		ConfirmationMethod: stripe.String(string(stripe.PaymentIntentConfirmationMethodManual)),

		// Destination charge: Stripe splits the captured amount and routes
		// the creator's cut to their connected account.
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(req.DestinationAccountID),
			Amount:      stripe.Int64(req.TransferAmountCents),
		},

		Description: stripe.String(req.Description),
	}

	// Idempotency: the purchase id rides along verbatim. Stripe dedupes
	// server-side on this key, which is what makes duplicate event delivery
	// harmless across processes.
	if req.ReferenceID != "" {
		params.IdempotencyKey = stripe.String(req.ReferenceID)
	}

	if len(req.MetaData) > 0 {
		params.Metadata = make(map[string]string, len(req.MetaData))
		for k, v := range req.MetaData {
			params.Metadata[k] = v
		}
	}

	// Cancels the underlying HTTP request if our deadline passes.
	params.Context = ctx

	pi, err := sg.client.PaymentIntents.New(params)
	if err != nil {
		return nil, sg.mapStripeError(err)
	}
	return toSnapshot(pi), nil
}

// ConfirmAttempt runs the second confirmation step on an existing intent.
func (sg *StripeGateway) ConfirmAttempt(ctx context.Context, intentID string) (*purchase.IntentSnapshot, error) {
	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx

	pi, err := sg.client.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		return nil, sg.mapStripeError(err)
	}
	return toSnapshot(pi), nil
}

// GetIntent fetches Stripe's current view of an intent. Used by the
// reconciliation worker to converge stuck records.
func (sg *StripeGateway) GetIntent(ctx context.Context, intentID string) (*purchase.IntentSnapshot, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := sg.client.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, sg.mapStripeError(err)
	}
	return toSnapshot(pi), nil
}

// ExchangeCode swaps a Connect OAuth authorization code for the creator's
// connected account id ("acct_...").
func (sg *StripeGateway) ExchangeCode(ctx context.Context, code string) (string, error) {
	params := &stripe.OAuthTokenParams{
		GrantType: stripe.String("authorization_code"),
		Code:      stripe.String(code),
	}
	params.Context = ctx

	token, err := sg.client.OAuth.New(params)
	if err != nil {
		return "", sg.mapStripeError(err)
	}
	if token.StripeUserID == "" {
		return "", fmt.Errorf("oauth exchange returned no connected account id")
	}
	return token.StripeUserID, nil
}

// toSnapshot validates the loosely-typed Stripe payload into our strict
// internal representation at the boundary. Nothing past this function reads
// stripe-go types.
func toSnapshot(pi *stripe.PaymentIntent) *purchase.IntentSnapshot {
	return &purchase.IntentSnapshot{
		ID:           pi.ID,
		Status:       mapIntentStatus(pi.Status),
		AmountCents:  pi.Amount,
		ClientSecret: pi.ClientSecret,
	}
}

func mapIntentStatus(status stripe.PaymentIntentStatus) purchase.IntentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return purchase.IntentStatusSucceeded
	case stripe.PaymentIntentStatusRequiresConfirmation:
		return purchase.IntentStatusRequiresConfirmation
	case stripe.PaymentIntentStatusRequiresAction:
		return purchase.IntentStatusRequiresAction
	case stripe.PaymentIntentStatusProcessing:
		return purchase.IntentStatusProcessing
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return purchase.IntentStatusRequiresPaymentMethod
	case stripe.PaymentIntentStatusCanceled:
		return purchase.IntentStatusCanceled
	default:
		// Unknown lifecycle state: carry it through, the state machine
		// treats it as still-charging.
		return purchase.IntentStatus(status)
	}
}

// mapStripeError converts stripe-go errors into domain errors so the library
// never leaks into the service layer. Recognized declines keep a
// user-presentable message via DeclineError; everything else redacts to the
// generic fallback upstream.
func (sg *StripeGateway) mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Code {
		case stripe.ErrorCodeCardDeclined,
			stripe.ErrorCodeExpiredCard,
			stripe.ErrorCodeIncorrectCVC,
			stripe.ErrorCodeBalanceInsufficient:
			return &DeclineError{
				UserMessage: stripeErr.Msg,
				Err:         fmt.Errorf("%w: %s", ErrPaymentFailed, stripeErr.Code),
			}
		case stripe.ErrorCodeIdempotencyKeyInUse:
			return fmt.Errorf("idempotency key collision for reference id: %w", ErrPaymentFailed)
		}

		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return ErrProviderDown
		}
		return fmt.Errorf("%w: %s", ErrPaymentFailed, stripeErr.Code)
	}
	return fmt.Errorf("gateway internal error: %w", err)
}
