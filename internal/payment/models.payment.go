// internal/payment/models.payment.go
package payment

import (
	"errors"
)

// Standard payment errors. The gateway translates processor library errors
// into these so stripe-go types never leak into the service layer.
var (
	ErrPaymentFailed   = errors.New("payment gateway rejected the transaction")
	ErrInvalidAmount   = errors.New("invalid payment amount")
	ErrNoPaymentMethod = errors.New("customer has no valid payment method on file")
	ErrProviderDown    = errors.New("payment provider is currently unavailable")
)

// GenericDeclineMessage is what the customer sees when the processor error
// carries no recognized, user-presentable message. Raw processor errors go to
// the diagnostic sink only.
const GenericDeclineMessage = "Your payment could not be completed. Please try a different payment method."

// ChargeRequest encapsulates everything the gateway needs to create and
// confirm one payment intent with a destination transfer.
type ChargeRequest struct {
	ReferenceID          string            // purchase id, passed verbatim as the idempotency key
	AmountCents          int64             // full charge: amount + tip
	Currency             string            // e.g. "usd"
	CustomerID           string            // processor customer reference ("cus_...")
	PaymentMethodID      string            // saved payment method ("pm_...")
	DestinationAccountID string            // creator's connected account ("acct_...")
	TransferAmountCents  int64             // creator's cut of AmountCents
	Description          string            // appears on bank/CC statements
	MetaData             map[string]string // context tags for the processor dashboard
}
