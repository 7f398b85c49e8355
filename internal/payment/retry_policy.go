// internal/payment/retry_policy.go
package payment

import (
	"errors"
	"net"
	"syscall"

	"github.com/stripe/stripe-go/v79"
)

// IsRetryableError classifies a charge failure for the queue consumer:
// retryable errors leave the event uncommitted so it is redelivered, terminal
// ones (card declined) are committed after the error is persisted. Redelivery
// is always safe money-wise because the idempotency key dedupes the charge;
// this policy only decides whether retrying could possibly help.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	return isRetryableStripeError(err) || isRetryableNetworkError(err) || isRetryableSystemError(err)
}

func isRetryableStripeError(err error) bool {
	if errors.Is(err, ErrProviderDown) {
		return true
	}

	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}

	// 5xx: the provider is having a bad day, try again later.
	if stripeErr.HTTPStatusCode >= 500 && stripeErr.HTTPStatusCode < 600 {
		return true
	}

	switch stripeErr.Code {
	// Throttling / resource locking clears on its own.
	case stripe.ErrorCodeRateLimit,
		stripe.ErrorCodeLockTimeout:
		return true

	// Card and user errors never improve by retrying.
	case stripe.ErrorCodeCardDeclined,
		stripe.ErrorCodeExpiredCard,
		stripe.ErrorCodeIncorrectCVC:
		return false
	}
	return false
}

func isRetryableNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}
	return false
}

func isRetryableSystemError(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}
