// internal/payment/redact.go
package payment

import "errors"

// DeclineError carries a processor decline whose message is safe to show to
// the customer (card declined, expired card, ...). Anything not wrapped in
// one of these is redacted to GenericDeclineMessage before it reaches the
// purchase record; the raw error still goes to the diagnostic sink in full.
type DeclineError struct {
	UserMessage string // user-presentable, no internals
	Err         error  // underlying domain error, for errors.Is checks
}

func (e *DeclineError) Error() string { return e.UserMessage }
func (e *DeclineError) Unwrap() error { return e.Err }

// UserMessage redacts an error from the charge path down to what the
// customer is allowed to see.
func UserMessage(err error) string {
	var decline *DeclineError
	if errors.As(err, &decline) && decline.UserMessage != "" {
		return decline.UserMessage
	}
	return GenericDeclineMessage
}
