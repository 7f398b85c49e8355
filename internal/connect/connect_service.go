// internal/connect/connect_service.go
package connect

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/accounts"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/identity"
)

var (
	ErrInvalidState     = errors.New("oauth state does not decode to a creator id")
	ErrEmailNotVerified = errors.New("creator email must be verified before linking a payout account")
)

// TokenExchanger swaps the processor's authorization code for a connected
// account id. The Stripe gateway implements this.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// Reporter mirrors the payment pipeline's diagnostic sink contract.
type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
}

// Service completes the OAuth-style account linking flow: exchange the
// authorization code, persist the payout destination, then — and only then —
// elevate the creator's claims. Claim elevation is a trust escalation and
// must never precede persistence.
type Service struct {
	exchanger TokenExchanger
	payouts   accounts.PayoutAccountStore
	ids       identity.Provider
	reporter  Reporter
}

func NewService(
	exchanger TokenExchanger,
	payouts accounts.PayoutAccountStore,
	ids identity.Provider,
	reporter Reporter,
) *Service {
	return &Service{
		exchanger: exchanger,
		payouts:   payouts,
		ids:       ids,
		reporter:  reporter,
	}
}

// CompleteLink runs the full linking flow for one redirect callback. The
// state parameter is the opaque value we handed the processor when the flow
// started; it encodes the creator's account id.
//
// Unlike the payment path, errors here surface raw to the caller: no money
// has moved yet, and the creator fixing their own onboarding needs the real
// reason. Everything is still reported to the diagnostic sink.
func (s *Service) CompleteLink(ctx context.Context, code, state string) error {
	creatorID, err := uuid.Parse(state)
	if err != nil {
		return ErrInvalidState
	}

	if err := s.completeLink(ctx, creatorID, code); err != nil {
		s.reporter.Report(ctx, err, map[string]string{
			"function":   "CompleteLink",
			"creator_id": creatorID.String(),
		})
		return err
	}
	return nil
}

func (s *Service) completeLink(ctx context.Context, creatorID uuid.UUID, code string) error {
	// Gate on the identity provider's verified-email flag before talking to
	// the processor at all.
	verified, err := s.ids.IsEmailVerified(ctx, creatorID)
	if err != nil {
		return fmt.Errorf("identity lookup failed: %w", err)
	}
	if !verified {
		return ErrEmailNotVerified
	}

	// Exchange the authorization code for the payout destination.
	accountID, err := s.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	// Persist first. If this fails we abort with claims untouched.
	if err := s.payouts.LinkPayoutAccount(ctx, creatorID, accountID); err != nil {
		return fmt.Errorf("persist payout account: %w", err)
	}

	// Trust escalation, strictly after persistence succeeded.
	claims := map[string]interface{}{
		"creator":   true,
		"publisher": true,
	}
	if err := s.ids.SetCustomClaims(ctx, creatorID, claims); err != nil {
		// The payout account is linked but the claims are not. The creator
		// can retry the flow; LinkPayoutAccount merging the same id again is
		// harmless.
		return fmt.Errorf("claim elevation failed: %w", err)
	}

	log.Printf("[Connect] Creator %s linked payout account %s", creatorID, accountID)
	return nil
}
