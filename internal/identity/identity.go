// internal/identity/identity.go
package identity

import (
	"context"

	"github.com/google/uuid"
)

// Provider abstracts the identity service (an external collaborator). The
// payment pipeline needs exactly two things from it: the verified-email flag
// for gating creator onboarding, and custom-claim elevation after a payout
// account is linked.
type Provider interface {
	IsEmailVerified(ctx context.Context, userID uuid.UUID) (bool, error)

	// SetCustomClaims replaces the user's custom claims. Claim elevation is a
	// trust escalation: callers must only invoke this after the payout
	// account id has been persisted.
	SetCustomClaims(ctx context.Context, userID uuid.UUID, claims map[string]interface{}) error
}
