// internal/payment/payment_service.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/fees"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/purchase"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/queue"
)

// Service orchestrates the purchase-to-payout pipeline: validate against the
// catalog, resolve both sides of the money movement, charge via the gateway,
// and persist the outcome (including error outcomes) back onto the purchase.
type Service struct {
	purchases        purchase.Store
	games            GameProvider
	payoutAccounts   PayoutAccountProvider
	customerProfiles CustomerProfileProvider
	gateway          Gateway
	reporter         Reporter
	events           EventPublisher

	// sf collapses concurrent duplicate deliveries of the same purchase
	// event into a single charge attempt within this process. The Stripe
	// idempotency key (= purchase id) remains the cross-process guarantee.
	sf singleflight.Group

	chargeTimeout time.Duration
}

func NewService(
	purchases purchase.Store,
	games GameProvider,
	payoutAccounts PayoutAccountProvider,
	customerProfiles CustomerProfileProvider,
	gateway Gateway,
	reporter Reporter,
	events EventPublisher,
) *Service {
	return &Service{
		purchases:        purchases,
		games:            games,
		payoutAccounts:   payoutAccounts,
		customerProfiles: customerProfiles,
		gateway:          gateway,
		reporter:         reporter,
		events:           events,
		chargeTimeout:    30 * time.Second,
	}
}

// ChargePurchase handles a purchase-created event. It is safe to deliver the
// same event any number of times: the purchase id is the idempotency key all
// the way down, and every record write is a merge.
func (s *Service) ChargePurchase(ctx context.Context, customerID, purchaseID uuid.UUID) error {
	key := fmt.Sprintf("charge_purchase_%s", purchaseID.String())

	_, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return nil, s.chargeLogic(ctx, customerID, purchaseID)
	})
	return err
}

func (s *Service) chargeLogic(ctx context.Context, customerID, purchaseID uuid.UUID) error {
	p, err := s.purchases.GetPurchase(ctx, customerID, purchaseID)
	if err != nil {
		return fmt.Errorf("fetch purchase: %w", err)
	}

	// Fast path for redelivery: if a previous invocation already recorded an
	// outcome, there is nothing left that moves money. Re-running past this
	// point would only re-write the same fields anyway.
	if p.State.Terminal() || p.Payment != nil {
		return nil
	}

	// 1. Validate against the catalog. A missing game or an underpaying
	// purchase aborts silently: no processor call, no record mutation.
	// "Not eligible to purchase yet" is not a system fault.
	game, err := s.games.GetGame(ctx, p.GameID)
	if err != nil {
		log.Printf("[Payments] Purchase %s: game %s lookup failed, aborting: %v", p.PurchaseID, p.GameID, err)
		return nil
	}
	if p.AmountCents < game.PriceCents {
		log.Printf("[Payments] Purchase %s: amount %d below price %d, aborting", p.PurchaseID, p.AmountCents, game.PriceCents)
		return nil
	}

	// 2. Resolve the creator's payout destination. Cannot pay out => do not
	// charge.
	payout, err := s.payoutAccounts.GetPayoutAccount(ctx, game.CreatorID)
	if err != nil || !payout.Linked() {
		log.Printf("[Payments] Purchase %s: creator %s has no linked payout account, aborting", p.PurchaseID, game.CreatorID)
		return nil
	}

	// 3. Resolve the processor customer reference.
	profile, err := s.customerProfiles.GetCustomerProfile(ctx, p.CustomerID)
	if err != nil {
		log.Printf("[Payments] Purchase %s: no customer payment profile, aborting: %v", p.PurchaseID, err)
		return nil
	}

	// 4. Fee arithmetic. Pure, no I/O.
	split := fees.ComputeSplit(p.AmountCents, p.TipCents)

	req := ChargeRequest{
		ReferenceID:          p.PurchaseID.String(), // CRITICAL: the idempotency key
		AmountCents:          split.FullAmount,
		Currency:             p.Currency,
		CustomerID:           profile.StripeCustomerID,
		PaymentMethodID:      p.PaymentMethodID,
		DestinationAccountID: payout.StripeAccountID,
		TransferAmountCents:  split.CreatorTransfer,
		Description:          fmt.Sprintf("Game %s purchase %s", p.GameID, p.PurchaseID),
		MetaData: map[string]string{
			"customer_id": p.CustomerID.String(),
			"purchase_id": p.PurchaseID.String(),
			"game_id":     p.GameID.String(),
		},
	}

	// 5. Create-and-confirm with a hard timeout so a slow processor cannot
	// hang the consumer. If the context dies mid-flight Stripe may still
	// charge, but the idempotency key protects the retry.
	chargeCtx, cancel := context.WithTimeout(ctx, s.chargeTimeout)
	defer cancel()

	snapshot, err := s.gateway.ChargeAttempt(chargeCtx, req)
	if err != nil {
		return s.recordChargeFailure(ctx, p, err)
	}

	// 6. Persist the outcome. Merge, never overwrite: amount/tip stay
	// exactly as checkout wrote them.
	if err := s.purchases.MergePayment(ctx, p.CustomerID, p.PurchaseID, *snapshot, purchase.StateForIntent(snapshot.Status)); err != nil {
		// Money may have moved but our record didn't. The reconciler will
		// converge it; we log loudly so operators see it now.
		log.Printf("[CRITICAL] Purchase %s charged (intent %s) but merge failed: %v", p.PurchaseID, snapshot.ID, err)
		return fmt.Errorf("critical: charge succeeded but record merge failed: %w", err)
	}

	// The mutation happened; announce it so the confirmation watcher gets
	// its turn. This replaces the original's storage-trigger chaining with
	// an explicit, auditable event.
	s.publishUpdated(ctx, p.CustomerID, p.PurchaseID)
	return nil
}

// publishUpdated emits a purchase.updated event onto the work queue. A lost
// event is not fatal: the reconciler converges stuck records on its own.
func (s *Service) publishUpdated(ctx context.Context, customerID, purchaseID uuid.UUID) {
	if s.events == nil {
		return
	}
	ev := queue.PurchaseEvent{
		Type:       queue.EventPurchaseUpdated,
		CustomerID: customerID,
		PurchaseID: purchaseID,
	}
	if err := s.events.Publish(ctx, purchaseID.String(), ev); err != nil {
		log.Printf("[Payments] Purchase %s: failed to publish update event: %v", purchaseID, err)
	}
}

// recordChargeFailure performs the two independent failure side effects:
// a redacted user-safe error onto the purchase, and the raw error to the
// diagnostic sink. Both are attempted even if one fails; they are not a
// transaction.
func (s *Service) recordChargeFailure(ctx context.Context, p *purchase.Purchase, cause error) error {
	if mergeErr := s.purchases.MergeError(ctx, p.CustomerID, p.PurchaseID, UserMessage(cause)); mergeErr != nil {
		log.Printf("[Payments] Purchase %s: failed to persist error field: %v", p.PurchaseID, mergeErr)
	}

	s.reporter.Report(ctx, cause, map[string]string{
		"function":    "ChargePurchase",
		"customer_id": p.CustomerID.String(),
		"purchase_id": p.PurchaseID.String(),
	})

	// The failure is recovered here, not propagated: an automatic
	// infrastructure retry of an unhandled fault could re-run the whole
	// pipeline, and while a duplicate error write is harmless, we keep the
	// policy strict and terminate the invocation cleanly.
	return nil
}

// HandlePurchaseUpdated is the confirmation watcher. It reacts to a
// purchase-updated event: when the persisted intent is sitting in
// "requires_confirmation" (some payment methods cannot resolve synchronously
// in the create call), it runs the second confirm step and merges the fresh
// snapshot. Every other status, terminal ones included, is a no-op — an
// already-settled payment must never be re-confirmed.
func (s *Service) HandlePurchaseUpdated(ctx context.Context, customerID, purchaseID uuid.UUID) error {
	p, err := s.purchases.GetPurchase(ctx, customerID, purchaseID)
	if err != nil {
		return fmt.Errorf("fetch purchase: %w", err)
	}

	// The intent reference lives in the payment sub-state, not at the top
	// level of the record.
	if p.Payment == nil || p.Payment.Status != purchase.IntentStatusRequiresConfirmation {
		return nil
	}

	confirmCtx, cancel := context.WithTimeout(ctx, s.chargeTimeout)
	defer cancel()

	snapshot, err := s.gateway.ConfirmAttempt(confirmCtx, p.Payment.ID)
	if err != nil {
		// Same redact-and-report treatment as creation failures.
		return s.recordChargeFailure(ctx, p, err)
	}

	return s.ApplyIntent(ctx, p, snapshot)
}

// ApplyIntent converges the purchase record onto a fresh processor snapshot.
// Shared by the watcher, the webhook processor and the reconciler. A settled
// success is never downgraded.
func (s *Service) ApplyIntent(ctx context.Context, p *purchase.Purchase, snapshot *purchase.IntentSnapshot) error {
	if p.Payment != nil && p.Payment.Status == purchase.IntentStatusSucceeded {
		return nil // never overwrite a success
	}
	if p.Payment != nil && p.Payment.Status == snapshot.Status {
		return nil // already converged
	}
	if err := s.purchases.MergePayment(ctx, p.CustomerID, p.PurchaseID, *snapshot, purchase.StateForIntent(snapshot.Status)); err != nil {
		return fmt.Errorf("merge intent snapshot: %w", err)
	}
	s.publishUpdated(ctx, p.CustomerID, p.PurchaseID)
	return nil
}

// HandleProcessorEvent converges the record for an out-of-band processor
// notification (webhook). The intent id is the correlation key.
func (s *Service) HandleProcessorEvent(ctx context.Context, ev NormalizedEvent) error {
	p, err := s.purchases.GetByIntentID(ctx, ev.ProviderPaymentID)
	if err != nil {
		if errors.Is(err, purchase.ErrPurchaseNotFound) {
			// Old payment, or one created by another system. Not ours to fix.
			return nil
		}
		return fmt.Errorf("correlate intent %s: %w", ev.ProviderPaymentID, err)
	}

	snapshot := purchase.IntentSnapshot{
		ID:          ev.ProviderPaymentID,
		Status:      ev.Status,
		AmountCents: ev.AmountCents,
	}
	if p.Payment != nil {
		snapshot.ClientSecret = p.Payment.ClientSecret
		if ev.AmountCents == 0 {
			snapshot.AmountCents = p.Payment.AmountCents
		}
	}
	return s.ApplyIntent(ctx, p, &snapshot)
}
