// internal/payment/payment_service_test.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/accounts"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/catalog"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/purchase"
)

// --- MOCK STORES ---

// mockPurchaseStore mimics the field-level merge semantics of the real
// store: MergePayment and MergeError only touch their own columns.
type mockPurchaseStore struct {
	purchases map[uuid.UUID]*purchase.Purchase

	mergePaymentCalls int
	mergeErrorCalls   int
	mergeErr          error
}

func newMockPurchaseStore(ps ...*purchase.Purchase) *mockPurchaseStore {
	m := &mockPurchaseStore{purchases: map[uuid.UUID]*purchase.Purchase{}}
	for _, p := range ps {
		m.purchases[p.PurchaseID] = p
	}
	return m
}

func (m *mockPurchaseStore) GetPurchase(ctx context.Context, customerID, purchaseID uuid.UUID) (*purchase.Purchase, error) {
	p, ok := m.purchases[purchaseID]
	if !ok || p.CustomerID != customerID {
		return nil, purchase.ErrPurchaseNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPurchaseStore) MergePayment(ctx context.Context, customerID, purchaseID uuid.UUID, snapshot purchase.IntentSnapshot, state purchase.State) error {
	m.mergePaymentCalls++
	if m.mergeErr != nil {
		return m.mergeErr
	}
	p := m.purchases[purchaseID]
	// Merge: only the payment sub-state and lifecycle state change.
	p.Payment = &snapshot
	p.State = state
	return nil
}

func (m *mockPurchaseStore) MergeError(ctx context.Context, customerID, purchaseID uuid.UUID, userMessage string) error {
	m.mergeErrorCalls++
	if m.mergeErr != nil {
		return m.mergeErr
	}
	p := m.purchases[purchaseID]
	p.Error = &userMessage
	p.State = purchase.StateErrored
	return nil
}

func (m *mockPurchaseStore) GetStuck(ctx context.Context, limit int, olderThan time.Duration) ([]*purchase.Purchase, error) {
	return nil, nil
}

func (m *mockPurchaseStore) GetByIntentID(ctx context.Context, intentID string) (*purchase.Purchase, error) {
	for _, p := range m.purchases {
		if p.Payment != nil && p.Payment.ID == intentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, purchase.ErrPurchaseNotFound
}

type mockGameStore struct {
	games map[uuid.UUID]*catalog.Game
}

func (m *mockGameStore) GetGame(ctx context.Context, gameID uuid.UUID) (*catalog.Game, error) {
	if g, ok := m.games[gameID]; ok {
		return g, nil
	}
	return nil, catalog.ErrGameNotFound
}

type mockPayoutStore struct {
	accounts map[uuid.UUID]*accounts.PayoutAccount
}

func (m *mockPayoutStore) GetPayoutAccount(ctx context.Context, creatorID uuid.UUID) (*accounts.PayoutAccount, error) {
	if a, ok := m.accounts[creatorID]; ok {
		return a, nil
	}
	return nil, accounts.ErrPayoutAccountNotFound
}

type mockProfileStore struct {
	profiles map[uuid.UUID]*accounts.CustomerPaymentProfile
}

func (m *mockProfileStore) GetCustomerProfile(ctx context.Context, customerID uuid.UUID) (*accounts.CustomerPaymentProfile, error) {
	if p, ok := m.profiles[customerID]; ok {
		return p, nil
	}
	return nil, accounts.ErrCustomerProfileNotFound
}

// mockGateway is a processor double. It rejects any second create carrying
// an idempotency key it has already seen, so a double charge in a test is a
// hard failure rather than a silent pass.
type mockGateway struct {
	chargeCalls  int
	confirmCalls int
	seenKeys     map[string]bool

	chargeResult  *purchase.IntentSnapshot
	chargeErr     error
	confirmResult *purchase.IntentSnapshot
	confirmErr    error

	lastRequest ChargeRequest
}

func (m *mockGateway) ChargeAttempt(ctx context.Context, req ChargeRequest) (*purchase.IntentSnapshot, error) {
	m.chargeCalls++
	m.lastRequest = req
	if m.seenKeys == nil {
		m.seenKeys = map[string]bool{}
	}
	if m.seenKeys[req.ReferenceID] {
		return nil, fmt.Errorf("test double: duplicate idempotency key %s", req.ReferenceID)
	}
	m.seenKeys[req.ReferenceID] = true
	return m.chargeResult, m.chargeErr
}

func (m *mockGateway) ConfirmAttempt(ctx context.Context, intentID string) (*purchase.IntentSnapshot, error) {
	m.confirmCalls++
	return m.confirmResult, m.confirmErr
}

func (m *mockGateway) GetIntent(ctx context.Context, intentID string) (*purchase.IntentSnapshot, error) {
	return m.chargeResult, nil
}

type mockReporter struct {
	reported []error
}

func (m *mockReporter) Report(ctx context.Context, err error, tags map[string]string) {
	m.reported = append(m.reported, err)
}

// --- FIXTURE ---

type fixture struct {
	svc      *Service
	store    *mockPurchaseStore
	gateway  *mockGateway
	reporter *mockReporter
	p        *purchase.Purchase
	game     *catalog.Game
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	creatorID := uuid.New()
	game := &catalog.Game{
		GameID:     uuid.New(),
		CreatorID:  creatorID,
		PriceCents: 1000,
		Currency:   "usd",
	}
	p := &purchase.Purchase{
		PurchaseID:      uuid.New(),
		CustomerID:      uuid.New(),
		GameID:          game.GameID,
		AmountCents:     1000,
		TipCents:        200,
		Currency:        "usd",
		PaymentMethodID: "pm_42",
		State:           purchase.StateValidating,
	}
	store := newMockPurchaseStore(p)
	gateway := &mockGateway{
		chargeResult: &purchase.IntentSnapshot{
			ID:          "pi_1",
			Status:      purchase.IntentStatusSucceeded,
			AmountCents: 1200,
		},
	}
	reporter := &mockReporter{}
	svc := NewService(
		store,
		&mockGameStore{games: map[uuid.UUID]*catalog.Game{game.GameID: game}},
		&mockPayoutStore{accounts: map[uuid.UUID]*accounts.PayoutAccount{
			creatorID: {CreatorID: creatorID, StripeAccountID: "acct_9"},
		}},
		&mockProfileStore{profiles: map[uuid.UUID]*accounts.CustomerPaymentProfile{
			p.CustomerID: {CustomerID: p.CustomerID, StripeCustomerID: "cus_7"},
		}},
		gateway,
		reporter,
		nil, // no work queue in unit tests; the update chain is exercised directly
	)
	return &fixture{svc: svc, store: store, gateway: gateway, reporter: reporter, p: p, game: game}
}

// --- ORCHESTRATOR TESTS ---

func TestChargePurchase_HappyPath(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ChargePurchase(context.Background(), f.p.CustomerID, f.p.PurchaseID)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	// The gateway request carries the fee split and the purchase id as the
	// idempotency key. amount=1000 tip=200 -> charge 1200, transfer 900.
	req := f.gateway.lastRequest
	if req.ReferenceID != f.p.PurchaseID.String() {
		t.Errorf("idempotency key must be the purchase id, got %s", req.ReferenceID)
	}
	if req.AmountCents != 1200 {
		t.Errorf("expected full amount 1200, got %d", req.AmountCents)
	}
	if req.TransferAmountCents != 900 {
		t.Errorf("expected creator transfer 900, got %d", req.TransferAmountCents)
	}
	if req.DestinationAccountID != "acct_9" {
		t.Errorf("wrong transfer destination: %s", req.DestinationAccountID)
	}

	got := f.store.purchases[f.p.PurchaseID]
	if got.State != purchase.StatePaid {
		t.Errorf("expected PAID, got %s", got.State)
	}
	if got.Payment == nil || got.Payment.ID != "pi_1" {
		t.Errorf("intent snapshot not persisted: %+v", got.Payment)
	}
}

func TestChargePurchase_Idempotency(t *testing.T) {
	// Submitting the same purchase twice must produce exactly one
	// processor-side charge. The double rejects a duplicate key, so a second
	// create would fail the test through the error path too.
	f := newFixture(t)

	if err := f.svc.ChargePurchase(context.Background(), f.p.CustomerID, f.p.PurchaseID); err != nil {
		t.Fatalf("first attempt failed: %v", err)
	}
	if err := f.svc.ChargePurchase(context.Background(), f.p.CustomerID, f.p.PurchaseID); err != nil {
		t.Fatalf("duplicate delivery must be a clean no-op, got %v", err)
	}

	if f.gateway.chargeCalls != 1 {
		t.Errorf("expected exactly 1 charge call, got %d", f.gateway.chargeCalls)
	}
}

func TestChargePurchase_UnderpaymentShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.p.AmountCents = 500 // below the 1000 price floor

	err := f.svc.ChargePurchase(context.Background(), f.p.CustomerID, f.p.PurchaseID)
	if err != nil {
		t.Fatalf("validation abort must be silent, got %v", err)
	}

	if f.gateway.chargeCalls != 0 {
		t.Error("no processor call may happen for an underpaying purchase")
	}
	if f.store.mergePaymentCalls != 0 || f.store.mergeErrorCalls != 0 {
		t.Error("no record mutation may happen for an underpaying purchase")
	}
}

func TestChargePurchase_MissingGameShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.p.GameID = uuid.New() // not in the catalog

	if err := f.svc.ChargePurchase(context.Background(), f.p.CustomerID, f.p.PurchaseID); err != nil {
		t.Fatalf("expected silent abort, got %v", err)
	}
	if f.gateway.chargeCalls != 0 {
		t.Error("no processor call for an unknown game")
	}
}

func TestChargePurchase_UnlinkedPayoutAccountShortCircuits(t *testing.T) {
	f := newFixture(t)
	// Onboarding started but never finished: account exists, id empty.
	f.svc.payoutAccounts = &mockPayoutStore{accounts: map[uuid.UUID]*accounts.PayoutAccount{
		f.game.CreatorID: {CreatorID: f.game.CreatorID},
	}}

	if err := f.svc.ChargePurchase(context.Background(), f.p.CustomerID, f.p.PurchaseID); err != nil {
		t.Fatalf("expected silent abort, got %v", err)
	}
	if f.gateway.chargeCalls != 0 {
		t.Error("cannot pay out => must not charge")
	}
	if f.store.mergePaymentCalls != 0 || f.store.mergeErrorCalls != 0 {
		t.Error("no record mutation when the creator cannot receive payouts")
	}
}

func TestChargePurchase_MissingCustomerProfileShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.svc.customerProfiles = &mockProfileStore{}

	if err := f.svc.ChargePurchase(context.Background(), f.p.CustomerID, f.p.PurchaseID); err != nil {
		t.Fatalf("expected silent abort, got %v", err)
	}
	if f.gateway.chargeCalls != 0 {
		t.Error("no processor call without a customer reference")
	}
}

func TestChargePurchase_GatewayFailureRedactsAndReports(t *testing.T) {
	f := newFixture(t)
	raw := fmt.Errorf("%w: internal gateway detail", ErrPaymentFailed)
	f.gateway.chargeResult = nil
	f.gateway.chargeErr = raw

	err := f.svc.ChargePurchase(context.Background(), f.p.CustomerID, f.p.PurchaseID)
	if err != nil {
		t.Fatalf("charge failures are recovered locally, got %v", err)
	}

	got := f.store.purchases[f.p.PurchaseID]
	if got.State != purchase.StateErrored {
		t.Fatalf("expected ERRORED, got %s", got.State)
	}
	// Unrecognized error: the customer sees only the generic fallback.
	if got.Error == nil || *got.Error != GenericDeclineMessage {
		t.Errorf("expected redacted generic message, got %v", got.Error)
	}
	// The raw error still reaches the diagnostic sink.
	if len(f.reporter.reported) != 1 || !errors.Is(f.reporter.reported[0], ErrPaymentFailed) {
		t.Errorf("raw error must be reported: %v", f.reporter.reported)
	}
}

func TestChargePurchase_RecognizedDeclineKeepsMessage(t *testing.T) {
	f := newFixture(t)
	f.gateway.chargeResult = nil
	f.gateway.chargeErr = &DeclineError{
		UserMessage: "Your card was declined.",
		Err:         ErrPaymentFailed,
	}

	if err := f.svc.ChargePurchase(context.Background(), f.p.CustomerID, f.p.PurchaseID); err != nil {
		t.Fatalf("expected local recovery, got %v", err)
	}

	got := f.store.purchases[f.p.PurchaseID]
	if got.Error == nil || *got.Error != "Your card was declined." {
		t.Errorf("recognized decline should keep its message, got %v", got.Error)
	}
}

func TestChargePurchase_ErrorWriteFailureStillReports(t *testing.T) {
	// The two failure side effects are independent: a broken store must not
	// stop the diagnostic report.
	f := newFixture(t)
	f.gateway.chargeResult = nil
	f.gateway.chargeErr = ErrProviderDown
	f.store.mergeErr = errors.New("db down")

	_ = f.svc.ChargePurchase(context.Background(), f.p.CustomerID, f.p.PurchaseID)

	if len(f.reporter.reported) != 1 {
		t.Errorf("report must be attempted even when the error write fails, got %d", len(f.reporter.reported))
	}
}

func TestChargePurchase_MergeNeverTouchesAmountAndTip(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.ChargePurchase(context.Background(), f.p.CustomerID, f.p.PurchaseID); err != nil {
		t.Fatalf("charge failed: %v", err)
	}

	got := f.store.purchases[f.p.PurchaseID]
	if got.AmountCents != 1000 || got.TipCents != 200 {
		t.Errorf("merge writes must not rewrite amount/tip: got %d/%d", got.AmountCents, got.TipCents)
	}
	if got.PaymentMethodID != "pm_42" {
		t.Errorf("merge writes must not clear checkout fields: %s", got.PaymentMethodID)
	}
}

// --- CONFIRMATION WATCHER TESTS ---

func TestHandlePurchaseUpdated_ConfirmsWhenRequired(t *testing.T) {
	f := newFixture(t)
	f.p.State = purchase.StateNeedsConfirmation
	f.p.Payment = &purchase.IntentSnapshot{
		ID:     "pi_1",
		Status: purchase.IntentStatusRequiresConfirmation,
	}
	f.gateway.confirmResult = &purchase.IntentSnapshot{
		ID:          "pi_1",
		Status:      purchase.IntentStatusSucceeded,
		AmountCents: 1200,
	}

	err := f.svc.HandlePurchaseUpdated(context.Background(), f.p.CustomerID, f.p.PurchaseID)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if f.gateway.confirmCalls != 1 {
		t.Fatalf("expected exactly 1 confirm call, got %d", f.gateway.confirmCalls)
	}
	got := f.store.purchases[f.p.PurchaseID]
	if got.State != purchase.StatePaid || got.Payment.Status != purchase.IntentStatusSucceeded {
		t.Errorf("confirmation outcome not merged: state=%s payment=%+v", got.State, got.Payment)
	}
}

func TestHandlePurchaseUpdated_NoopOnTerminalStatus(t *testing.T) {
	// An already-settled payment must never be re-confirmed.
	f := newFixture(t)
	f.p.State = purchase.StatePaid
	f.p.Payment = &purchase.IntentSnapshot{
		ID:     "pi_1",
		Status: purchase.IntentStatusSucceeded,
	}

	if err := f.svc.HandlePurchaseUpdated(context.Background(), f.p.CustomerID, f.p.PurchaseID); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if f.gateway.confirmCalls != 0 {
		t.Errorf("terminal payment must not be confirmed again, got %d calls", f.gateway.confirmCalls)
	}
}

func TestHandlePurchaseUpdated_NoopWithoutPayment(t *testing.T) {
	f := newFixture(t)
	f.p.Payment = nil

	if err := f.svc.HandlePurchaseUpdated(context.Background(), f.p.CustomerID, f.p.PurchaseID); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if f.gateway.confirmCalls != 0 {
		t.Error("nothing to confirm without a payment sub-state")
	}
}

func TestHandlePurchaseUpdated_ConfirmFailureRedactsAndReports(t *testing.T) {
	f := newFixture(t)
	f.p.State = purchase.StateNeedsConfirmation
	f.p.Payment = &purchase.IntentSnapshot{
		ID:     "pi_1",
		Status: purchase.IntentStatusRequiresConfirmation,
	}
	f.gateway.confirmErr = ErrProviderDown

	if err := f.svc.HandlePurchaseUpdated(context.Background(), f.p.CustomerID, f.p.PurchaseID); err != nil {
		t.Fatalf("confirm failures are recovered locally, got %v", err)
	}

	got := f.store.purchases[f.p.PurchaseID]
	if got.Error == nil {
		t.Error("confirm failure must persist a redacted error, same as creation")
	}
	if len(f.reporter.reported) != 1 {
		t.Errorf("confirm failure must be reported, got %d", len(f.reporter.reported))
	}
}

// --- PROCESSOR EVENT CONVERGENCE ---

func TestHandleProcessorEvent_ConvergesRecord(t *testing.T) {
	f := newFixture(t)
	f.p.State = purchase.StateNeedsConfirmation
	f.p.Payment = &purchase.IntentSnapshot{
		ID:           "pi_1",
		Status:       purchase.IntentStatusRequiresAction,
		ClientSecret: "secret_1",
	}

	err := f.svc.HandleProcessorEvent(context.Background(), NormalizedEvent{
		Provider:          "Stripe",
		ProviderPaymentID: "pi_1",
		Status:            purchase.IntentStatusSucceeded,
		AmountCents:       1200,
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	got := f.store.purchases[f.p.PurchaseID]
	if got.State != purchase.StatePaid {
		t.Errorf("expected PAID after settlement event, got %s", got.State)
	}
	if got.Payment.ClientSecret != "secret_1" {
		t.Error("convergence must not drop the stored client secret")
	}
}

func TestHandleProcessorEvent_NeverDowngradesSuccess(t *testing.T) {
	f := newFixture(t)
	f.p.State = purchase.StatePaid
	f.p.Payment = &purchase.IntentSnapshot{
		ID:     "pi_1",
		Status: purchase.IntentStatusSucceeded,
	}

	err := f.svc.HandleProcessorEvent(context.Background(), NormalizedEvent{
		ProviderPaymentID: "pi_1",
		Status:            purchase.IntentStatusRequiresPaymentMethod,
	})
	if err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if f.store.purchases[f.p.PurchaseID].State != purchase.StatePaid {
		t.Error("a settled success must never be overwritten")
	}
}

func TestHandleProcessorEvent_UnknownIntentIgnored(t *testing.T) {
	f := newFixture(t)

	err := f.svc.HandleProcessorEvent(context.Background(), NormalizedEvent{
		ProviderPaymentID: "pi_unknown",
		Status:            purchase.IntentStatusSucceeded,
	})
	if err != nil {
		t.Fatalf("unknown intents are not ours to fix, got %v", err)
	}
}
