// internal/worker/reconciliation_test.go
package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/payment"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/purchase"
)

type stubStore struct {
	purchases map[uuid.UUID]*purchase.Purchase
	stuck     []*purchase.Purchase
}

func (s *stubStore) GetPurchase(ctx context.Context, customerID, purchaseID uuid.UUID) (*purchase.Purchase, error) {
	if p, ok := s.purchases[purchaseID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, purchase.ErrPurchaseNotFound
}

func (s *stubStore) MergePayment(ctx context.Context, customerID, purchaseID uuid.UUID, snapshot purchase.IntentSnapshot, state purchase.State) error {
	p := s.purchases[purchaseID]
	p.Payment = &snapshot
	p.State = state
	return nil
}

func (s *stubStore) MergeError(ctx context.Context, customerID, purchaseID uuid.UUID, userMessage string) error {
	p := s.purchases[purchaseID]
	p.Error = &userMessage
	p.State = purchase.StateErrored
	return nil
}

func (s *stubStore) GetStuck(ctx context.Context, limit int, olderThan time.Duration) ([]*purchase.Purchase, error) {
	return s.stuck, nil
}

func (s *stubStore) GetByIntentID(ctx context.Context, intentID string) (*purchase.Purchase, error) {
	return nil, purchase.ErrPurchaseNotFound
}

type stubGateway struct {
	intents map[string]*purchase.IntentSnapshot
	calls   int
}

func (g *stubGateway) ChargeAttempt(ctx context.Context, req payment.ChargeRequest) (*purchase.IntentSnapshot, error) {
	return nil, payment.ErrProviderDown
}

func (g *stubGateway) ConfirmAttempt(ctx context.Context, intentID string) (*purchase.IntentSnapshot, error) {
	return nil, payment.ErrProviderDown
}

func (g *stubGateway) GetIntent(ctx context.Context, intentID string) (*purchase.IntentSnapshot, error) {
	g.calls++
	return g.intents[intentID], nil
}

type noopReporter struct{}

func (noopReporter) Report(ctx context.Context, err error, tags map[string]string) {}

func newReconcilerFixture(stuck ...*purchase.Purchase) (*Reconciler, *stubStore, *stubGateway) {
	store := &stubStore{purchases: map[uuid.UUID]*purchase.Purchase{}, stuck: stuck}
	for _, p := range stuck {
		store.purchases[p.PurchaseID] = p
	}
	gateway := &stubGateway{intents: map[string]*purchase.IntentSnapshot{}}
	svc := payment.NewService(store, nil, nil, nil, gateway, noopReporter{}, nil)
	return NewReconciler(svc, store, gateway), store, gateway
}

func TestSyncPurchase_SettledAtProcessor(t *testing.T) {
	// Local record stuck in CHARGING, processor already settled the intent.
	p := &purchase.Purchase{
		PurchaseID: uuid.New(),
		CustomerID: uuid.New(),
		State:      purchase.StateCharging,
		Payment:    &purchase.IntentSnapshot{ID: "pi_1", Status: purchase.IntentStatusProcessing},
	}
	r, store, gateway := newReconcilerFixture(p)
	gateway.intents["pi_1"] = &purchase.IntentSnapshot{ID: "pi_1", Status: purchase.IntentStatusSucceeded, AmountCents: 1200}

	r.processBatch(context.Background())

	got := store.purchases[p.PurchaseID]
	if got.State != purchase.StatePaid {
		t.Errorf("expected convergence to PAID, got %s", got.State)
	}
}

func TestSyncPurchase_NoIntentReferenceTerminates(t *testing.T) {
	// Crash before the create call was acknowledged: no intent id to ask
	// about. The record must still end in a terminal state.
	p := &purchase.Purchase{
		PurchaseID: uuid.New(),
		CustomerID: uuid.New(),
		State:      purchase.StateCharging,
	}
	r, store, gateway := newReconcilerFixture(p)

	r.processBatch(context.Background())

	got := store.purchases[p.PurchaseID]
	if got.State != purchase.StateErrored {
		t.Errorf("expected ERRORED, got %s", got.State)
	}
	if gateway.calls != 0 {
		t.Error("nothing to ask the processor without an intent reference")
	}
}

func TestSyncPurchase_ProcessorStillInFlight(t *testing.T) {
	p := &purchase.Purchase{
		PurchaseID: uuid.New(),
		CustomerID: uuid.New(),
		State:      purchase.StateCharging,
		Payment:    &purchase.IntentSnapshot{ID: "pi_1", Status: purchase.IntentStatusProcessing},
	}
	r, store, _ := newReconcilerFixture(p)
	rg := r.gateway.(*stubGateway)
	rg.intents["pi_1"] = &purchase.IntentSnapshot{ID: "pi_1", Status: purchase.IntentStatusProcessing}

	r.processBatch(context.Background())

	got := store.purchases[p.PurchaseID]
	if got.State != purchase.StateCharging {
		t.Errorf("in-flight payment must be left alone, got %s", got.State)
	}
}
