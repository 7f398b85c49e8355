// internal/worker/reconciliation.go
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/payment"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/purchase"
)

// Reconciler fixes the gap the queue cannot close on its own: a crash or
// timeout between the processor call and our merge write leaves a purchase
// stuck in a non-terminal state while the processor may already have settled
// it. The worker periodically finds those records, asks the processor what
// really happened, and converges the record.
type Reconciler struct {
	service   *payment.Service
	purchases purchase.Store
	gateway   payment.Gateway

	interval    time.Duration
	stuckAfter  time.Duration
	batchSize   int
	workerCount int
}

func NewReconciler(service *payment.Service, purchases purchase.Store, gateway payment.Gateway) *Reconciler {
	return &Reconciler{
		service:     service,
		purchases:   purchases,
		gateway:     gateway,
		interval:    5 * time.Minute,
		stuckAfter:  5 * time.Minute,
		batchSize:   50,
		workerCount: 5,
	}
}

// Start runs the worker loop. Blocking.
func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	log.Printf("[Reconciler] Worker started. Polling every %s.", r.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[Reconciler] Context cancelled, stopping.")
			return
		case <-ticker.C:
			r.processBatch(ctx)
		}
	}
}

// processBatch fans one batch of stuck purchases out over a small pool.
func (r *Reconciler) processBatch(ctx context.Context) {
	stuck, err := r.purchases.GetStuck(ctx, r.batchSize, r.stuckAfter)
	if err != nil {
		log.Printf("[Reconciler] DB error: %v", err)
		return
	}
	if len(stuck) == 0 {
		return
	}
	log.Printf("[Reconciler] Processing %d stuck purchases...", len(stuck))

	jobs := make(chan *purchase.Purchase, len(stuck))
	var wg sync.WaitGroup
	for w := 0; w < r.workerCount; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for p := range jobs {
				if err := r.syncPurchase(ctx, p); err != nil {
					log.Printf("[Reconciler] Worker %d failed on %s: %v", id, p.PurchaseID, err)
				}
			}
		}(w)
	}
	for _, p := range stuck {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
}

// syncPurchase converges one stuck record: local state vs processor truth.
func (r *Reconciler) syncPurchase(ctx context.Context, p *purchase.Purchase) error {
	// No intent reference means we died before (or during) the processor
	// call and the create was never acknowledged. The record must still
	// terminate: mark it errored. If the processor did accept the create,
	// the idempotency key makes a customer retry safe.
	if p.Payment == nil {
		return r.purchases.MergeError(ctx, p.CustomerID, p.PurchaseID, payment.GenericDeclineMessage)
	}

	snapshot, err := r.gateway.GetIntent(ctx, p.Payment.ID)
	if err != nil {
		return fmt.Errorf("gateway check failed: %w", err)
	}

	if snapshot.Status == p.Payment.Status {
		return nil // processor agrees with us, genuinely still in flight
	}

	log.Printf("[Reconciler] Purchase %s (local: %s) -> processor says: %s", p.PurchaseID, p.Payment.Status, snapshot.Status)
	return r.service.ApplyIntent(ctx, p, snapshot)
}
