// internal/queue/events.go
package queue

import "github.com/google/uuid"

// Purchase lifecycle event types. Checkout publishes Created when it writes a
// new purchase; our own merge writes publish Updated. The consumer loop
// dispatches them to the orchestrator and the confirmation watcher — an
// explicit work queue instead of storage-trigger side effects, so ordering
// and retries are auditable.
const (
	EventPurchaseCreated = "purchase.created"
	EventPurchaseUpdated = "purchase.updated"
)

// PurchaseEvent is the wire shape on the purchase-events topic. The message
// key is the purchase id, which keeps all events for one purchase on one
// partition and therefore in order.
type PurchaseEvent struct {
	Type       string    `json:"type"`
	CustomerID uuid.UUID `json:"customer_id"`
	PurchaseID uuid.UUID `json:"purchase_id"`
}
