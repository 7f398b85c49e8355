// internal/queue/producer_test.go
package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	skafka "github.com/segmentio/kafka-go"
)

// fakeWriter records messages written.
type fakeWriter struct {
	msgs []skafka.Message
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...skafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishPurchaseEvent(t *testing.T) {
	fw := &fakeWriter{}
	p := NewKafkaProducerWithWriter(fw)

	ev := PurchaseEvent{
		Type:       EventPurchaseCreated,
		CustomerID: uuid.New(),
		PurchaseID: uuid.New(),
	}

	if err := p.Publish(context.Background(), ev.PurchaseID.String(), ev); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(fw.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fw.msgs))
	}
	if string(fw.msgs[0].Key) != ev.PurchaseID.String() {
		t.Errorf("message key should be the purchase id, got %s", fw.msgs[0].Key)
	}

	var decoded PurchaseEvent
	if err := json.Unmarshal(fw.msgs[0].Value, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded.Type != EventPurchaseCreated {
		t.Errorf("wrong event type: %s", decoded.Type)
	}
}
