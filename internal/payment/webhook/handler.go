// internal/payment/webhook/handler.go
package webhook

import (
	"io"
	"log"
	"net/http"

	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/payment"
)

// Handler terminates processor webhook deliveries: verify, normalize,
// converge. Responding non-2xx makes the processor redeliver, so only
// convergence failures (our DB) report an error; signature failures are
// rejected outright and ignored event types are acknowledged.
type Handler struct {
	processor payment.WebhookProcessor
	service   *payment.Service

	maxBodyBytes int64
}

func NewHandler(processor payment.WebhookProcessor, service *payment.Service) *Handler {
	return &Handler{
		processor:    processor,
		service:      service,
		maxBodyBytes: 1 << 16, // intent events are small
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodyBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	headers := map[string]string{
		"Stripe-Signature": r.Header.Get("Stripe-Signature"),
	}

	event, err := h.processor.VerifyAndParse(payload, headers)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}
	if event == nil {
		// Valid delivery, event type we don't act on.
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.service.HandleProcessorEvent(r.Context(), *event); err != nil {
		log.Printf("[Webhook] convergence failed for %s: %v", event.ProviderPaymentID, err)
		http.Error(w, "retry later", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
