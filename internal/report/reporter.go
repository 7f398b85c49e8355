// internal/report/reporter.go
package report

import (
	"context"
	"log"
	"runtime/debug"
	"time"
)

// Sink is the append-only diagnostic log the reporter writes to. The Kafka
// producer satisfies this.
type Sink interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// DiagnosticEvent is the structured record emitted for every captured error.
// The raw error text lives only here; the purchase record only ever carries
// the redacted user-safe message.
type DiagnosticEvent struct {
	Service    string            `json:"service"`
	Function   string            `json:"function"`
	Error      string            `json:"error"`
	StackTrace string            `json:"stack_trace"`
	Context    map[string]string `json:"context,omitempty"`
	At         time.Time         `json:"at"`
}

// Reporter captures exceptions from the payment pipeline and emits them to
// the diagnostic sink. Fire and forget: one attempt, a failed write is
// logged and swallowed, and Report never returns an error — a broken sink
// must not break a payment.
type Reporter struct {
	sink    Sink
	service string

	clock func() time.Time
}

func NewReporter(sink Sink, service string) *Reporter {
	return &Reporter{
		sink:    sink,
		service: service,
		clock:   time.Now,
	}
}

// Report emits one structured diagnostic event. The call is awaited so
// ordering stays deterministic for tests, but the caller never sees sink
// failures.
func (r *Reporter) Report(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}

	function := ""
	if tags != nil {
		function = tags["function"]
	}

	event := DiagnosticEvent{
		Service:    r.service,
		Function:   function,
		Error:      err.Error(),
		StackTrace: string(debug.Stack()),
		Context:    tags,
		At:         r.clock(),
	}

	if pubErr := r.sink.Publish(ctx, r.service, event); pubErr != nil {
		// Swallowed after one attempt. Losing a diagnostic beats failing
		// a payment invocation.
		log.Printf("[Report] diagnostic sink write failed: %v (original error: %v)", pubErr, err)
	}
}
