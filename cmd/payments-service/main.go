// cmd/payments-service/main.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/config"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/connect"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/identity"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/payment"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/payment/webhook"
	stripewebhook "github.com/RyanMcMahon/BoardGameStar-sub001/internal/payment/webhook/stripe"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/queue"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/report"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/store/postgres"
	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/worker"
)

// main wires the payments service: stores, Stripe gateway, work queue,
// diagnostic sink, HTTP surface (OAuth callback + Stripe webhooks), the
// queue consumer and the reconciliation worker. All clients are constructed
// here once and injected; nothing holds ambient global state.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.GetDBURL())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	purchaseStore := postgres.NewPurchaseStore(db)
	gameStore := postgres.NewGameStore(db)
	payoutStore := postgres.NewPayoutAccountStore(db)
	profileStore := postgres.NewCustomerProfileStore(db)

	gateway := payment.NewStripeGateway(cfg.StripeSecretKey)
	ids := identity.NewHTTPProvider(cfg.IdentityBaseURL)

	// Event producer (purchase lifecycle) and diagnostic sink share the
	// broker but not the topic.
	eventProducer := queue.NewKafkaProducer(cfg.KafkaBroker, cfg.PurchaseEventsTopic)
	defer eventProducer.Close()
	diagProducer := queue.NewKafkaProducer(cfg.KafkaBroker, cfg.DiagnosticsTopic)
	defer diagProducer.Close()
	reporter := report.NewReporter(diagProducer, "payments-service")

	paymentService := payment.NewService(
		purchaseStore,
		gameStore,
		payoutStore,
		profileStore,
		gateway,
		reporter,
		eventProducer,
	)

	connectService := connect.NewService(gateway, payoutStore, ids, reporter)

	// HTTP surface: the processor's OAuth redirect and webhook deliveries.
	mux := http.NewServeMux()
	mux.Handle("/oauth", connect.NewOAuthHandler(connectService, cfg.OAuthLandingURL))
	mux.Handle("/webhooks/stripe", webhook.NewHandler(stripewebhook.New(cfg.StripeWebhookSecret), paymentService))

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Printf("HTTP server running on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	// Work queue consumer: dispatches purchase lifecycle events to the
	// orchestrator and the confirmation watcher.
	consumer := queue.NewConsumer([]string{cfg.KafkaBroker}, cfg.PurchaseEventsTopic, cfg.ConsumerGroup)
	defer consumer.Close()
	go consumer.Start(ctx, func(ctx context.Context, key, value []byte) error {
		var ev queue.PurchaseEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			// Poison message: log and commit, redelivery cannot fix it.
			log.Printf("malformed purchase event (key=%s): %v", key, err)
			return nil
		}
		switch ev.Type {
		case queue.EventPurchaseCreated:
			err := paymentService.ChargePurchase(ctx, ev.CustomerID, ev.PurchaseID)
			if err != nil && !payment.IsRetryableError(err) {
				log.Printf("dropping non-retryable charge failure for %s: %v", ev.PurchaseID, err)
				return nil
			}
			return err
		case queue.EventPurchaseUpdated:
			return paymentService.HandlePurchaseUpdated(ctx, ev.CustomerID, ev.PurchaseID)
		default:
			return nil
		}
	})

	// Reconciliation worker: converges purchases stuck between the
	// processor and our records.
	reconciler := worker.NewReconciler(paymentService, purchaseStore, gateway)
	go reconciler.Start(ctx)

	<-ctx.Done()
	log.Println("shutting down...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
