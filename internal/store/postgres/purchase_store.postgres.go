// internal/store/postgres/purchase_store.postgres.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/purchase"
)

// PurchaseStore implements purchase.Store on PostgreSQL.
//
// The invariant the SQL enforces: MergePayment and MergeError list exactly
// the columns they own. amount_cents, tip_cents, currency and
// payment_method_id never appear in an UPDATE here, so a duplicate delivery
// can only re-write the same values — convergent, not divergent.
type PurchaseStore struct {
	db *sql.DB
}

func NewPurchaseStore(db *sql.DB) *PurchaseStore {
	return &PurchaseStore{db: db}
}

const purchaseColumns = `
	purchase_id, customer_id, game_id, amount_cents, tip_cents, currency,
	payment_method_id, state, intent_id, intent_status, intent_amount_cents,
	intent_client_secret, error_message, created_at, updated_at
`

func (ps *PurchaseStore) GetPurchase(ctx context.Context, customerID, purchaseID uuid.UUID) (*purchase.Purchase, error) {
	query := `SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE customer_id = $1 AND purchase_id = $2`

	row := ps.db.QueryRowContext(ctx, query, customerID, purchaseID)
	return scanPurchase(row)
}

func (ps *PurchaseStore) GetByIntentID(ctx context.Context, intentID string) (*purchase.Purchase, error) {
	query := `SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE intent_id = $1`

	row := ps.db.QueryRowContext(ctx, query, intentID)
	return scanPurchase(row)
}

func (ps *PurchaseStore) MergePayment(ctx context.Context, customerID, purchaseID uuid.UUID, snapshot purchase.IntentSnapshot, state purchase.State) error {
	// COALESCE keeps an already-stored client secret if the fresh snapshot
	// (e.g. from a webhook) does not carry one.
	query := `
		UPDATE purchases
		SET intent_id = $1,
		    intent_status = $2,
		    intent_amount_cents = $3,
		    intent_client_secret = COALESCE(NULLIF($4, ''), intent_client_secret),
		    state = $5,
		    updated_at = NOW()
		WHERE customer_id = $6 AND purchase_id = $7`

	res, err := ps.db.ExecContext(ctx, query,
		snapshot.ID,
		string(snapshot.Status),
		snapshot.AmountCents,
		snapshot.ClientSecret,
		string(state),
		customerID,
		purchaseID,
	)
	if err != nil {
		return fmt.Errorf("db: merge payment: %w", err)
	}
	return requireRow(res)
}

func (ps *PurchaseStore) MergeError(ctx context.Context, customerID, purchaseID uuid.UUID, userMessage string) error {
	query := `
		UPDATE purchases
		SET error_message = $1,
		    state = $2,
		    updated_at = NOW()
		WHERE customer_id = $3 AND purchase_id = $4`

	res, err := ps.db.ExecContext(ctx, query, userMessage, string(purchase.StateErrored), customerID, purchaseID)
	if err != nil {
		return fmt.Errorf("db: merge error: %w", err)
	}
	return requireRow(res)
}

func (ps *PurchaseStore) GetStuck(ctx context.Context, limit int, olderThan time.Duration) ([]*purchase.Purchase, error) {
	cutoff := time.Now().Add(-olderThan)
	query := `SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE state NOT IN ($1, $2) AND updated_at < $3
		ORDER BY updated_at ASC
		LIMIT $4`

	rows, err := ps.db.QueryContext(ctx, query,
		string(purchase.StatePaid), string(purchase.StateErrored), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("db: get stuck purchases: %w", err)
	}
	defer rows.Close()

	var result []*purchase.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPurchase(row rowScanner) (*purchase.Purchase, error) {
	var p purchase.Purchase
	var state string
	var intentID, intentStatus, clientSecret, errMsg sql.NullString
	var intentAmount sql.NullInt64

	err := row.Scan(
		&p.PurchaseID, &p.CustomerID, &p.GameID, &p.AmountCents, &p.TipCents,
		&p.Currency, &p.PaymentMethodID, &state, &intentID, &intentStatus,
		&intentAmount, &clientSecret, &errMsg, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, purchase.ErrPurchaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db: scan purchase: %w", err)
	}

	p.State = purchase.State(state)
	if intentID.Valid {
		p.Payment = &purchase.IntentSnapshot{
			ID:           intentID.String,
			Status:       purchase.IntentStatus(intentStatus.String),
			AmountCents:  intentAmount.Int64,
			ClientSecret: clientSecret.String,
		}
	}
	if errMsg.Valid {
		p.Error = &errMsg.String
	}
	return &p, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return purchase.ErrPurchaseNotFound
	}
	return nil
}
