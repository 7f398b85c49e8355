// internal/store/postgres/account_store.postgres.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/accounts"
)

// PayoutAccountStore implements accounts.PayoutAccountStore on PostgreSQL.
type PayoutAccountStore struct {
	db *sql.DB
}

func NewPayoutAccountStore(db *sql.DB) *PayoutAccountStore {
	return &PayoutAccountStore{db: db}
}

func (s *PayoutAccountStore) GetPayoutAccount(ctx context.Context, creatorID uuid.UUID) (*accounts.PayoutAccount, error) {
	query := `
		SELECT creator_id, stripe_account_id, linked_at, created_at
		FROM payout_accounts
		WHERE creator_id = $1`

	var a accounts.PayoutAccount
	var accountID sql.NullString
	var linkedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, creatorID).Scan(&a.CreatorID, &accountID, &linkedAt, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, accounts.ErrPayoutAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db: get payout account: %w", err)
	}

	a.StripeAccountID = accountID.String
	if linkedAt.Valid {
		t := linkedAt.Time
		a.LinkedAt = &t
	}
	return &a, nil
}

// LinkPayoutAccount merges the connected account id onto the creator's row.
// COALESCE makes the write first-wins: an already-linked account keeps its
// original id even if the flow is somehow re-run with a different one.
func (s *PayoutAccountStore) LinkPayoutAccount(ctx context.Context, creatorID uuid.UUID, stripeAccountID string) error {
	query := `
		UPDATE payout_accounts
		SET stripe_account_id = COALESCE(stripe_account_id, $1),
		    linked_at = COALESCE(linked_at, NOW())
		WHERE creator_id = $2`

	res, err := s.db.ExecContext(ctx, query, stripeAccountID, creatorID)
	if err != nil {
		return fmt.Errorf("db: link payout account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return accounts.ErrPayoutAccountNotFound
	}
	return nil
}

// CustomerProfileStore implements accounts.CustomerProfileStore on PostgreSQL.
type CustomerProfileStore struct {
	db *sql.DB
}

func NewCustomerProfileStore(db *sql.DB) *CustomerProfileStore {
	return &CustomerProfileStore{db: db}
}

func (s *CustomerProfileStore) GetCustomerProfile(ctx context.Context, customerID uuid.UUID) (*accounts.CustomerPaymentProfile, error) {
	query := `
		SELECT customer_id, stripe_customer_id, email, created_at
		FROM customer_payment_profiles
		WHERE customer_id = $1`

	var p accounts.CustomerPaymentProfile
	err := s.db.QueryRowContext(ctx, query, customerID).Scan(&p.CustomerID, &p.StripeCustomerID, &p.Email, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, accounts.ErrCustomerProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db: get customer profile: %w", err)
	}
	return &p, nil
}
