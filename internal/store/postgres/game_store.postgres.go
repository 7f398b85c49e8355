// internal/store/postgres/game_store.postgres.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/RyanMcMahon/BoardGameStar-sub001/internal/catalog"
)

// GameStore implements catalog.GameStore on PostgreSQL. The publishing flow
// owns writes to this table; the payment pipeline only reads.
type GameStore struct {
	db *sql.DB
}

func NewGameStore(db *sql.DB) *GameStore {
	return &GameStore{db: db}
}

func (s *GameStore) GetGame(ctx context.Context, gameID uuid.UUID) (*catalog.Game, error) {
	query := `
		SELECT game_id, creator_id, price_cents, currency, config, created_at, updated_at
		FROM games
		WHERE game_id = $1`

	var g catalog.Game
	err := s.db.QueryRowContext(ctx, query, gameID).Scan(
		&g.GameID, &g.CreatorID, &g.PriceCents, &g.Currency, &g.Config, &g.CreatedAt, &g.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db: get game: %w", err)
	}
	return &g, nil
}
