// internal/catalog/game.go
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrGameNotFound = errors.New("game not found")

// Game is a purchasable experience published by a creator. The publishing
// flow owns these records; the payment pipeline only reads them to validate
// price and resolve the creator.
type Game struct {
	GameID     uuid.UUID
	CreatorID  uuid.UUID
	PriceCents int64  // floor: a purchase below this is rejected before any money moves
	Currency   string //
	Config     []byte // opaque game configuration blob, not interpreted here
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GameStore is the read-only catalog view the payment pipeline needs.
type GameStore interface {
	GetGame(ctx context.Context, gameID uuid.UUID) (*Game, error)
}
