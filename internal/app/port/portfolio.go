package port

import (
	"context"

	"brokerage_tracker/internal/domain/entity"
)

// PortfolioRepository is the persistence gateway for accounts, positions and
// the last-known price table.
type PortfolioRepository interface {
	Load(ctx context.Context) (entity.StoreState, error)
	Save(ctx context.Context, state entity.StoreState) error
}

// PortfolioService manages holdings and derives their valuation.
type PortfolioService interface {
	ListAccounts(ctx context.Context) ([]entity.Account, error)
	CreateAccount(ctx context.Context, name string) (entity.Account, error)
	DeleteAccount(ctx context.Context, id string) error

	ListPositions(ctx context.Context, accountID string) ([]entity.Position, error)
	CreatePosition(ctx context.Context, p entity.Position) (entity.Position, error)
	UpdatePosition(ctx context.Context, p entity.Position) (entity.Position, error)
	DeletePosition(ctx context.Context, id string) error

	// RefreshPrices rebuilds the price table for every stored symbol.
	RefreshPrices(ctx context.Context) (entity.RefreshResult, error)
	// LastPrices returns the last-known price table.
	LastPrices(ctx context.Context) (entity.PriceSnapshot, error)
	// View values the stored positions against the last-known prices.
	View(ctx context.Context, q entity.ViewQuery) (entity.PortfolioView, error)

	Import(ctx context.Context, state entity.StoreState) error
	Export(ctx context.Context) (entity.StoreState, error)
}
