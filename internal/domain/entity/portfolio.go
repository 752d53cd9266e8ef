package entity

import "time"

// StoreVersion is the schema version of the persisted state.
const StoreVersion = 1

// Account groups positions, e.g. one brokerage account.
type Account struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Position is a holding of one symbol. CostBasis is the total amount paid,
// not a per-unit price.
type Position struct {
	ID        string  `json:"id" yaml:"id"`
	AccountID string  `json:"accountId" yaml:"accountId"`
	Symbol    string  `json:"symbol" yaml:"symbol"`
	Quantity  float64 `json:"quantity" yaml:"quantity"`
	CostBasis float64 `json:"costBasis" yaml:"costBasis"`
	Notes     string  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// StoreState is everything the persistence gateway loads and saves.
type StoreState struct {
	Version         int        `json:"version"`
	Accounts        []Account  `json:"accounts"`
	Positions       []Position `json:"positions"`
	Prices          PriceTable `json:"prices"`
	PricesUpdatedAt time.Time  `json:"pricesUpdatedAt,omitempty"`
}

// EmptyStoreState returns a state with no accounts, positions or prices.
func EmptyStoreState() StoreState {
	return StoreState{
		Version:   StoreVersion,
		Accounts:  []Account{},
		Positions: []Position{},
		Prices:    PriceTable{},
	}
}

// Symbols returns the raw symbols of all stored positions.
func (s StoreState) Symbols() []string {
	out := make([]string, 0, len(s.Positions))
	for _, p := range s.Positions {
		out = append(out, p.Symbol)
	}
	return out
}

// ValuationWarning describes a malformed numeric input that was clamped to 0.
type ValuationWarning struct {
	Field string  `json:"field"`
	Value float64 `json:"-"`
	Note  string  `json:"note"`
}

// PositionValuation holds the metrics derived for one position.
type PositionValuation struct {
	Position        Position           `json:"position"`
	Price           float64            `json:"price"`
	PriceKnown      bool               `json:"priceKnown"`
	MarketValue     float64            `json:"marketValue"`
	AverageCost     float64            `json:"averageCost"`
	GainLoss        float64            `json:"gainLoss"`
	GainLossPercent float64            `json:"gainLossPercent"`
	Warnings        []ValuationWarning `json:"warnings,omitempty"`
}

// PortfolioValuation holds the totals over a set of positions.
type PortfolioValuation struct {
	TotalValue           float64 `json:"totalValue"`
	TotalCost            float64 `json:"totalCost"`
	TotalGainLoss        float64 `json:"totalGainLoss"`
	TotalGainLossPercent float64 `json:"totalGainLossPercent"`
	PositionCount        int     `json:"positionCount"`
}

// AllocationSlice is the share of portfolio market value held in one symbol.
type AllocationSlice struct {
	Symbol        string  `json:"symbol"`
	Value         float64 `json:"value"`
	WeightPercent float64 `json:"weightPercent"`
}

// PortfolioView is the valuation tree handed to presentation.
type PortfolioView struct {
	Positions       []PositionValuation `json:"positions"`
	Summary         PortfolioValuation  `json:"summary"`
	Allocation      []AllocationSlice   `json:"allocation"`
	MissingPrices   []string            `json:"missingPrices,omitempty"`
	PricesUpdatedAt time.Time           `json:"pricesUpdatedAt,omitempty"`
}

// PriceSnapshot is the last-known price table and when it was fetched.
type PriceSnapshot struct {
	Prices    PriceTable `json:"prices"`
	UpdatedAt time.Time  `json:"updatedAt,omitempty"`
}

// RefreshResult is the outcome of one price refresh.
type RefreshResult struct {
	Prices    PriceTable       `json:"prices"`
	Providers []ProviderStatus `json:"providers"`
	Missing   []string         `json:"missing,omitempty"`
	Stale     bool             `json:"stale"`
	UpdatedAt time.Time        `json:"updatedAt,omitempty"`
}

// SortKey selects the ordering of positions in a PortfolioView.
type SortKey string

const (
	SortBySymbol SortKey = "symbol"
	SortByValue  SortKey = "value"
	SortByGain   SortKey = "gain"
)

// ViewQuery filters and orders a PortfolioView.
type ViewQuery struct {
	AccountID string
	// Search matches symbol or notes, case-insensitively.
	Search string
	Sort   SortKey
}
