package port

import (
	"context"

	"brokerage_tracker/internal/domain/entity"
)

// PriceProvider fetches prices for one asset class from one external source.
// Implementations issue a single batched request per call and return
// *entity.ProviderError when the call does not complete successfully.
type PriceProvider interface {
	// Name identifies the provider in logs, metrics and statuses.
	Name() string
	// AssetClass is the bucket of symbols this provider is able to price.
	AssetClass() entity.AssetClass
	// Fetch returns the prices found for the requested symbols. An empty set
	// yields an empty table without any network call.
	Fetch(ctx context.Context, symbols entity.SymbolSet) (entity.PriceTable, error)
}

// PriceAggregator fans a symbol list out to every applicable provider and
// merges what comes back.
type PriceAggregator interface {
	Aggregate(ctx context.Context, symbols []string) (entity.PriceTable, error)
	AggregateReport(ctx context.Context, symbols []string) (entity.AggregateReport, error)
}
