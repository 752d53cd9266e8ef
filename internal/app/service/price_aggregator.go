package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"brokerage_tracker/internal/app/port"
	"brokerage_tracker/internal/domain/entity"
	"brokerage_tracker/internal/pkg/metrics"
)

// DefaultProviderTimeout bounds a single provider call when none is configured.
const DefaultProviderTimeout = 10 * time.Second

type priceAggregatorImpl struct {
	classifier *SymbolClassifier
	providers  []port.PriceProvider
	timeout    time.Duration
	metrics    *metrics.ProviderMetrics
	logger     *zap.Logger
}

// NewPriceAggregator creates an aggregator over the given providers. Providers
// are merged in slice order, so a later provider wins when two of them price
// the same symbol.
func NewPriceAggregator(
	classifier *SymbolClassifier,
	providers []port.PriceProvider,
	providerTimeout time.Duration,
	m *metrics.ProviderMetrics,
	logger *zap.Logger,
) port.PriceAggregator {
	if providerTimeout <= 0 {
		providerTimeout = DefaultProviderTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &priceAggregatorImpl{
		classifier: classifier,
		providers:  providers,
		timeout:    providerTimeout,
		metrics:    m,
		logger:     logger.Named("aggregator"),
	}
}

// Aggregate implements port.PriceAggregator.
func (a *priceAggregatorImpl) Aggregate(ctx context.Context, symbols []string) (entity.PriceTable, error) {
	report, err := a.AggregateReport(ctx, symbols)
	if err != nil {
		return nil, err
	}
	return report.Prices, nil
}

// AggregateReport implements port.PriceAggregator.
func (a *priceAggregatorImpl) AggregateReport(ctx context.Context, symbols []string) (entity.AggregateReport, error) {
	classes := a.classifier.Classify(symbols)
	if dropped := countDropped(symbols, classes); dropped > 0 {
		a.logger.Debug("Dropped unrecognized symbols", zap.Int("count", dropped))
	}

	statuses := make([]entity.ProviderStatus, len(a.providers))
	tables := make([]entity.PriceTable, len(a.providers))

	// Units never return an error to the group: every provider settles on its own.
	var g errgroup.Group
	for i, p := range a.providers {
		bucket := classes.Bucket(p.AssetClass())
		statuses[i] = entity.ProviderStatus{
			Provider:   p.Name(),
			AssetClass: p.AssetClass().String(),
			Requested:  len(bucket),
		}
		if len(bucket) == 0 {
			continue
		}
		statuses[i].Invoked = true

		i, p := i, p
		g.Go(func() error {
			tables[i], statuses[i] = a.fetch(ctx, p, bucket, statuses[i])
			return nil
		})
	}
	_ = g.Wait()

	report := entity.AggregateReport{Prices: entity.PriceTable{}, Statuses: statuses}
	var (
		invoked int
		errs    []error
	)
	for i, st := range statuses {
		if !st.Invoked {
			continue
		}
		invoked++
		if st.Failed() {
			errs = append(errs, st.Err)
			continue
		}
		a.merge(report.Prices, tables[i], st.Provider)
	}

	if invoked > 0 && len(errs) == invoked {
		a.logger.Error("All price providers failed", zap.Int("invoked", invoked), zap.Errors("errors", errs))
		return report, fmt.Errorf("%w: %w", entity.ErrAllProvidersFailed, errors.Join(errs...))
	}
	return report, nil
}

func (a *priceAggregatorImpl) fetch(
	ctx context.Context,
	p port.PriceProvider,
	bucket entity.SymbolSet,
	st entity.ProviderStatus,
) (entity.PriceTable, entity.ProviderStatus) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	table, err := p.Fetch(callCtx, bucket)
	st.Duration = time.Since(start)
	if err != nil {
		st.Err = err
		st.Error = err.Error()
		a.metrics.ObserveFetch(p.Name(), st.Duration, 0, err)
		a.logger.Warn("Price provider failed",
			zap.String("provider", p.Name()),
			zap.Int("requested", st.Requested),
			zap.Duration("duration", st.Duration),
			zap.Error(err))
		return nil, st
	}

	st.Returned = len(table)
	a.metrics.ObserveFetch(p.Name(), st.Duration, st.Returned, nil)
	a.logger.Debug("Price provider returned",
		zap.String("provider", p.Name()),
		zap.Int("requested", st.Requested),
		zap.Int("returned", st.Returned),
		zap.Duration("duration", st.Duration))
	return table, st
}

func (a *priceAggregatorImpl) merge(dst, src entity.PriceTable, provider string) {
	for sym, price := range src {
		if !entity.IsValidPrice(price) {
			continue
		}
		if prev, ok := dst[sym]; ok {
			a.logger.Warn("Symbol priced by more than one provider",
				zap.String("symbol", sym.String()),
				zap.Float64("previous", prev),
				zap.Float64("price", price),
				zap.String("winner", provider))
		}
		dst[sym] = price
	}
}

func countDropped(raw []string, c entity.Classification) int {
	seen := entity.NewSymbolSet()
	for _, r := range raw {
		if sym, ok := entity.NormalizeSymbol(r); ok {
			seen.Add(sym)
		}
	}
	return len(seen) - len(c.Crypto) - len(c.Equity)
}
