package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"brokerage_tracker/internal/app/port"
	"brokerage_tracker/internal/domain/entity"
	"brokerage_tracker/internal/pkg/metrics"
)

const lastPricesCacheKey = "prices:last"

// Refresh outcomes reported to metrics.
const (
	refreshFresh   = "fresh"
	refreshPartial = "partial"
	refreshStale   = "stale"
	refreshFailed  = "failed"
)

// PortfolioServiceImpl implements port.PortfolioService.
type PortfolioServiceImpl struct {
	repo       port.PortfolioRepository
	aggregator port.PriceAggregator
	prices     *cache.Cache
	metrics    *metrics.ProviderMetrics
	logger     port.Logger
	now        func() time.Time

	// mu guards load-modify-save sections. It is never held across a
	// price fetch.
	mu sync.Mutex
}

// NewPortfolioService creates a new instance of PortfolioServiceImpl.
func NewPortfolioService(
	repo port.PortfolioRepository,
	aggregator port.PriceAggregator,
	priceTTL time.Duration,
	m *metrics.ProviderMetrics,
	l port.Logger,
) *PortfolioServiceImpl {
	if priceTTL <= 0 {
		priceTTL = time.Hour
	}
	return &PortfolioServiceImpl{
		repo:       repo,
		aggregator: aggregator,
		prices:     cache.New(priceTTL, 2*priceTTL),
		metrics:    m,
		logger:     l,
		now:        time.Now,
	}
}

var _ port.PortfolioService = (*PortfolioServiceImpl)(nil)

// ListAccounts returns every account in stored order.
func (s *PortfolioServiceImpl) ListAccounts(ctx context.Context) ([]entity.Account, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return state.Accounts, nil
}

// CreateAccount adds an account with a fresh id.
func (s *PortfolioServiceImpl) CreateAccount(ctx context.Context, name string) (entity.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entity.Account{}, fmt.Errorf("%w: name is required", entity.ErrInvalidAccount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		return entity.Account{}, err
	}
	acc := entity.Account{ID: uuid.NewString(), Name: name}
	state.Accounts = append(state.Accounts, acc)
	if err := s.save(ctx, state); err != nil {
		return entity.Account{}, err
	}
	s.logger.Info("Account created", "id", acc.ID, "name", acc.Name)
	return acc, nil
}

// DeleteAccount removes an account together with its positions.
func (s *PortfolioServiceImpl) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOfAccount(state.Accounts, id)
	if idx < 0 {
		return fmt.Errorf("account %s: %w", id, entity.ErrNotFound)
	}
	state.Accounts = append(state.Accounts[:idx], state.Accounts[idx+1:]...)

	kept := state.Positions[:0]
	removed := 0
	for _, p := range state.Positions {
		if p.AccountID == id {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	state.Positions = kept

	if err := s.save(ctx, state); err != nil {
		return err
	}
	s.logger.Info("Account deleted", "id", id, "positions_removed", removed)
	return nil
}

// ListPositions returns the positions of one account, or all positions when
// accountID is empty.
func (s *PortfolioServiceImpl) ListPositions(ctx context.Context, accountID string) ([]entity.Position, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if accountID == "" {
		return state.Positions, nil
	}
	out := make([]entity.Position, 0, len(state.Positions))
	for _, p := range state.Positions {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	return out, nil
}

// CreatePosition validates and stores a new position under a fresh id.
func (s *PortfolioServiceImpl) CreatePosition(ctx context.Context, p entity.Position) (entity.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		return entity.Position{}, err
	}
	p, err = validatePosition(p, state.Accounts)
	if err != nil {
		return entity.Position{}, err
	}
	p.ID = uuid.NewString()
	state.Positions = append(state.Positions, p)
	if err := s.save(ctx, state); err != nil {
		return entity.Position{}, err
	}
	s.logger.Info("Position created", "id", p.ID, "symbol", p.Symbol, "account", p.AccountID)
	return p, nil
}

// UpdatePosition replaces an existing position.
func (s *PortfolioServiceImpl) UpdatePosition(ctx context.Context, p entity.Position) (entity.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		return entity.Position{}, err
	}
	idx := indexOfPosition(state.Positions, p.ID)
	if idx < 0 {
		return entity.Position{}, fmt.Errorf("position %s: %w", p.ID, entity.ErrNotFound)
	}
	p, err = validatePosition(p, state.Accounts)
	if err != nil {
		return entity.Position{}, err
	}
	state.Positions[idx] = p
	if err := s.save(ctx, state); err != nil {
		return entity.Position{}, err
	}
	s.logger.Info("Position updated", "id", p.ID, "symbol", p.Symbol)
	return p, nil
}

// DeletePosition removes a position.
func (s *PortfolioServiceImpl) DeletePosition(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOfPosition(state.Positions, id)
	if idx < 0 {
		return fmt.Errorf("position %s: %w", id, entity.ErrNotFound)
	}
	state.Positions = append(state.Positions[:idx], state.Positions[idx+1:]...)
	if err := s.save(ctx, state); err != nil {
		return err
	}
	s.logger.Info("Position deleted", "id", id)
	return nil
}

// RefreshPrices fetches prices for every stored symbol. When every invoked
// provider fails, the last-known table is returned with Stale set; the error
// is only surfaced when no prices were ever known.
func (s *PortfolioServiceImpl) RefreshPrices(ctx context.Context) (entity.RefreshResult, error) {
	state, err := s.load(ctx)
	if err != nil {
		return entity.RefreshResult{}, err
	}
	held := heldSymbols(state.Positions)

	report, aggErr := s.aggregator.AggregateReport(ctx, state.Symbols())
	result := entity.RefreshResult{
		Providers: report.Statuses,
		Missing:   symbolStrings(report.Missing(held)),
	}

	if aggErr != nil {
		if !errors.Is(aggErr, entity.ErrAllProvidersFailed) {
			s.metrics.ObserveRefresh(refreshFailed)
			return result, fmt.Errorf("failed to refresh prices: %w", aggErr)
		}
		last, err := s.LastPrices(ctx)
		if err != nil {
			return result, err
		}
		if len(last.Prices) == 0 {
			s.metrics.ObserveRefresh(refreshFailed)
			s.logger.Error("Price refresh failed and no cached prices exist", "error", aggErr)
			return result, fmt.Errorf("failed to refresh prices: %w", aggErr)
		}
		s.metrics.ObserveRefresh(refreshStale)
		s.logger.Warn("Price refresh failed, serving last-known prices",
			"error", aggErr, "updated_at", last.UpdatedAt)
		result.Prices = last.Prices
		result.UpdatedAt = last.UpdatedAt
		result.Stale = true
		result.Missing = symbolStrings(entity.AggregateReport{Prices: last.Prices}.Missing(held))
		return result, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Reload so that edits made during the fetch are not lost.
	current, err := s.load(ctx)
	if err != nil {
		return result, err
	}
	table := report.Prices.Clone()
	for sym, price := range current.Prices {
		if _, fresh := table[sym]; !fresh && held.Contains(sym) {
			table[sym] = price
		}
	}
	current.Prices = table
	current.PricesUpdatedAt = s.now().UTC()
	if err := s.save(ctx, current); err != nil {
		return result, err
	}
	s.cachePrices(entity.PriceSnapshot{Prices: table, UpdatedAt: current.PricesUpdatedAt})

	outcome := refreshFresh
	for _, st := range report.Statuses {
		if st.Failed() {
			outcome = refreshPartial
		}
	}
	s.metrics.ObserveRefresh(outcome)
	s.logger.Info("Prices refreshed",
		"symbols", len(held),
		"priced", len(report.Prices),
		"missing", len(result.Missing),
		"outcome", outcome)

	result.Prices = table.Clone()
	result.UpdatedAt = current.PricesUpdatedAt
	return result, nil
}

// LastPrices returns the last-known price table, from memory when possible.
func (s *PortfolioServiceImpl) LastPrices(ctx context.Context) (entity.PriceSnapshot, error) {
	if cached, ok := s.prices.Get(lastPricesCacheKey); ok {
		snap := cached.(entity.PriceSnapshot)
		return entity.PriceSnapshot{Prices: snap.Prices.Clone(), UpdatedAt: snap.UpdatedAt}, nil
	}
	state, err := s.load(ctx)
	if err != nil {
		return entity.PriceSnapshot{}, err
	}
	snap := entity.PriceSnapshot{Prices: state.Prices, UpdatedAt: state.PricesUpdatedAt}
	s.cachePrices(snap)
	return entity.PriceSnapshot{Prices: snap.Prices.Clone(), UpdatedAt: snap.UpdatedAt}, nil
}

// View values the stored positions against the last-known prices.
func (s *PortfolioServiceImpl) View(ctx context.Context, q entity.ViewQuery) (entity.PortfolioView, error) {
	state, err := s.load(ctx)
	if err != nil {
		return entity.PortfolioView{}, err
	}
	snap, err := s.LastPrices(ctx)
	if err != nil {
		return entity.PortfolioView{}, err
	}

	positions := filterPositions(state.Positions, q)
	rows, summary := ValuePositions(positions, snap.Prices)
	for _, row := range rows {
		for _, w := range row.Warnings {
			s.logger.Warn("Clamped malformed valuation input",
				"position", row.Position.ID, "symbol", row.Position.Symbol,
				"field", w.Field, "value", w.Value, "note", w.Note)
		}
	}
	sortValuations(rows, q.Sort)

	return entity.PortfolioView{
		Positions:       rows,
		Summary:         summary,
		Allocation:      Allocation(rows),
		MissingPrices:   symbolStrings(entity.AggregateReport{Prices: snap.Prices}.Missing(heldSymbols(positions))),
		PricesUpdatedAt: snap.UpdatedAt,
	}, nil
}

// Import replaces the stored state. Accounts and positions go through the
// same validation as the CRUD operations; any invalid entry or duplicate id
// rejects the whole import and leaves the stored state untouched.
func (s *PortfolioServiceImpl) Import(ctx context.Context, state entity.StoreState) error {
	state, err := validateImport(state)
	if err != nil {
		s.logger.Warn("Import rejected", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, state); err != nil {
		return err
	}
	s.cachePrices(entity.PriceSnapshot{Prices: state.Prices.Clone(), UpdatedAt: state.PricesUpdatedAt})
	s.logger.Info("Portfolio imported",
		"accounts", len(state.Accounts),
		"positions", len(state.Positions),
		"prices", len(state.Prices))
	return nil
}

// Export returns the stored state.
func (s *PortfolioServiceImpl) Export(ctx context.Context) (entity.StoreState, error) {
	return s.load(ctx)
}

func (s *PortfolioServiceImpl) load(ctx context.Context) (entity.StoreState, error) {
	state, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to load portfolio", "error", err)
		return entity.StoreState{}, fmt.Errorf("failed to load portfolio: %w", err)
	}
	return state, nil
}

func (s *PortfolioServiceImpl) save(ctx context.Context, state entity.StoreState) error {
	if err := s.repo.Save(ctx, state); err != nil {
		s.logger.Error("Failed to save portfolio", "error", err)
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	return nil
}

func (s *PortfolioServiceImpl) cachePrices(snap entity.PriceSnapshot) {
	if snap.Prices == nil {
		snap.Prices = entity.PriceTable{}
	}
	s.prices.SetDefault(lastPricesCacheKey, snap)
}

func validatePosition(p entity.Position, accounts []entity.Account) (entity.Position, error) {
	sym, ok := entity.NormalizeSymbol(p.Symbol)
	if !ok {
		return p, fmt.Errorf("%w: symbol is required", entity.ErrInvalidPosition)
	}
	p.Symbol = sym.String()
	if math.IsNaN(p.Quantity) || math.IsInf(p.Quantity, 0) || p.Quantity < 0 {
		return p, fmt.Errorf("%w: quantity must be a non-negative number", entity.ErrInvalidPosition)
	}
	if math.IsNaN(p.CostBasis) || math.IsInf(p.CostBasis, 0) || p.CostBasis < 0 {
		return p, fmt.Errorf("%w: cost basis must be a non-negative number", entity.ErrInvalidPosition)
	}
	p.AccountID = strings.TrimSpace(p.AccountID)
	if p.AccountID != "" && indexOfAccount(accounts, p.AccountID) < 0 {
		return p, fmt.Errorf("%w: account %s does not exist", entity.ErrInvalidPosition, p.AccountID)
	}
	p.Notes = strings.TrimSpace(p.Notes)
	return p, nil
}

func validateImport(state entity.StoreState) (entity.StoreState, error) {
	out := entity.EmptyStoreState()
	out.PricesUpdatedAt = state.PricesUpdatedAt
	for sym, price := range state.Prices {
		out.Prices.Set(sym, price)
	}

	seen := make(map[string]struct{}, len(state.Accounts)+len(state.Positions))
	claim := func(id string) bool {
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
		return true
	}

	for i, acc := range state.Accounts {
		acc.ID = strings.TrimSpace(acc.ID)
		acc.Name = strings.TrimSpace(acc.Name)
		if acc.ID == "" {
			acc.ID = uuid.NewString()
		}
		if acc.Name == "" {
			return out, fmt.Errorf("%w: account %d: name is required", entity.ErrInvalidAccount, i)
		}
		if !claim("a:" + acc.ID) {
			return out, fmt.Errorf("%w: duplicate account id %s", entity.ErrInvalidAccount, acc.ID)
		}
		out.Accounts = append(out.Accounts, acc)
	}

	for i, p := range state.Positions {
		p, err := validatePosition(p, out.Accounts)
		if err != nil {
			return out, fmt.Errorf("position %d: %w", i, err)
		}
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if !claim("p:" + p.ID) {
			return out, fmt.Errorf("%w: duplicate position id %s", entity.ErrInvalidPosition, p.ID)
		}
		out.Positions = append(out.Positions, p)
	}
	return out, nil
}

func filterPositions(positions []entity.Position, q entity.ViewQuery) []entity.Position {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]entity.Position, 0, len(positions))
	for _, p := range positions {
		if q.AccountID != "" && p.AccountID != q.AccountID {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Symbol), needle) &&
			!strings.Contains(strings.ToLower(p.Notes), needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sortValuations(rows []entity.PositionValuation, key entity.SortKey) {
	symbolOf := func(v entity.PositionValuation) string {
		return strings.ToUpper(strings.TrimSpace(v.Position.Symbol))
	}
	var less func(a, b entity.PositionValuation) bool
	switch key {
	case entity.SortBySymbol:
		less = func(a, b entity.PositionValuation) bool { return symbolOf(a) < symbolOf(b) }
	case entity.SortByValue:
		less = func(a, b entity.PositionValuation) bool { return a.MarketValue > b.MarketValue }
	case entity.SortByGain:
		less = func(a, b entity.PositionValuation) bool { return a.GainLoss > b.GainLoss }
	default:
		return
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
}

func heldSymbols(positions []entity.Position) entity.SymbolSet {
	set := entity.NewSymbolSet()
	for _, p := range positions {
		if sym, ok := entity.NormalizeSymbol(p.Symbol); ok {
			set.Add(sym)
		}
	}
	return set
}

func symbolStrings(symbols []entity.Symbol) []string {
	if len(symbols) == 0 {
		return nil
	}
	out := make([]string, len(symbols))
	for i, sym := range symbols {
		out[i] = sym.String()
	}
	return out
}

func indexOfAccount(accounts []entity.Account, id string) int {
	for i, a := range accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func indexOfPosition(positions []entity.Position, id string) int {
	for i, p := range positions {
		if p.ID == id {
			return i
		}
	}
	return -1
}
