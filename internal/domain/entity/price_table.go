package entity

import (
	"math"
	"sort"
	"time"
)

// PriceTable maps normalized symbols to a positive price in the reference
// currency. A missing entry means the price is unknown, which is not the same
// as a zero price.
type PriceTable map[Symbol]float64

// Set stores a price if it is a usable quote (positive and finite).
// It reports whether the price was stored.
func (t PriceTable) Set(sym Symbol, price float64) bool {
	if !IsValidPrice(price) {
		return false
	}
	t[sym] = price
	return true
}

// Lookup returns the price for a symbol.
func (t PriceTable) Lookup(sym Symbol) (float64, bool) {
	price, ok := t[sym]
	return price, ok
}

// Clone returns an independent copy of the table.
func (t PriceTable) Clone() PriceTable {
	out := make(PriceTable, len(t))
	for sym, price := range t {
		out[sym] = price
	}
	return out
}

// Symbols returns the priced symbols in ascending order.
func (t PriceTable) Symbols() []Symbol {
	out := make([]Symbol, 0, len(t))
	for sym := range t {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsValidPrice reports whether a provider value can enter a PriceTable.
func IsValidPrice(price float64) bool {
	return price > 0 && !math.IsInf(price, 0) && !math.IsNaN(price)
}

// ProviderStatus records how one provider behaved during an aggregation.
type ProviderStatus struct {
	Provider   string        `json:"provider"`
	AssetClass string        `json:"assetClass"`
	Invoked    bool          `json:"invoked"`
	Requested  int           `json:"requested"`
	Returned   int           `json:"returned"`
	Duration   time.Duration `json:"durationNs"`
	Err        error         `json:"-"`
	Error      string        `json:"error,omitempty"`
}

// Failed reports whether the provider was called and did not succeed.
func (s ProviderStatus) Failed() bool {
	return s.Invoked && s.Err != nil
}

// AggregateReport is the merged price table plus a status per provider.
type AggregateReport struct {
	Prices   PriceTable       `json:"prices"`
	Statuses []ProviderStatus `json:"providers"`
}

// Missing returns the requested symbols that have no price in the report.
func (r AggregateReport) Missing(requested SymbolSet) []Symbol {
	var out []Symbol
	for _, sym := range requested.Sorted() {
		if _, ok := r.Prices[sym]; !ok {
			out = append(out, sym)
		}
	}
	return out
}
