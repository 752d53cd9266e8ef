package entity

import (
	"regexp"
	"sort"
	"strings"
)

// Symbol is a normalized ticker: trimmed, uppercase and never empty.
// Values are only produced by NormalizeSymbol, so comparing two Symbols is
// a case-insensitive comparison of the raw tickers they came from.
type Symbol string

// AssetClass routes a symbol to the provider able to price it.
type AssetClass int

const (
	// AssetClassUnrecognized symbols are never fetched.
	AssetClassUnrecognized AssetClass = iota
	// AssetClassEquity symbols are priced by the equity quote provider.
	AssetClassEquity
	// AssetClassCrypto symbols are priced by the crypto provider.
	AssetClassCrypto
)

func (c AssetClass) String() string {
	switch c {
	case AssetClassEquity:
		return "equity"
	case AssetClassCrypto:
		return "crypto"
	default:
		return "unrecognized"
	}
}

var equityTickerPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// NormalizeSymbol trims and uppercases a raw ticker.
// It returns false when nothing is left after trimming.
func NormalizeSymbol(raw string) (Symbol, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	return Symbol(s), true
}

// IsEquityTicker reports whether the symbol has the plain alphanumeric shape
// accepted by the equity provider.
func (s Symbol) IsEquityTicker() bool {
	return equityTickerPattern.MatchString(string(s))
}

func (s Symbol) String() string { return string(s) }

// SymbolSet is a set of normalized symbols.
type SymbolSet map[Symbol]struct{}

// NewSymbolSet builds a set from already normalized symbols.
func NewSymbolSet(symbols ...Symbol) SymbolSet {
	set := make(SymbolSet, len(symbols))
	for _, s := range symbols {
		set[s] = struct{}{}
	}
	return set
}

// Add inserts a symbol into the set.
func (s SymbolSet) Add(sym Symbol) { s[sym] = struct{}{} }

// Contains reports set membership.
func (s SymbolSet) Contains(sym Symbol) bool {
	_, ok := s[sym]
	return ok
}

// Sorted returns the members in ascending order, so requests built from a set
// are deterministic.
func (s SymbolSet) Sorted() []Symbol {
	out := make([]Symbol, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Classification is the result of one classification pass.
// Crypto and Equity never share a member.
type Classification struct {
	Crypto SymbolSet
	Equity SymbolSet
}

// Bucket returns the set routed to the given asset class.
func (c Classification) Bucket(class AssetClass) SymbolSet {
	switch class {
	case AssetClassCrypto:
		return c.Crypto
	case AssetClassEquity:
		return c.Equity
	default:
		return nil
	}
}
