package entity

// CryptoAssets maps crypto tickers to the provider-specific asset id
// (BTC -> "bitcoin"). It is immutable once built.
type CryptoAssets struct {
	ids map[Symbol]string
}

var defaultCryptoAssetIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"LTC":   "litecoin",
	"BCH":   "bitcoin-cash",
	"XRP":   "ripple",
	"AVAX":  "avalanche-2",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
}

// NewCryptoAssets copies the given ticker -> id mapping. Tickers are normalized;
// entries with an empty ticker or id are dropped.
func NewCryptoAssets(ids map[string]string) CryptoAssets {
	out := make(map[Symbol]string, len(ids))
	for ticker, id := range ids {
		sym, ok := NormalizeSymbol(ticker)
		if !ok || id == "" {
			continue
		}
		out[sym] = id
	}
	return CryptoAssets{ids: out}
}

// DefaultCryptoAssets returns the built-in CoinGecko id table.
func DefaultCryptoAssets() CryptoAssets {
	return NewCryptoAssets(defaultCryptoAssetIDs)
}

// WithOverrides returns a new table with extra entries layered on top.
func (c CryptoAssets) WithOverrides(overrides map[string]string) CryptoAssets {
	merged := make(map[string]string, len(c.ids)+len(overrides))
	for sym, id := range c.ids {
		merged[string(sym)] = id
	}
	for ticker, id := range overrides {
		merged[ticker] = id
	}
	return NewCryptoAssets(merged)
}

// ID returns the provider asset id for a ticker.
func (c CryptoAssets) ID(sym Symbol) (string, bool) {
	id, ok := c.ids[sym]
	return id, ok
}

// Contains reports whether the ticker is a known crypto asset.
func (c CryptoAssets) Contains(sym Symbol) bool {
	_, ok := c.ids[sym]
	return ok
}

// Len returns the number of known assets.
func (c CryptoAssets) Len() int { return len(c.ids) }
