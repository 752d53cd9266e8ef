package service

import (
	"brokerage_tracker/internal/domain/entity"
)

// SymbolClassifier splits raw tickers into the buckets served by the price
// providers.
type SymbolClassifier struct {
	assets entity.CryptoAssets
}

// NewSymbolClassifier creates a classifier backed by the given crypto table.
func NewSymbolClassifier(assets entity.CryptoAssets) *SymbolClassifier {
	return &SymbolClassifier{assets: assets}
}

// ClassOf returns the asset class of an already normalized symbol.
func (c *SymbolClassifier) ClassOf(sym entity.Symbol) entity.AssetClass {
	switch {
	case c.assets.Contains(sym):
		return entity.AssetClassCrypto
	case sym.IsEquityTicker():
		return entity.AssetClassEquity
	default:
		return entity.AssetClassUnrecognized
	}
}

// Classify normalizes and dedupes raw tickers, then routes each one to the
// crypto or equity bucket. Empty and unrecognized inputs are dropped.
func (c *SymbolClassifier) Classify(raw []string) entity.Classification {
	out := entity.Classification{
		Crypto: entity.NewSymbolSet(),
		Equity: entity.NewSymbolSet(),
	}
	for _, r := range raw {
		sym, ok := entity.NormalizeSymbol(r)
		if !ok {
			continue
		}
		if bucket := out.Bucket(c.ClassOf(sym)); bucket != nil {
			bucket.Add(sym)
		}
	}
	return out
}
