package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"brokerage_tracker/internal/domain/entity"
)

func TestSymbolClassifier_Classify(t *testing.T) {
	c := NewSymbolClassifier(entity.DefaultCryptoAssets())

	got := c.Classify([]string{"btc", "AAPL", "  msft "})

	assert.Equal(t, entity.NewSymbolSet("BTC"), got.Crypto)
	assert.Equal(t, entity.NewSymbolSet("AAPL", "MSFT"), got.Equity)
}

func TestSymbolClassifier_DropsEmptyAndUnrecognized(t *testing.T) {
	c := NewSymbolClassifier(entity.DefaultCryptoAssets())

	got := c.Classify([]string{"", "   ", "BRK.B", "foo-bar", "eth", "ETH", " Eth "})

	assert.Equal(t, entity.NewSymbolSet("ETH"), got.Crypto)
	assert.Empty(t, got.Equity)
}

func TestSymbolClassifier_EmptyInput(t *testing.T) {
	c := NewSymbolClassifier(entity.DefaultCryptoAssets())

	got := c.Classify(nil)

	assert.Empty(t, got.Crypto)
	assert.Empty(t, got.Equity)
}

func TestSymbolClassifier_BucketsAreDisjoint(t *testing.T) {
	// SOL would also pass the equity pattern; the crypto table takes precedence.
	c := NewSymbolClassifier(entity.DefaultCryptoAssets())

	got := c.Classify([]string{"SOL", "sol", "SPY", "DOGE", "T", "X1"})

	for sym := range got.Crypto {
		assert.False(t, got.Equity.Contains(sym), "symbol %s in both buckets", sym)
	}
	assert.Equal(t, entity.NewSymbolSet("SOL", "DOGE"), got.Crypto)
	assert.Equal(t, entity.NewSymbolSet("SPY", "T", "X1"), got.Equity)
}

func TestSymbolClassifier_Overrides(t *testing.T) {
	assets := entity.DefaultCryptoAssets().WithOverrides(map[string]string{"pepe": "pepe"})
	c := NewSymbolClassifier(assets)

	assert.Equal(t, entity.AssetClassCrypto, c.ClassOf("PEPE"))
	assert.Equal(t, entity.AssetClassEquity, c.ClassOf("AAPL"))
	assert.Equal(t, entity.AssetClassUnrecognized, c.ClassOf("BRK.B"))
}
