package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"brokerage_tracker/internal/app/port"
	"brokerage_tracker/internal/domain/entity"
)

// CoinGeckoProviderName identifies the crypto provider.
const CoinGeckoProviderName = "coingecko"

const coinGeckoAPIKeyHeader = "x-cg-demo-api-key"

// CoinGeckoConfig configures the CoinGecko simple price client.
type CoinGeckoConfig struct {
	BaseURL    string
	APIKey     string
	VsCurrency string
	Timeout    time.Duration
	RateLimit  RateLimit
}

type coinGeckoClientImpl struct {
	baseURL    string
	apiKey     string
	vsCurrency string
	assets     entity.CryptoAssets
	http       *getter
	logger     *zap.Logger
}

// NewCoinGeckoClient creates the crypto price provider. Tickers are mapped to
// CoinGecko ids through assets; tickers without an id are never requested.
func NewCoinGeckoClient(cfg CoinGeckoConfig, assets entity.CryptoAssets, logger *zap.Logger) port.PriceProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	vs := strings.ToLower(strings.TrimSpace(cfg.VsCurrency))
	if vs == "" {
		vs = "usd"
	}
	l := logger.Named("CoinGeckoClient")
	return &coinGeckoClientImpl{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		vsCurrency: vs,
		assets:     assets,
		http:       newGetter(CoinGeckoProviderName, cfg.Timeout, cfg.RateLimit, l),
		logger:     l,
	}
}

func (c *coinGeckoClientImpl) Name() string { return CoinGeckoProviderName }

func (c *coinGeckoClientImpl) AssetClass() entity.AssetClass { return entity.AssetClassCrypto }

// Fetch implements port.PriceProvider with one batched simple/price request.
func (c *coinGeckoClientImpl) Fetch(ctx context.Context, symbols entity.SymbolSet) (entity.PriceTable, error) {
	idToSymbols := make(map[string][]entity.Symbol)
	ids := make([]string, 0, len(symbols))
	for _, sym := range symbols.Sorted() {
		id, ok := c.assets.ID(sym)
		if !ok {
			continue
		}
		if _, seen := idToSymbols[id]; !seen {
			ids = append(ids, id)
		}
		idToSymbols[id] = append(idToSymbols[id], sym)
	}
	if len(ids) == 0 {
		return entity.PriceTable{}, nil
	}

	requestURL := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		c.baseURL, url.QueryEscape(strings.Join(ids, ",")), url.QueryEscape(c.vsCurrency))

	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{coinGeckoAPIKeyHeader: c.apiKey}
	}
	body, err := c.http.get(ctx, requestURL, headers)
	if err != nil {
		return nil, err
	}

	var payload map[string]jsoniter.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, entity.NewProviderError(CoinGeckoProviderName, entity.ProviderErrorMalformed, err)
	}
	if payload == nil {
		return nil, entity.NewProviderError(CoinGeckoProviderName, entity.ProviderErrorMalformed, errors.New("response is not an object"))
	}

	prices := entity.PriceTable{}
	for id, raw := range payload {
		syms, ok := idToSymbols[id]
		if !ok {
			continue
		}
		var quotes map[string]any
		if err := json.Unmarshal(raw, &quotes); err != nil {
			c.logger.Debug("Skipping malformed CoinGecko entry", zap.String("id", id), zap.Error(err))
			continue
		}
		price, ok := quotePrice(quotes[c.vsCurrency])
		if !ok {
			continue
		}
		for _, sym := range syms {
			prices.Set(sym, price)
		}
	}
	c.logger.Debug("Parsed CoinGecko prices", zap.Int("requested", len(ids)), zap.Int("priced", len(prices)))
	return prices, nil
}

// quotePrice accepts a JSON number or a numeric string.
func quotePrice(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
