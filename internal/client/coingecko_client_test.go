package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brokerage_tracker/internal/domain/entity"
)

type recordedRequest struct {
	path   string
	query  map[string][]string
	apiKey string
}

func newCoinGeckoServer(t *testing.T, status int, body string, calls *atomic.Int32, last *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if last != nil {
			last.Store(recordedRequest{path: r.URL.Path, query: r.URL.Query(), apiKey: r.Header.Get(coinGeckoAPIKeyHeader)})
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestCoinGecko(baseURL, apiKey string) *coinGeckoClientImpl {
	return NewCoinGeckoClient(CoinGeckoConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: 2 * time.Second,
	}, entity.DefaultCryptoAssets(), zap.NewNop()).(*coinGeckoClientImpl)
}

func TestCoinGeckoClient_Fetch(t *testing.T) {
	var last atomic.Value
	srv := newCoinGeckoServer(t, http.StatusOK,
		`{"bitcoin":{"usd":65000.12},"ethereum":{"usd":3100}}`, nil, &last)
	c := newTestCoinGecko(srv.URL, "demo-key")

	got, err := c.Fetch(context.Background(), entity.NewSymbolSet("ETH", "BTC"))

	require.NoError(t, err)
	assert.Equal(t, entity.PriceTable{"BTC": 65000.12, "ETH": 3100}, got)

	req := last.Load().(recordedRequest)
	assert.Equal(t, "/simple/price", req.path)
	assert.Equal(t, []string{"bitcoin,ethereum"}, req.query["ids"])
	assert.Equal(t, []string{"usd"}, req.query["vs_currencies"])
	assert.Equal(t, "demo-key", req.apiKey)
}

func TestCoinGeckoClient_OmitsMissingAndNullPrices(t *testing.T) {
	srv := newCoinGeckoServer(t, http.StatusOK,
		`{"bitcoin":{"usd":null},"solana":{"usd":"n/a"},"cardano":{"eur":0.4},"dogecoin":{"usd":0.15},"ripple":{"usd":0},`+
			`"ethereum":"rate limited","polkadot":[1],"litecoin":{"usd":" 82.5 "}}`, nil, nil)
	c := newTestCoinGecko(srv.URL, "")

	got, err := c.Fetch(context.Background(), entity.NewSymbolSet("BTC", "SOL", "ADA", "DOGE", "XRP", "ETH", "DOT", "LTC"))

	require.NoError(t, err)
	assert.Equal(t, entity.PriceTable{"DOGE": 0.15, "LTC": 82.5}, got)
}

func TestCoinGeckoClient_NoKnownIDsNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := newCoinGeckoServer(t, http.StatusOK, `{}`, &calls, nil)
	c := newTestCoinGecko(srv.URL, "")

	for _, set := range []entity.SymbolSet{entity.NewSymbolSet(), entity.NewSymbolSet("AAPL")} {
		got, err := c.Fetch(context.Background(), set)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Zero(t, calls.Load())
}

func TestCoinGeckoClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   entity.ProviderErrorKind
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"status":{"error_code":429}}`, kind: entity.ProviderErrorStatus},
		{name: "not json", status: http.StatusOK, body: `<html>oops</html>`, kind: entity.ProviderErrorMalformed},
		{name: "null body", status: http.StatusOK, body: `null`, kind: entity.ProviderErrorMalformed},
		{name: "array body", status: http.StatusOK, body: `[1,2]`, kind: entity.ProviderErrorMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newCoinGeckoServer(t, tt.status, tt.body, nil, nil)
			c := newTestCoinGecko(srv.URL, "")

			got, err := c.Fetch(context.Background(), entity.NewSymbolSet("BTC"))

			require.Error(t, err)
			assert.Nil(t, got)
			var perr *entity.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, CoinGeckoProviderName, perr.Provider)
			assert.Equal(t, tt.kind, perr.Kind)
		})
	}
}

func TestCoinGeckoClient_RateLimiterHonoursContext(t *testing.T) {
	var calls atomic.Int32
	srv := newCoinGeckoServer(t, http.StatusOK, `{"bitcoin":{"usd":1}}`, &calls, nil)
	c := NewCoinGeckoClient(CoinGeckoConfig{
		BaseURL:   srv.URL,
		Timeout:   time.Second,
		RateLimit: RateLimit{RequestsPerMinute: 1, Burst: 1},
	}, entity.DefaultCryptoAssets(), zap.NewNop())

	_, err := c.Fetch(context.Background(), entity.NewSymbolSet("BTC"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Fetch(ctx, entity.NewSymbolSet("BTC"))

	var perr *entity.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, entity.ProviderErrorTransport, perr.Kind)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewGetter_DefaultsNonPositiveTimeout(t *testing.T) {
	for _, timeout := range []time.Duration{0, -time.Second} {
		g := newGetter(CoinGeckoProviderName, timeout, RateLimit{}, nil)
		assert.Equal(t, defaultRequestTimeout, g.timeout)
	}

	srv := newCoinGeckoServer(t, http.StatusOK, `{"bitcoin":{"usd":1}}`, nil, nil)
	c := NewCoinGeckoClient(CoinGeckoConfig{BaseURL: srv.URL}, entity.DefaultCryptoAssets(), zap.NewNop())

	got, err := c.Fetch(context.Background(), entity.NewSymbolSet("BTC"))

	require.NoError(t, err)
	assert.Equal(t, entity.PriceTable{"BTC": 1}, got)
}
