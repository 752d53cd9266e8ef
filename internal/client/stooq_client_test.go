package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brokerage_tracker/internal/domain/entity"
)

func newStooqServer(t *testing.T, status int, body string, calls *atomic.Int32, lastQuery *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if lastQuery != nil {
			lastQuery.Store(r.URL.Query())
		}
		assert.Equal(t, "/q/l/", r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestStooq(baseURL string) *stooqClientImpl {
	return NewStooqClient(StooqConfig{BaseURL: baseURL, Timeout: 2 * time.Second}, zap.NewNop()).(*stooqClientImpl)
}

func TestStooqClient_Fetch(t *testing.T) {
	var query atomic.Value
	body := "Symbol,Date,Time,Open,High,Low,Close,Volume\r\n" +
		"AAPL.US,2024-05-01,22:00:00,169.58,172.71,169.11,169.3,50383147\r\n" +
		"MSFT.US,2024-05-01,22:00:00,392.61,401.72,390.31,394.94,28418656\r\n"
	srv := newStooqServer(t, http.StatusOK, body, nil, &query)
	c := newTestStooq(srv.URL)

	got, err := c.Fetch(context.Background(), entity.NewSymbolSet("MSFT", "AAPL"))

	require.NoError(t, err)
	assert.Equal(t, entity.PriceTable{"AAPL": 169.3, "MSFT": 394.94}, got)

	q := query.Load().(url.Values)
	assert.Equal(t, []string{"aapl.us,msft.us"}, q["s"])
	assert.Equal(t, []string{"sd2t2ohlcv"}, q["f"])
	assert.Equal(t, []string{"csv"}, q["e"])
}

func TestStooqClient_ColumnsResolvedByName(t *testing.T) {
	body := " close , SYMBOL \nbad-close,AAPL.US\n123.45,msft.us\n"
	srv := newStooqServer(t, http.StatusOK, body, nil, nil)
	c := newTestStooq(srv.URL)

	got, err := c.Fetch(context.Background(), entity.NewSymbolSet("AAPL", "MSFT"))

	require.NoError(t, err)
	assert.Equal(t, entity.PriceTable{"MSFT": 123.45}, got)
}

func TestStooqClient_SkipsUnavailableAndUnrequested(t *testing.T) {
	body := "Symbol,Date,Time,Open,High,Low,Close,Volume\n" +
		"ZZZZ.US,N/D,N/D,N/D,N/D,N/D,N/D,N/D\n" +
		"AAPL.US,2024-05-01,22:00:00,1,1,1,0,1\n" +
		"TSLA.US,2024-05-01,22:00:00,1,1,1,180.1,1\n" +
		"SPY.US,2024-05-01,22:00:00,1,1,1,500.5,1\n"
	srv := newStooqServer(t, http.StatusOK, body, nil, nil)
	c := newTestStooq(srv.URL)

	got, err := c.Fetch(context.Background(), entity.NewSymbolSet("ZZZZ", "AAPL", "SPY"))

	require.NoError(t, err)
	assert.Equal(t, entity.PriceTable{"SPY": 500.5}, got)
}

func TestStooqClient_SkipsUnparsableRows(t *testing.T) {
	body := "Symbol,Date,Time,Open,High,Low,Close,Volume\n" +
		"AAPL.US,2024-05-01,22:00:00,1,1,1,190.5,1\n" +
		"MS\"FT.US,2024-05-01,22:00:00,1,1,1,400,1\n" +
		"TSLA.US,2024-05-01,22:00:00,1,1,1,180.1,1\n"
	srv := newStooqServer(t, http.StatusOK, body, nil, nil)
	c := newTestStooq(srv.URL)

	got, err := c.Fetch(context.Background(), entity.NewSymbolSet("AAPL", "MSFT", "TSLA"))

	require.NoError(t, err)
	assert.Equal(t, entity.PriceTable{"AAPL": 190.5, "TSLA": 180.1}, got)
}

func TestStooqClient_NoSymbolsNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := newStooqServer(t, http.StatusOK, "", &calls, nil)
	c := newTestStooq(srv.URL)

	got, err := c.Fetch(context.Background(), entity.NewSymbolSet())

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, calls.Load())
}

func TestStooqClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   entity.ProviderErrorKind
	}{
		{name: "non-200", status: http.StatusServiceUnavailable, body: "busy", kind: entity.ProviderErrorStatus},
		{name: "header without close", status: http.StatusOK, body: "Symbol,Date\nAAPL.US,2024-05-01\n", kind: entity.ProviderErrorMalformed},
		{name: "empty body", status: http.StatusOK, body: "", kind: entity.ProviderErrorMalformed},
		{name: "unparsable header", status: http.StatusOK, body: "Sym\"bol,Close\nAAPL.US,1\n", kind: entity.ProviderErrorMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newStooqServer(t, tt.status, tt.body, nil, nil)
			c := newTestStooq(srv.URL)

			got, err := c.Fetch(context.Background(), entity.NewSymbolSet("AAPL"))

			require.Error(t, err)
			assert.Nil(t, got)
			var perr *entity.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, StooqProviderName, perr.Provider)
			assert.Equal(t, tt.kind, perr.Kind)
		})
	}
}

func TestStooqClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	c := newTestStooq(addr)

	_, err := c.Fetch(context.Background(), entity.NewSymbolSet("AAPL"))

	var perr *entity.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, entity.ProviderErrorTransport, perr.Kind)
}

func TestStooqClient_Identity(t *testing.T) {
	c := newTestStooq("http://localhost")

	assert.Equal(t, "stooq", c.Name())
	assert.Equal(t, entity.AssetClassEquity, c.AssetClass())
	assert.Equal(t, "us", c.market)
}
