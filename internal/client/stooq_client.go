package client

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"brokerage_tracker/internal/app/port"
	"brokerage_tracker/internal/domain/entity"
)

// StooqProviderName identifies the equity provider.
const StooqProviderName = "stooq"

// StooqConfig configures the Stooq quote client.
type StooqConfig struct {
	BaseURL string
	// Market is the exchange suffix appended to every ticker ("us" -> aapl.us).
	Market    string
	Timeout   time.Duration
	RateLimit RateLimit
}

type stooqClientImpl struct {
	baseURL string
	market  string
	http    *getter
	logger  *zap.Logger
}

// NewStooqClient creates the equity price provider backed by the Stooq CSV
// quote endpoint.
func NewStooqClient(cfg StooqConfig, logger *zap.Logger) port.PriceProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	market := strings.ToLower(strings.TrimSpace(cfg.Market))
	if market == "" {
		market = "us"
	}
	l := logger.Named("StooqClient")
	return &stooqClientImpl{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		market:  market,
		http:    newGetter(StooqProviderName, cfg.Timeout, cfg.RateLimit, l),
		logger:  l,
	}
}

func (c *stooqClientImpl) Name() string { return StooqProviderName }

func (c *stooqClientImpl) AssetClass() entity.AssetClass { return entity.AssetClassEquity }

// Fetch implements port.PriceProvider with one batched CSV request.
func (c *stooqClientImpl) Fetch(ctx context.Context, symbols entity.SymbolSet) (entity.PriceTable, error) {
	if len(symbols) == 0 {
		return entity.PriceTable{}, nil
	}

	tickers := make([]string, 0, len(symbols))
	for _, sym := range symbols.Sorted() {
		tickers = append(tickers, strings.ToLower(sym.String())+"."+c.market)
	}
	requestURL := fmt.Sprintf("%s/q/l/?s=%s&f=sd2t2ohlcv&h&e=csv",
		c.baseURL, url.QueryEscape(strings.Join(tickers, ",")))

	body, err := c.http.get(ctx, requestURL, nil)
	if err != nil {
		return nil, err
	}

	prices, err := parseStooqCSV(body, symbols)
	if err != nil {
		return nil, entity.NewProviderError(StooqProviderName, entity.ProviderErrorMalformed, err)
	}
	c.logger.Debug("Parsed Stooq quotes", zap.Int("requested", len(symbols)), zap.Int("priced", len(prices)))
	return prices, nil
}

// parseStooqCSV reads the quote CSV. Columns are resolved by header name;
// unparsable rows and rows without a usable close (Stooq writes N/D) are
// skipped, as are symbols that were not requested.
func parseStooqCSV(body []byte, requested entity.SymbolSet) (entity.PriceTable, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty response")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	symbolCol, closeCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "symbol":
			symbolCol = i
		case "close":
			closeCol = i
		}
	}
	if symbolCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("header %q lacks symbol or close column", strings.Join(header, ","))
	}

	prices := entity.PriceTable{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		if symbolCol >= len(record) || closeCol >= len(record) {
			continue
		}
		raw := record[symbolCol]
		if i := strings.IndexByte(raw, '.'); i >= 0 {
			raw = raw[:i]
		}
		sym, ok := entity.NormalizeSymbol(raw)
		if !ok || !requested.Contains(sym) {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[closeCol]), 64)
		if err != nil {
			continue
		}
		prices.Set(sym, price)
	}
	return prices, nil
}
