package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"brokerage_tracker/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	userAgent             = "brokerage-tracker/1.0"
	defaultRequestTimeout = 10 * time.Second
)

// RateLimit configures the outbound request budget of one provider.
type RateLimit struct {
	RequestsPerMinute int
	Burst             int
}

func (r RateLimit) limiter() *rate.Limiter {
	if r.RequestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := r.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.RequestsPerMinute)), burst)
}

// getter issues rate-limited GET requests for one provider.
type getter struct {
	provider string
	client   *fasthttp.Client
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *zap.Logger
}

func newGetter(provider string, timeout time.Duration, limit RateLimit, logger *zap.Logger) *getter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &getter{
		provider: provider,
		client: &fasthttp.Client{
			Name:                     userAgent,
			NoDefaultUserAgentHeader: true,
		},
		limiter: limit.limiter(),
		timeout: timeout,
		logger:  logger,
	}
}

// get performs the request and returns a copy of the body of a 200 response.
// Every failure is returned as *entity.ProviderError.
func (g *getter) get(ctx context.Context, requestURL string, headers map[string]string) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, entity.NewProviderError(g.provider, entity.ProviderErrorTransport, fmt.Errorf("rate limiter: %w", err))
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	g.logger.Debug("Requesting prices", zap.String("url", shortenURL(requestURL)))

	deadline := time.Now().Add(g.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := g.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, entity.NewProviderError(g.provider, entity.ProviderErrorTransport, err)
	}

	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		g.logger.Warn("Unexpected status from price provider",
			zap.Int("status", status),
			zap.String("body", truncate(resp.Body(), 256)))
		return nil, entity.NewProviderStatusError(g.provider, status)
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

func shortenURL(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 && len(u) > i+120 {
		return u[:i+120] + "..."
	}
	return u
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
