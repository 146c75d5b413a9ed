package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dex-sentinel/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const dexScreenerBaseURL = "https://api.dexscreener.com"

// ErrPairNotFound means the provider answered but had no pair for the requested chain.
var ErrPairNotFound = errors.New("no matching pair")

// DexScreenerProvider fetches token pair snapshots from the DexScreener public API.
type DexScreenerProvider struct {
	client  *resty.Client
	tracer  trace.Tracer
	limiter *rate.Limiter
}

type Options struct {
	BaseURL      string
	Timeout      time.Duration
	RatePerMin   int
	RetryCount   int
	RetryWaitMin time.Duration
}

// NewDexScreenerProvider builds a provider. Zero option values fall back to
// the public endpoint, a 10s timeout and 300 requests per minute. Retries only
// apply to transport errors, 429 and 5xx responses.
func NewDexScreenerProvider(tracer trace.Tracer, opts Options) *DexScreenerProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = dexScreenerBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RatePerMin <= 0 {
		opts.RatePerMin = 300
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 500 * time.Millisecond
	}

	burst := opts.RatePerMin / 10
	if burst < 1 {
		burst = 1
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWaitMin).
		SetRetryMaxWaitTime(2 * opts.RetryWaitMin).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &DexScreenerProvider{
		client:  client,
		tracer:  tracer,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMin)), burst),
	}
}

// FetchSnapshot returns the normalized snapshot for the pair of tokenAddress on chainID.
func (p *DexScreenerProvider) FetchSnapshot(ctx context.Context, chainID, tokenAddress string) (*domain.TokenSnapshot, error) {
	ctx, span := p.tracer.Start(ctx, "dexscreener.fetch-snapshot")
	defer span.End()
	span.SetAttributes(
		attribute.String("chain_id", chainID),
		attribute.String("token_address", tokenAddress),
	)

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("address", tokenAddress).
		Get("/latest/dex/tokens/{address}")
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch token %s: %w", tokenAddress, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("dexscreener API error %d: %s", resp.StatusCode(), truncate(resp.String(), 256))
	}

	snap, ok := Normalize(resp.Body(), chainID)
	if !ok {
		return nil, fmt.Errorf("token %s on %s: %w", tokenAddress, chainID, ErrPairNotFound)
	}
	return &snap, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
