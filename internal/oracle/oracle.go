// =============================
// File: internal/oracle/oracle.go
// =============================
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Oracle returns the current USD price of one whole native unit (SOL).
// It is a read-only external dependency; the engine never writes through it.
type Oracle interface {
	NativeUSDPrice(ctx context.Context) (float64, error)
}

// Static is a fixed-rate oracle used in tests and deterministic scenarios.
type Static struct {
	Price float64
}

func (s Static) NativeUSDPrice(_ context.Context) (float64, error) {
	if s.Price <= 0 {
		return 0, fmt.Errorf("oracle: non-positive static price %f", s.Price)
	}
	return s.Price, nil
}

// HTTP fetches the spot rate from a JSON endpoint and caches it for a TTL
// so hot paths (per-trade market-cap checks) do not hammer the provider.
type HTTP struct {
	url    string
	client *http.Client
	logger *zap.Logger

	ttl        time.Duration
	mu         sync.Mutex
	cached     float64
	cachedAt   time.Time
	maxElapsed time.Duration
}

// NewHTTP creates an HTTP oracle with a 15s price cache.
func NewHTTP(url string, logger *zap.Logger) *HTTP {
	return &HTTP{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("oracle"),
		ttl:        15 * time.Second,
		maxElapsed: 30 * time.Second,
	}
}

type priceResponse struct {
	PriceUSD float64 `json:"price_usd"`
}

// NativeUSDPrice returns the cached rate when fresh, otherwise refetches
// with exponential backoff.
func (o *HTTP) NativeUSDPrice(ctx context.Context) (float64, error) {
	o.mu.Lock()
	if o.cached > 0 && time.Since(o.cachedAt) < o.ttl {
		price := o.cached
		o.mu.Unlock()
		return price, nil
	}
	o.mu.Unlock()

	operation := func() (float64, error) {
		return o.fetch(ctx)
	}

	notify := func(err error, duration time.Duration) {
		o.logger.Warn("Oracle fetch failed, retrying",
			zap.Error(err),
			zap.Duration("backoff", duration))
	}

	price, err := backoff.Retry(
		ctx,
		operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(o.maxElapsed),
		backoff.WithNotify(notify),
	)
	if err != nil {
		// Serve a stale rate over failing the trade path outright.
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.cached > 0 {
			o.logger.Warn("Serving stale oracle price",
				zap.Float64("price_usd", o.cached),
				zap.Time("cached_at", o.cachedAt))
			return o.cached, nil
		}
		return 0, fmt.Errorf("failed to fetch native price: %w", err)
	}

	o.mu.Lock()
	o.cached = price
	o.cachedAt = time.Now()
	o.mu.Unlock()

	return price, nil
}

func (o *HTTP) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url, nil)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("failed to build oracle request: %w", err))
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("oracle request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode oracle response: %w", err)
	}
	if body.PriceUSD <= 0 {
		return 0, fmt.Errorf("oracle returned non-positive price %f", body.PriceUSD)
	}

	return body.PriceUSD, nil
}
