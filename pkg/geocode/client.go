package geocode

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dwellsafe/dwellsafe-cli/internal/resilience"
)

// Client tries geocode providers in order until one matches, consulting the
// cache first when configured.
type Client struct {
	providers   []Provider
	cache       *Cache
	retry       resilience.RetryConfig
	concurrency int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithCache enables the SQLite result cache.
func WithCache(cache *Cache) ClientOption {
	return func(c *Client) { c.cache = cache }
}

// WithRetry overrides the per-provider retry settings.
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// WithBatchConcurrency sets the max parallel lookups in BatchGeocode.
func WithBatchConcurrency(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// NewClient creates a waterfall client over the given providers.
func NewClient(providers []Provider, opts ...ClientOption) *Client {
	c := &Client{
		providers:   providers,
		retry:       resilience.DefaultRetryConfig(),
		concurrency: 10,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode resolves a single address. A miss from every provider is not an
// error: the result comes back with Matched=false.
func (c *Client) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	key := cacheKey(addr)

	if c.cache != nil {
		if cached, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			return cached, nil
		}
	}

	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		result, err := resilience.DoVal(ctx, c.retry, "geocode."+p.Name(),
			func(ctx context.Context) (*Result, error) {
				return p.Geocode(ctx, addr)
			})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			zap.L().Debug("geocode: provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if result != nil && result.Matched {
			c.store(ctx, key, result)
			return result, nil
		}
	}

	noMatch := &Result{Matched: false, Source: "none"}
	c.store(ctx, key, noMatch)
	return noMatch, nil
}

// BatchGeocode resolves addresses in parallel. Individual failures come back
// as unmatched results rather than failing the batch.
func (c *Client) BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	for i := range addrs {
		if addrs[i].ID == "" {
			addrs[i].ID = fmt.Sprintf("%d", i)
		}
	}

	results := make([]Result, len(addrs))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.concurrency)
	for i, addr := range addrs {
		eg.Go(func() error {
			r, err := c.Geocode(gCtx, addr)
			if err != nil || r == nil {
				results[i] = Result{Matched: false, Source: "none"}
				return nil //nolint:nilerr // individual misses don't fail the batch
			}
			results[i] = *r
			return nil
		})
	}

	_ = eg.Wait()
	return results, nil
}

func (c *Client) store(ctx context.Context, key string, result *Result) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Put(ctx, key, result); err != nil {
		zap.L().Warn("geocode: cache write failed", zap.Error(err))
	}
}
