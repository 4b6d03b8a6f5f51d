// Package feed fetches incident batches from a Socrata-style open data API.
// Records come back with coordinates still in string form; validation is
// owned by the incident package so every ingest path shares the skip rules.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dwellsafe/dwellsafe-cli/internal/incident"
	"github.com/dwellsafe/dwellsafe-cli/internal/resilience"
)

// Options configures the feed client.
type Options struct {
	// URL is the dataset endpoint, e.g. the NYC 311 Socrata resource.
	URL string
	// AppToken is the optional Socrata application token.
	AppToken string
	// PageSize is the $limit per request. Default 5000.
	PageSize int
	// MaxRecords caps the total batch size. Default 15000.
	MaxRecords int
	// DaysBack restricts the fetch window. Default 30.
	DaysBack int
	// RequestsPerSecond throttles the API. Default 5.
	RequestsPerSecond float64
	// Timeout is the per-request timeout. Default 30s.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = 5000
	}
	if o.MaxRecords <= 0 {
		o.MaxRecords = 15000
	}
	if o.DaysBack <= 0 {
		o.DaysBack = 30
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// Client pulls incident pages from the feed.
type Client struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	now     func() time.Time
}

// NewClient creates a feed client.
func NewClient(opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		retry:   resilience.DefaultRetryConfig(),
		now:     time.Now,
	}
}

// FetchBatch pulls the full incident window, paging until the feed runs dry
// or MaxRecords is reached.
func (c *Client) FetchBatch(ctx context.Context) ([]incident.RawRecord, error) {
	if c.opts.URL == "" {
		return nil, eris.New("feed: url not configured")
	}

	since := c.now().UTC().AddDate(0, 0, -c.opts.DaysBack)
	var batch []incident.RawRecord

	for offset := 0; len(batch) < c.opts.MaxRecords; offset += c.opts.PageSize {
		page, err := resilience.DoVal(ctx, c.retry, "feed.page",
			func(ctx context.Context) ([]incident.RawRecord, error) {
				return c.fetchPage(ctx, since, offset)
			})
		if err != nil {
			return nil, eris.Wrap(err, "feed: fetch page")
		}
		if len(page) == 0 {
			break
		}

		batch = append(batch, page...)
		if len(page) < c.opts.PageSize {
			break
		}
	}

	if len(batch) > c.opts.MaxRecords {
		batch = batch[:c.opts.MaxRecords]
	}

	zap.L().Info("feed: fetched batch",
		zap.Int("records", len(batch)),
		zap.Time("since", since),
	)
	return batch, nil
}

func (c *Client) fetchPage(ctx context.Context, since time.Time, offset int) ([]incident.RawRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "feed: rate limit")
	}

	params := url.Values{
		"$limit":  {fmt.Sprintf("%d", c.opts.PageSize)},
		"$offset": {fmt.Sprintf("%d", offset)},
		"$where":  {fmt.Sprintf("created_date > '%s'", since.Format("2006-01-02T15:04:05"))},
		"$order":  {"created_date DESC"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.URL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "feed: build request")
	}
	if c.opts.AppToken != "" {
		req.Header.Set("X-App-Token", c.opts.AppToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, resilience.Transient(eris.Wrap(err, "feed: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, resilience.Transient(
			eris.Errorf("feed: status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("feed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.Transient(eris.Wrap(err, "feed: read body"), 0)
	}

	var page []incident.RawRecord
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, eris.Wrap(err, "feed: parse response")
	}
	return page, nil
}
