package feed

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dwellsafe/dwellsafe-cli/internal/incident"
	"github.com/dwellsafe/dwellsafe-cli/internal/severity"
)

// Refresher periodically re-fetches the incident window and swaps the
// store's snapshot. Scoring keeps serving the previous snapshot while a
// fetch is in flight, and keeps it if the fetch fails.
type Refresher struct {
	client     *Client
	store      *incident.Store
	classifier *severity.Classifier
	interval   time.Duration
}

// NewRefresher creates a refresher. Interval defaults to 15 minutes.
func NewRefresher(client *Client, store *incident.Store, classifier *severity.Classifier, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Refresher{
		client:     client,
		store:      store,
		classifier: classifier,
		interval:   interval,
	}
}

// RefreshOnce fetches a batch and swaps it into the store.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	raw, err := r.client.FetchBatch(ctx)
	if err != nil {
		return eris.Wrap(err, "feed: refresh")
	}
	snap := incident.Build(raw, r.classifier)
	r.store.Swap(snap)
	return nil
}

// Run refreshes immediately, then on every tick until the context is
// cancelled. Fetch failures are logged and the loop continues.
func (r *Refresher) Run(ctx context.Context) error {
	if err := r.RefreshOnce(ctx); err != nil {
		zap.L().Warn("feed: initial refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.RefreshOnce(ctx); err != nil {
				zap.L().Warn("feed: refresh failed", zap.Error(err))
			}
		}
	}
}
