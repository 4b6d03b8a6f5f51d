package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dwellsafe/dwellsafe-cli/internal/borough"
	"github.com/dwellsafe/dwellsafe-cli/internal/config"
	"github.com/dwellsafe/dwellsafe-cli/internal/feed"
	"github.com/dwellsafe/dwellsafe-cli/internal/incident"
	"github.com/dwellsafe/dwellsafe-cli/internal/safety"
	"github.com/dwellsafe/dwellsafe-cli/internal/severity"
	"github.com/dwellsafe/dwellsafe-cli/pkg/geocode"
)

// env holds the wired application components shared by the commands.
type env struct {
	classifier *severity.Classifier
	store      *incident.Store
	refresher  *feed.Refresher
	service    *safety.Service
	resolver   *borough.Resolver

	geocodeCache *geocode.Cache
}

func (e *env) Close() {
	if e.geocodeCache != nil {
		_ = e.geocodeCache.Close()
	}
}

// initEnv wires the classifier, store, feed client, and scoring service from
// config and loads the initial incident batch.
func initEnv(ctx context.Context, cfg *config.Config) (*env, error) {
	classifier, err := buildClassifier(cfg)
	if err != nil {
		return nil, err
	}

	store := incident.NewStore(classifier)

	client := feed.NewClient(feed.Options{
		URL:               cfg.Feed.URL,
		AppToken:          cfg.Feed.AppToken,
		PageSize:          cfg.Feed.PageSize,
		MaxRecords:        cfg.Feed.MaxRecords,
		DaysBack:          cfg.Feed.DaysBack,
		RequestsPerSecond: cfg.Feed.RequestsPerSecond,
	})
	refresher := feed.NewRefresher(client, store, classifier,
		time.Duration(cfg.Feed.RefreshMinutes)*time.Minute)

	if err := refresher.RefreshOnce(ctx); err != nil {
		return nil, eris.Wrap(err, "load incident batch")
	}

	resolver := borough.NewResolver()
	if cfg.Borough.ShapefilePath != "" {
		resolver, err = borough.LoadShapefile(cfg.Borough.ShapefilePath)
		if err != nil {
			return nil, eris.Wrap(err, "load borough boundaries")
		}
	}

	return &env{
		classifier: classifier,
		store:      store,
		refresher:  refresher,
		service:    safety.NewService(store, cfg.Safety),
		resolver:   resolver,
	}, nil
}

func buildClassifier(cfg *config.Config) (*severity.Classifier, error) {
	if cfg.Severity.KeywordsPath == "" {
		return severity.NewClassifier(), nil
	}
	return severity.LoadClassifier(cfg.Severity.KeywordsPath)
}

// buildGeocoder assembles the Census-first waterfall. Returns nil when the
// cache cannot be opened and no provider is usable.
func (e *env) buildGeocoder(cfg *config.Config) *geocode.Client {
	var opts []geocode.ClientOption

	if cfg.Geocode.CachePath != "" {
		cache, err := geocode.OpenCache(cfg.Geocode.CachePath,
			time.Duration(cfg.Geocode.CacheTTLDays)*24*time.Hour)
		if err != nil {
			zap.L().Warn("geocode cache unavailable, continuing without",
				zap.Error(err))
		} else {
			e.geocodeCache = cache
			opts = append(opts, geocode.WithCache(cache))
		}
	}

	providers := []geocode.Provider{geocode.NewCensusProvider()}
	if cfg.Geocode.GoogleKey != "" {
		providers = append(providers, geocode.NewGoogleProvider(cfg.Geocode.GoogleKey))
	}

	return geocode.NewClient(providers, opts...)
}
