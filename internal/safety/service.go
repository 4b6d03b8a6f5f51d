package safety

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dwellsafe/dwellsafe-cli/internal/incident"
)

// Service is the request-facing facade over the scoring pipeline. Each call
// pins the store's current snapshot, so an analysis sees one consistent
// batch even if a refresh swaps mid-flight.
type Service struct {
	store  *incident.Store
	params Params
}

// NewService creates a Service over the given store.
func NewService(store *incident.Store, params Params) *Service {
	return &Service{store: store, params: params.withDefaults()}
}

// analyzer pins the current snapshot for one request.
func (s *Service) analyzer() *Analyzer {
	return NewAnalyzer(s.store.Current(), s.params)
}

// ScoreArea rates the area around a point.
func (s *Service) ScoreArea(lat, lon float64) AreaRating {
	return s.analyzer().ScoreArea(lat, lon)
}

// ScoreRoute annotates a single path.
func (s *Service) ScoreRoute(ctx context.Context, path []Point) (*RouteSafety, error) {
	return s.analyzer().Annotate(ctx, path)
}

// CompareBoroughs rates every borough in the active batch.
func (s *Service) CompareBoroughs() map[string]AreaRating {
	return s.analyzer().CompareBoroughs()
}

// AnalyzeRoutes annotates each candidate in parallel against one pinned
// snapshot, then ranks the set. Candidates arrive with path, duration, and
// distance; safety fields are filled here. Cancelling ctx aborts all
// in-flight annotations.
func (s *Service) AnalyzeRoutes(ctx context.Context, candidates []RouteCandidate) (*Ranking, error) {
	if len(candidates) == 0 {
		return nil, ErrNoRoutes
	}

	a := s.analyzer()
	annotated := make([]RouteCandidate, len(candidates))
	copy(annotated, candidates)

	g, gctx := errgroup.WithContext(ctx)
	for i := range annotated {
		g.Go(func() error {
			rs, err := a.Annotate(gctx, annotated[i].Path)
			if err != nil {
				return err
			}
			annotated[i].SafetyScore = rs.Score
			annotated[i].SafetyGrade = rs.Grade
			annotated[i].HighRiskAreas = rs.HighRiskAreas
			annotated[i].Statistics = rs.Statistics
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranking, err := Rank(annotated)
	if err != nil {
		return nil, err
	}

	zap.L().Info("safety: analyzed route set",
		zap.Int("candidates", len(candidates)),
		zap.String("safest", ranking.SafestID),
		zap.String("fastest", ranking.FastestID),
	)
	return ranking, nil
}
