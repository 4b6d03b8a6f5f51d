package safety

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Route type labels assigned by Rank.
const (
	RouteTypeSafest   = "safest"
	RouteTypeFastest  = "fastest"
	RouteTypeBalanced = "balanced"
)

// ErrNoRoutes is returned when ranking is requested with zero candidates.
// Terminal for the request; callers must not retry internally.
var ErrNoRoutes = eris.New("safety: no routes available")

// RouteCandidate is one proposed path between an origin and destination,
// annotated with timing, distance, and safety.
type RouteCandidate struct {
	ID              string          `json:"id"`
	Summary         string          `json:"summary,omitempty"`
	Path            []Point         `json:"path,omitempty"`
	DurationSeconds float64         `json:"duration_seconds"`
	DistanceMeters  float64         `json:"distance_meters"`
	SafetyScore     float64         `json:"safety_score"`
	SafetyGrade     string          `json:"safety_grade"`
	HighRiskAreas   []HighRiskArea  `json:"high_risk_areas"`
	Statistics      CrimeStatistics `json:"crime_statistics"`
	RouteType       string          `json:"route_type,omitempty"`
}

// Ranking is the labeled candidate set plus the ids a recommendation
// generator needs. Recommendation text itself is produced downstream.
type Ranking struct {
	Routes    []RouteCandidate `json:"routes"`
	SafestID  string           `json:"safest_id"`
	FastestID string           `json:"fastest_id"`
}

// Rank labels candidates as safest, fastest, or balanced.
//
// safest is the highest safety score, earliest input index on ties. fastest
// is the lowest duration, chosen independently; when it coincides with the
// safest route and an alternative exists, the next-fastest distinct route
// takes the label so no route is double-labeled. Everything else is
// balanced. A lone candidate is labeled safest — safety is the headline
// signal of the product — and reported as both safest and fastest id.
func Rank(candidates []RouteCandidate) (*Ranking, error) {
	if len(candidates) == 0 {
		return nil, ErrNoRoutes
	}

	routes := make([]RouteCandidate, len(candidates))
	copy(routes, candidates)

	safestIdx := 0
	for i, r := range routes {
		if r.SafetyScore > routes[safestIdx].SafetyScore {
			safestIdx = i
		}
	}

	// Duration order with input index as tie-break.
	byDuration := make([]int, len(routes))
	for i := range byDuration {
		byDuration[i] = i
	}
	sort.SliceStable(byDuration, func(a, b int) bool {
		return routes[byDuration[a]].DurationSeconds < routes[byDuration[b]].DurationSeconds
	})

	fastestIdx := byDuration[0]
	if fastestIdx == safestIdx && len(routes) > 1 {
		fastestIdx = byDuration[1]
	}

	for i := range routes {
		switch i {
		case safestIdx:
			routes[i].RouteType = RouteTypeSafest
		case fastestIdx:
			routes[i].RouteType = RouteTypeFastest
		default:
			routes[i].RouteType = RouteTypeBalanced
		}
	}

	return &Ranking{
		Routes:    routes,
		SafestID:  routes[safestIdx].ID,
		FastestID: routes[fastestIdx].ID,
	}, nil
}
