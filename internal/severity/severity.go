// Package severity classifies incident categories into concern tiers and
// maps tiers to numeric weights for spatial scoring.
package severity

import "strings"

// Tier is the concern level assigned to an incident category.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	default:
		return "low"
	}
}

// Scale selects which weight table applies. The two tables serve different
// consumers and are intentionally kept separate: heat-map intensity uses a
// compressed 1/2/3 spread, route risk scoring uses 1/5/8 so that serious
// incidents dominate the density signal.
type Scale int

const (
	// ScaleMap is the heat visualization weight table (LOW 1, MEDIUM 2, HIGH 3).
	ScaleMap Scale = iota
	// ScaleRoute is the route risk weight table (LOW 1, MEDIUM 5, HIGH 8).
	ScaleRoute
)

var mapWeights = map[Tier]int{TierLow: 1, TierMedium: 2, TierHigh: 3}
var routeWeights = map[Tier]int{TierLow: 1, TierMedium: 5, TierHigh: 8}

// Classifier maps free-text incident categories to tiers by case-insensitive
// substring match. Matching runs in priority order HIGH then MEDIUM; a
// category matching neither keyword list is LOW.
type Classifier struct {
	high   []string
	medium []string
}

// NewClassifier returns a classifier with the default keyword lists.
func NewClassifier() *Classifier {
	return &Classifier{
		high:   []string{"assault", "robbery", "rape", "murder"},
		medium: []string{"burglary", "theft", "larceny"},
	}
}

// Classify returns the tier for a category. Total: every string maps to
// exactly one tier.
func (c *Classifier) Classify(category string) Tier {
	lc := strings.ToLower(category)
	for _, kw := range c.high {
		if strings.Contains(lc, kw) {
			return TierHigh
		}
	}
	for _, kw := range c.medium {
		if strings.Contains(lc, kw) {
			return TierMedium
		}
	}
	return TierLow
}

// Weight returns the numeric weight for a tier under the given scale.
func Weight(t Tier, s Scale) int {
	if s == ScaleRoute {
		return routeWeights[t]
	}
	return mapWeights[t]
}

// WeightFor is a convenience combining Classify and Weight.
func (c *Classifier) WeightFor(category string, s Scale) int {
	return Weight(c.Classify(category), s)
}
