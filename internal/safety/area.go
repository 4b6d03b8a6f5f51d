package safety

import (
	"math"
	"sort"
	"time"

	"github.com/dwellsafe/dwellsafe-cli/internal/incident"
	"github.com/dwellsafe/dwellsafe-cli/internal/severity"
)

// AreaRating is the safety assessment for a neighborhood-scale area. The
// normalization differs from route scoring (it folds complaint volume and
// concern mix rather than path density) but the grade thresholds are shared.
type AreaRating struct {
	Score            float64        `json:"score"`
	Grade            string         `json:"grade"`
	TotalComplaints  int            `json:"total_complaints"`
	HighConcernRatio float64        `json:"high_concern_ratio"`
	ComplaintsPerDay float64        `json:"complaints_per_day"`
	ByCategory       map[string]int `json:"by_category"`
	Insufficient     bool           `json:"insufficient_data,omitempty"`
}

// ScoreArea rates the area within AreaRadius of a point.
func (a *Analyzer) ScoreArea(lat, lon float64) AreaRating {
	return a.rateRecords(a.snap.Nearby(lat, lon, a.params.AreaRadius))
}

// CompareBoroughs rates each borough present in the batch. Records without
// a borough are skipped.
func (a *Analyzer) CompareBoroughs() map[string]AreaRating {
	byBorough := make(map[string][]incident.Record)
	for _, rec := range a.snap.Records() {
		if rec.Borough == "" {
			continue
		}
		byBorough[rec.Borough] = append(byBorough[rec.Borough], rec)
	}

	out := make(map[string]AreaRating, len(byBorough))
	for borough, records := range byBorough {
		out[borough] = a.rateRecords(records)
	}
	return out
}

// rateRecords computes the area rating for a record set. The score starts
// from the mean map-scale severity weight on a 1-5 scale, takes penalties
// for a high-concern mix and heavy complaint volume, then maps onto 0-100
// for the shared grade thresholds. An empty set falls back to the default
// score rather than a spurious perfect rating.
func (a *Analyzer) rateRecords(records []incident.Record) AreaRating {
	if len(records) == 0 {
		return AreaRating{
			Score:        DefaultScore,
			Grade:        Grade(DefaultScore),
			ByCategory:   map[string]int{},
			Insufficient: true,
		}
	}

	classifier := a.snap.Classifier()
	byCategory := make(map[string]int)
	var weightSum float64
	var highCount int
	var earliest, latest time.Time

	for _, rec := range records {
		byCategory[rec.Category]++
		tier := classifier.Classify(rec.Category)
		weightSum += float64(severity.Weight(tier, severity.ScaleMap))
		if tier == severity.TierHigh {
			highCount++
		}
		if rec.OccurredAt != nil {
			if earliest.IsZero() || rec.OccurredAt.Before(earliest) {
				earliest = *rec.OccurredAt
			}
			if latest.IsZero() || rec.OccurredAt.After(latest) {
				latest = *rec.OccurredAt
			}
		}
	}

	total := len(records)
	weightedAvg := weightSum / float64(total)
	highRatio := float64(highCount) / float64(total)

	perDay := 0.0
	if !earliest.IsZero() {
		days := latest.Sub(earliest).Hours() / 24
		if days < 1 {
			days = 1
		}
		perDay = float64(total) / days
	}

	// 1-5 scale, 5 safest, per the area normalization.
	score5 := 5.0 - weightedAvg*1.5
	switch {
	case highRatio > 0.2:
		score5 -= 1.0
	case highRatio > 0.1:
		score5 -= 0.5
	}
	switch {
	case perDay > 2.0:
		score5 -= 0.5
	case perDay > 1.0:
		score5 -= 0.25
	}
	score5 = math.Max(1, math.Min(5, score5))

	score := clampScore((score5 - 1) / 4 * 100)
	return AreaRating{
		Score:            math.Round(score*100) / 100,
		Grade:            Grade(score),
		TotalComplaints:  total,
		HighConcernRatio: math.Round(highRatio*1000) / 1000,
		ComplaintsPerDay: math.Round(perDay*1000) / 1000,
		ByCategory:       byCategory,
	}
}

// TopCategories returns the n most frequent categories of a rating,
// alphabetical within equal counts so output is stable.
func (r AreaRating) TopCategories(n int) []string {
	type catCount struct {
		cat   string
		count int
	}
	var cats []catCount
	for cat, count := range r.ByCategory {
		cats = append(cats, catCount{cat, count})
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].count != cats[j].count {
			return cats[i].count > cats[j].count
		}
		return cats[i].cat < cats[j].cat
	})
	if n > len(cats) {
		n = len(cats)
	}
	out := make([]string, 0, n)
	for _, c := range cats[:n] {
		out = append(out, c.cat)
	}
	return out
}
