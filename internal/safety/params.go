// Package safety computes risk density, safety scores and grades, per-route
// high-risk annotations, and route rankings over an incident snapshot.
package safety

// Params holds the tunable constants of the scoring pipeline. The defaults
// are contractual: map clients compute the same scores from the same batch,
// so changing any of them breaks score parity across surfaces.
type Params struct {
	// DensityRadius is the radius in degrees for point risk density.
	DensityRadius float64 `yaml:"density_radius" mapstructure:"density_radius"`
	// AreaRadius is the wider radius used for incident context around a
	// hotspot and for whole-route crime statistics.
	AreaRadius float64 `yaml:"area_radius" mapstructure:"area_radius"`
	// ScoreStride samples every Nth path coordinate for scoring. Paths with
	// fewer than ScoreStride points are sampled in full.
	ScoreStride int `yaml:"score_stride" mapstructure:"score_stride"`
	// HotspotStride samples every Nth path coordinate for high-risk
	// detection, independent of ScoreStride.
	HotspotStride int `yaml:"hotspot_stride" mapstructure:"hotspot_stride"`
	// HotspotThreshold is the density above which a sample becomes a
	// high-risk area.
	HotspotThreshold float64 `yaml:"hotspot_threshold" mapstructure:"hotspot_threshold"`
	// HighRiskThreshold is the density above which a high-risk area is
	// "high" rather than "medium".
	HighRiskThreshold float64 `yaml:"high_risk_threshold" mapstructure:"high_risk_threshold"`
}

// DefaultParams returns the contractual default parameters.
func DefaultParams() Params {
	return Params{
		DensityRadius:     0.003,
		AreaRadius:        0.005,
		ScoreStride:       5,
		HotspotStride:     10,
		HotspotThreshold:  15,
		HighRiskThreshold: 30,
	}
}

// withDefaults fills zero-valued fields so a partially configured Params
// never silently disables a stage.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.DensityRadius <= 0 {
		p.DensityRadius = d.DensityRadius
	}
	if p.AreaRadius <= 0 {
		p.AreaRadius = d.AreaRadius
	}
	if p.ScoreStride <= 0 {
		p.ScoreStride = d.ScoreStride
	}
	if p.HotspotStride <= 0 {
		p.HotspotStride = d.HotspotStride
	}
	if p.HotspotThreshold <= 0 {
		p.HotspotThreshold = d.HotspotThreshold
	}
	if p.HighRiskThreshold <= 0 {
		p.HighRiskThreshold = d.HighRiskThreshold
	}
	return p
}
