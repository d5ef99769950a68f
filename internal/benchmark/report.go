package benchmark

import (
	"math"

	"github.com/benvon/taskboard/internal/models"
)

// Tier is the recommendation derived from an improvement percentage
type Tier string

const (
	TierStronglyRecommended Tier = "strongly recommended"
	TierRecommended         Tier = "recommended"
	TierConsider            Tier = "consider"
	TierMinimalBenefit      Tier = "minimal benefit"
)

// TierFor maps an improvement percentage to a recommendation
func TierFor(percent float64) Tier {
	switch {
	case percent >= 50:
		return TierStronglyRecommended
	case percent >= 30:
		return TierRecommended
	case percent >= 10:
		return TierConsider
	default:
		return TierMinimalBenefit
	}
}

// Summary describes the timings of one mode, in seconds
type Summary struct {
	Runs   int     `json:"runs" yaml:"runs"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
}

// Summarize computes mean, min, max and population standard deviation
func Summarize(durations []float64) Summary {
	if len(durations) == 0 {
		return Summary{}
	}

	s := Summary{
		Runs: len(durations),
		Min:  durations[0],
		Max:  durations[0],
	}
	var sum float64
	for _, d := range durations {
		sum += d
		s.Min = math.Min(s.Min, d)
		s.Max = math.Max(s.Max, d)
	}
	s.Mean = sum / float64(len(durations))

	var variance float64
	for _, d := range durations {
		variance += (d - s.Mean) * (d - s.Mean)
	}
	s.StdDev = math.Sqrt(variance / float64(len(durations)))
	return s
}

// Report is the comparison of one benchmark feature
type Report struct {
	Name               string                   `json:"name" yaml:"name"`
	Iterations         int                      `json:"iterations" yaml:"iterations"`
	Baseline           Summary                  `json:"baseline" yaml:"baseline"`
	Optimized          Summary                  `json:"optimized" yaml:"optimized"`
	ImprovementFactor  float64                  `json:"improvement_factor" yaml:"improvement_factor"`
	ImprovementPercent float64                  `json:"improvement_percent" yaml:"improvement_percent"`
	Recommendation     Tier                     `json:"recommendation" yaml:"recommendation"`
	Samples            []models.BenchmarkSample `json:"samples" yaml:"samples"`
}

// NewReport summarizes samples of both modes
func NewReport(name string, iterations int, samples []models.BenchmarkSample) *Report {
	var base, opt []float64
	for _, s := range samples {
		switch s.Mode {
		case ModeBaseline:
			base = append(base, s.Seconds)
		case ModeOptimized:
			opt = append(opt, s.Seconds)
		}
	}

	r := &Report{
		Name:       name,
		Iterations: iterations,
		Baseline:   Summarize(base),
		Optimized:  Summarize(opt),
		Samples:    samples,
	}
	r.ImprovementFactor = Factor(r.Baseline.Mean, r.Optimized.Mean)
	r.ImprovementPercent = Percent(r.Baseline.Mean, r.Optimized.Mean)
	r.Recommendation = TierFor(r.ImprovementPercent)
	return r
}

// Factor is base/opt, or 0 when opt is 0
func Factor(base, opt float64) float64 {
	if opt == 0 {
		return 0
	}
	return base / opt
}

// Percent is the relative saving of opt over base, or 0 when base is 0
func Percent(base, opt float64) float64 {
	if base == 0 {
		return 0
	}
	return (base - opt) / base * 100
}

// Overall recommends on the mean improvement across reports
func Overall(reports []*Report) Tier {
	if len(reports) == 0 {
		return TierMinimalBenefit
	}
	var sum float64
	for _, r := range reports {
		sum += r.ImprovementPercent
	}
	return TierFor(sum / float64(len(reports)))
}
