// Package stats aggregates a scored run (one wall-clock score per
// repetition) into composite, percentile and median values. Every
// function is pure and leaves its input untouched.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
)

var (
	// ErrEmptyInput is returned for statistics over zero scores.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidArgument is returned for an out-of-range percentile.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Composite returns the equal-weight arithmetic mean of scores.
func Composite(scores []float64) (float64, error) {
	if len(scores) == 0 {
		return 0, fmt.Errorf("composite score: %w", ErrEmptyInput)
	}

	return mstats.Mean(scores)
}

// Percentile returns the score at rank floor(p/100*n)-1 of the sorted
// scores. The rank formula matches earlier featherweight reports and
// under-estimates for small n; p values that map below rank 0 are
// rejected rather than clamped.
func Percentile(p float64, scores []float64) (float64, error) {
	n := len(scores)
	if n == 0 {
		return 0, fmt.Errorf("percentile: %w", ErrEmptyInput)
	}

	rank, err := PercentileRank(p, n)
	if err != nil {
		return 0, err
	}

	return sortedCopy(scores)[rank], nil
}

// PercentileRank returns the zero-based index Percentile reads for p
// over n scores.
func PercentileRank(p float64, n int) (int, error) {
	if math.IsNaN(p) || p < 0 || p > 100 {
		return 0, fmt.Errorf("percentile %v: %w: must be within [0, 100]",
			p, ErrInvalidArgument)
	}

	rank := int(math.Floor(p/100*float64(n))) - 1
	if rank < 0 || rank >= n {
		return 0, fmt.Errorf("percentile %v of %d scores: %w: rank %d out of range",
			p, n, ErrInvalidArgument, rank)
	}

	return rank, nil
}

// Median returns the middle score, or the mean of the two middle
// scores when n is even.
func Median(scores []float64) (float64, error) {
	if len(scores) == 0 {
		return 0, fmt.Errorf("median: %w", ErrEmptyInput)
	}

	return mstats.Median(scores)
}

// Summary is the full set of statistics reported for one scenario.
type Summary struct {
	Composite   float64             `json:"composite" yaml:"composite"`
	Median      float64             `json:"median" yaml:"median"`
	Min         float64             `json:"min" yaml:"min"`
	Max         float64             `json:"max" yaml:"max"`
	Percentiles []PercentileSummary `json:"percentiles,omitempty" yaml:"percentiles,omitempty"`
}

// PercentileSummary pairs a requested percentile with its value.
type PercentileSummary struct {
	P     float64 `json:"p" yaml:"p"`
	Value float64 `json:"value" yaml:"value"`
}

// Summarize computes every statistic over scores. The first failing
// statistic aborts the summary.
func Summarize(scores []float64, percentiles []float64) (Summary, error) {
	var (
		s   Summary
		err error
	)

	if s.Composite, err = Composite(scores); err != nil {
		return Summary{}, err
	}

	if s.Median, err = Median(scores); err != nil {
		return Summary{}, err
	}

	if s.Min, err = mstats.Min(scores); err != nil {
		return Summary{}, fmt.Errorf("min: %w", err)
	}

	if s.Max, err = mstats.Max(scores); err != nil {
		return Summary{}, fmt.Errorf("max: %w", err)
	}

	for _, p := range percentiles {
		v, err := Percentile(p, scores)
		if err != nil {
			return Summary{}, err
		}

		s.Percentiles = append(s.Percentiles, PercentileSummary{P: p, Value: v})
	}

	return s, nil
}

func sortedCopy(scores []float64) []float64 {
	c := make([]float64, len(scores))
	copy(c, scores)
	sort.Float64s(c)

	return c
}
