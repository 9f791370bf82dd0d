// Package cutscan scans a classifier-score threshold grid for the cut that
// maximises the S/sqrt(S+B) significance of a signal sample over its
// backgrounds, and derives the efficiencies at that cut.
package cutscan

import (
	"errors"
	"fmt"
	"math"
)

// Default grid, matching a BDT score bounded to [-1, 1].
const (
	DefaultNCuts  = 50
	DefaultCutMin = -1.0
	DefaultCutMax = 1.0
)

// ErrInvalidGridConfig is returned when a grid has no bins or an empty range.
var ErrInvalidGridConfig = errors.New("invalid grid config")

// Grid is a set of NCuts equal-width bins covering [Min, Max]. The threshold
// tried for each bin is its centre.
type Grid struct {
	NCuts int     `json:"n_cuts"`
	Min   float64 `json:"cut_min"`
	Max   float64 `json:"cut_max"`
}

// DefaultGrid returns the 50-bin grid over [-1, 1].
func DefaultGrid() Grid {
	return Grid{NCuts: DefaultNCuts, Min: DefaultCutMin, Max: DefaultCutMax}
}

// Validate reports ErrInvalidGridConfig for nCuts < 1, cutMin >= cutMax or
// non-finite bounds.
func (g Grid) Validate() error {
	if g.NCuts < 1 {
		return fmt.Errorf("%w: n_cuts must be >= 1, got %d", ErrInvalidGridConfig, g.NCuts)
	}
	if math.IsNaN(g.Min) || math.IsInf(g.Min, 0) {
		return fmt.Errorf("%w: cut_min must be finite, got %v", ErrInvalidGridConfig, g.Min)
	}
	if math.IsNaN(g.Max) || math.IsInf(g.Max, 0) {
		return fmt.Errorf("%w: cut_max must be finite, got %v", ErrInvalidGridConfig, g.Max)
	}
	if g.Min >= g.Max {
		return fmt.Errorf("%w: cut_min (%v) must be < cut_max (%v)", ErrInvalidGridConfig, g.Min, g.Max)
	}
	return nil
}

// Width is the bin width.
func (g Grid) Width() float64 {
	return (g.Max - g.Min) / float64(g.NCuts)
}

// Center returns the centre of bin i, with bins numbered 1..NCuts.
func (g Grid) Center(i int) float64 {
	return g.Min + (float64(i)-0.5)*(g.Max-g.Min)/float64(g.NCuts)
}

// Centers returns every bin centre in grid order.
func (g Grid) Centers() []float64 {
	if g.NCuts < 1 {
		return nil
	}
	out := make([]float64, g.NCuts)
	for i := 1; i <= g.NCuts; i++ {
		out[i-1] = g.Center(i)
	}
	return out
}

func (g Grid) String() string {
	return fmt.Sprintf("%d cuts on [%g, %g]", g.NCuts, g.Min, g.Max)
}
