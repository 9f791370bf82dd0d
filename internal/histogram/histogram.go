// Package histogram bins classifier scores into fixed-width histograms for the
// score distribution plots.
package histogram

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrEmpty is returned when normalising a histogram with no in-range entries.
var ErrEmpty = errors.New("histogram has no in-range entries")

// Binning describes NBins equal-width bins on [Min, Max).
type Binning struct {
	NBins int     `json:"n_bins"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// DefaultBinning is the 40-bin layout used for BDT score overlays.
func DefaultBinning() Binning {
	return Binning{NBins: 40, Min: -1, Max: 1}
}

// Validate checks the binning is usable.
func (b Binning) Validate() error {
	if b.NBins < 1 {
		return fmt.Errorf("n_bins must be >= 1, got %d", b.NBins)
	}
	if math.IsNaN(b.Min) || math.IsNaN(b.Max) || math.IsInf(b.Min, 0) || math.IsInf(b.Max, 0) {
		return fmt.Errorf("histogram range must be finite, got [%v, %v]", b.Min, b.Max)
	}
	if b.Min >= b.Max {
		return fmt.Errorf("histogram min (%v) must be < max (%v)", b.Min, b.Max)
	}
	return nil
}

// Edges returns the NBins+1 bin edges.
func (b Binning) Edges() []float64 {
	return floats.Span(make([]float64, b.NBins+1), b.Min, b.Max)
}

// Hist is a filled histogram. Entries outside [Min, Max) are kept in
// Underflow and Overflow and excluded from Integral.
type Hist struct {
	Label     string    `json:"label"`
	Edges     []float64 `json:"edges"`
	Counts    []float64 `json:"counts"`
	Underflow float64   `json:"underflow"`
	Overflow  float64   `json:"overflow"`
}

// Fill bins scores. scores need not be sorted.
func Fill(label string, b Binning, scores []float64) (*Hist, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	h := &Hist{
		Label:  label,
		Edges:  b.Edges(),
		Counts: make([]float64, b.NBins),
	}

	inRange := make([]float64, 0, len(scores))
	for _, s := range scores {
		switch {
		case math.IsNaN(s):
			return nil, fmt.Errorf("histogram %q: NaN score", label)
		case s < b.Min:
			h.Underflow++
		case s >= b.Max:
			h.Overflow++
		default:
			inRange = append(inRange, s)
		}
	}
	if len(inRange) == 0 {
		return h, nil
	}
	sort.Float64s(inRange)
	stat.Histogram(h.Counts, h.Edges, inRange, nil)
	return h, nil
}

// Integral is the sum of in-range bin contents.
func (h *Hist) Integral() float64 {
	return floats.Sum(h.Counts)
}

// Entries is the number of filled entries including under/overflow.
func (h *Hist) Entries() float64 {
	return h.Integral() + h.Underflow + h.Overflow
}

// Max returns the largest bin content, 0 for an empty histogram.
func (h *Hist) Max() float64 {
	if len(h.Counts) == 0 {
		return 0
	}
	return floats.Max(h.Counts)
}

// Centers returns the bin centres.
func (h *Hist) Centers() []float64 {
	out := make([]float64, len(h.Counts))
	for i := range out {
		out[i] = 0.5 * (h.Edges[i] + h.Edges[i+1])
	}
	return out
}

// Clone returns a deep copy of h.
func (h *Hist) Clone() *Hist {
	c := *h
	c.Edges = append([]float64(nil), h.Edges...)
	c.Counts = append([]float64(nil), h.Counts...)
	return &c
}

// Add accumulates other into h. Both must share the same edges.
func (h *Hist) Add(other *Hist) error {
	if !floats.Equal(h.Edges, other.Edges) {
		return fmt.Errorf("cannot add %q to %q: binning differs", other.Label, h.Label)
	}
	floats.Add(h.Counts, other.Counts)
	h.Underflow += other.Underflow
	h.Overflow += other.Overflow
	return nil
}

// Sum adds hists into a new histogram named label.
func Sum(label string, hists ...*Hist) (*Hist, error) {
	if len(hists) == 0 {
		return nil, fmt.Errorf("sum %q: no histograms", label)
	}
	out := hists[0].Clone()
	out.Label = label
	for _, h := range hists[1:] {
		if err := out.Add(h); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Normalized returns a copy scaled to unit in-range integral. Under/overflow
// are scaled by the same factor.
func (h *Hist) Normalized() (*Hist, error) {
	integral := h.Integral()
	if integral <= 0 {
		return nil, fmt.Errorf("normalise %q: %w", h.Label, ErrEmpty)
	}
	out := h.Clone()
	k := 1 / integral
	floats.Scale(k, out.Counts)
	out.Underflow *= k
	out.Overflow *= k
	return out, nil
}

// Stack returns cumulative copies of hists: the i-th result holds the sum of
// hists[0..i]. Used to draw stacked fills.
func Stack(hists ...*Hist) ([]*Hist, error) {
	out := make([]*Hist, len(hists))
	for i, h := range hists {
		if i == 0 {
			out[i] = h.Clone()
			continue
		}
		c := out[i-1].Clone()
		c.Label = h.Label
		if err := c.Add(h); err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
