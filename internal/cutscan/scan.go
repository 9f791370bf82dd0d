package cutscan

import (
	"fmt"
	"math"

	"github.com/banshee-data/cutscan/internal/events"
)

// Source answers counting queries against one fixed sample.
// CountAbove must use a strict score > threshold comparison and Total must
// equal CountAbove(-Inf).
type Source interface {
	Label() string
	CountAbove(threshold float64) (int64, error)
	Total() (int64, error)
}

// Point is one evaluated grid bin.
type Point struct {
	Bin          int     `json:"bin"`
	Threshold    float64 `json:"threshold"`
	Signal       int64   `json:"signal"`
	Background   int64   `json:"background"`
	Significance float64 `json:"significance"`
}

// SampleCount is the pass/total breakdown of a single sample at a cut.
type SampleCount struct {
	Label string `json:"label"`
	Pass  int64  `json:"pass"`
	Total int64  `json:"total"`
}

// OptimalCut is the grid bin with the highest significance.
type OptimalCut struct {
	Bin                  int     `json:"bin"`
	Threshold            float64 `json:"threshold"`
	Significance         float64 `json:"significance"`
	SignalEfficiency     float64 `json:"signal_efficiency"`
	BackgroundEfficiency float64 `json:"background_efficiency"`

	SignalPass      int64         `json:"signal_pass"`
	SignalTotal     int64         `json:"signal_total"`
	BackgroundPass  int64         `json:"background_pass"`
	BackgroundTotal int64         `json:"background_total"`
	Backgrounds     []SampleCount `json:"backgrounds"`
}

// Result is the full output of Optimize.
type Result struct {
	Grid    Grid       `json:"grid"`
	Points  []Point    `json:"points"`
	Optimal OptimalCut `json:"optimal"`
}

// Significance is S/sqrt(S+B), or 0 when S+B is 0.
func Significance(s, b int64) float64 {
	if s+b <= 0 {
		return 0
	}
	return float64(s) / math.Sqrt(float64(s+b))
}

// Scan evaluates every bin of grid in order. The grid is validated before
// any counting query is issued. Scan never fails on empty samples: bins with
// S+B == 0 get significance 0.
func Scan(signal Source, backgrounds []Source, grid Grid) ([]Point, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if err := checkSources(signal, backgrounds); err != nil {
		return nil, err
	}

	centers := grid.Centers()
	points := make([]Point, 0, len(centers))
	for i, threshold := range centers {
		s, b, err := countAt(signal, backgrounds, threshold)
		if err != nil {
			return nil, err
		}
		points = append(points, Point{
			Bin:          i + 1,
			Threshold:    threshold,
			Signal:       s,
			Background:   b,
			Significance: Significance(s, b),
		})
	}
	return points, nil
}

// Best returns the index into points of the first maximum significance.
// Ties keep the earlier (lower threshold) bin. Returns -1 for no points.
func Best(points []Point) int {
	if len(points) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(points); i++ {
		if points[i].Significance > points[best].Significance {
			best = i
		}
	}
	return best
}

// Optimize scans grid, picks the best bin and computes the signal and
// background efficiencies at its threshold. A zero signal total or a zero
// summed background total yields a *DegenerateSampleError.
func Optimize(signal Source, backgrounds []Source, grid Grid) (*Result, error) {
	points, err := Scan(signal, backgrounds, grid)
	if err != nil {
		return nil, err
	}

	best := points[Best(points)]
	opt, err := Efficiencies(signal, backgrounds, best.Threshold)
	if err != nil {
		return nil, err
	}
	opt.Bin = best.Bin
	opt.Significance = best.Significance

	return &Result{Grid: grid, Points: points, Optimal: *opt}, nil
}

// Efficiencies evaluates the pass fractions of signal and of the summed
// backgrounds at threshold. Bin and Significance are left for the caller.
func Efficiencies(signal Source, backgrounds []Source, threshold float64) (*OptimalCut, error) {
	if err := checkSources(signal, backgrounds); err != nil {
		return nil, err
	}

	sPass, err := signal.CountAbove(threshold)
	if err != nil {
		return nil, sourceError(signal.Label(), fmt.Sprintf("count above %g", threshold), err)
	}
	sTotal, err := signal.Total()
	if err != nil {
		return nil, sourceError(signal.Label(), "total", err)
	}

	opt := &OptimalCut{
		Threshold:   threshold,
		SignalPass:  sPass,
		SignalTotal: sTotal,
		Backgrounds: make([]SampleCount, 0, len(backgrounds)),
	}
	labels := make([]string, 0, len(backgrounds))
	for _, bg := range backgrounds {
		pass, err := bg.CountAbove(threshold)
		if err != nil {
			return nil, sourceError(bg.Label(), fmt.Sprintf("count above %g", threshold), err)
		}
		total, err := bg.Total()
		if err != nil {
			return nil, sourceError(bg.Label(), "total", err)
		}
		opt.BackgroundPass += pass
		opt.BackgroundTotal += total
		opt.Backgrounds = append(opt.Backgrounds, SampleCount{Label: bg.Label(), Pass: pass, Total: total})
		labels = append(labels, bg.Label())
	}

	if sTotal == 0 {
		return nil, &DegenerateSampleError{Role: events.RoleSignal, Labels: []string{signal.Label()}}
	}
	if opt.BackgroundTotal == 0 {
		return nil, &DegenerateSampleError{Role: events.RoleBackground, Labels: labels}
	}

	opt.SignalEfficiency = float64(sPass) / float64(sTotal)
	opt.BackgroundEfficiency = float64(opt.BackgroundPass) / float64(opt.BackgroundTotal)
	return opt, nil
}

func countAt(signal Source, backgrounds []Source, threshold float64) (s, b int64, err error) {
	s, err = signal.CountAbove(threshold)
	if err != nil {
		return 0, 0, sourceError(signal.Label(), fmt.Sprintf("count above %g", threshold), err)
	}
	for _, bg := range backgrounds {
		n, err := bg.CountAbove(threshold)
		if err != nil {
			return 0, 0, sourceError(bg.Label(), fmt.Sprintf("count above %g", threshold), err)
		}
		b += n
	}
	return s, b, nil
}

func checkSources(signal Source, backgrounds []Source) error {
	if signal == nil {
		return fmt.Errorf("signal sample missing: %w", ErrSourceUnavailable)
	}
	for i, bg := range backgrounds {
		if bg == nil {
			return fmt.Errorf("background sample %d missing: %w", i+1, ErrSourceUnavailable)
		}
	}
	return nil
}
