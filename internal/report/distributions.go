// Package report renders cut-scan results: score distribution plots, the
// significance curve, and tabular and text summaries.
package report

import (
	"fmt"

	"github.com/banshee-data/cutscan/internal/histogram"
	"github.com/banshee-data/cutscan/internal/monitoring"
)

// ScoreSource yields every score of a labeled sample.
type ScoreSource interface {
	Label() string
	Scores() ([]float64, error)
}

// Distributions holds the binned scores of one signal and its backgrounds.
type Distributions struct {
	Binning     histogram.Binning
	Signal      *histogram.Hist
	Backgrounds []*histogram.Hist
}

// BuildDistributions fills one histogram per sample.
func BuildDistributions(b histogram.Binning, signal ScoreSource, backgrounds []ScoreSource) (*Distributions, error) {
	if signal == nil {
		return nil, fmt.Errorf("build distributions: no signal sample")
	}
	d := &Distributions{Binning: b}

	h, err := fill(b, signal)
	if err != nil {
		return nil, err
	}
	d.Signal = h

	for _, bg := range backgrounds {
		h, err := fill(b, bg)
		if err != nil {
			return nil, err
		}
		d.Backgrounds = append(d.Backgrounds, h)
	}
	return d, nil
}

// Background returns the sum of all background histograms.
func (d *Distributions) Background() (*histogram.Hist, error) {
	if len(d.Backgrounds) == 0 {
		return histogram.Fill("background", d.Binning, nil)
	}
	return histogram.Sum("background", d.Backgrounds...)
}

func fill(b histogram.Binning, src ScoreSource) (*histogram.Hist, error) {
	scores, err := src.Scores()
	if err != nil {
		return nil, fmt.Errorf("sample %q: scores: %w", src.Label(), err)
	}
	h, err := histogram.Fill(src.Label(), b, scores)
	if err != nil {
		return nil, fmt.Errorf("sample %q: %w", src.Label(), err)
	}
	if outside := h.Underflow + h.Overflow; outside > 0 {
		monitoring.Logf("sample %s: %g of %g entries outside [%g, %g)", src.Label(), outside, h.Entries(), b.Min, b.Max)
	}
	return h, nil
}
