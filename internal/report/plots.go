package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/cutscan/internal/cutscan"
	"github.com/banshee-data/cutscan/internal/histogram"
)

// Titles maps sample labels to legend text. Missing labels use the label.
type Titles map[string]string

func (t Titles) get(label string) string {
	if s, ok := t[label]; ok && s != "" {
		return s
	}
	return label
}

// stepXYs traces the outline of a histogram, starting and ending on y=0.
func stepXYs(edges, counts []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, 2*len(counts)+2)
	pts = append(pts, plotter.XY{X: edges[0], Y: 0})
	for i, c := range counts {
		pts = append(pts, plotter.XY{X: edges[i], Y: c}, plotter.XY{X: edges[i+1], Y: c})
	}
	pts = append(pts, plotter.XY{X: edges[len(edges)-1], Y: 0})
	return pts
}

func histLine(h *histogram.Hist, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(stepXYs(h.Edges, h.Counts))
	if err != nil {
		return nil, fmt.Errorf("histogram %q: %w", h.Label, err)
	}
	l.Color = c
	l.Width = vg.Points(2)
	return l, nil
}

func histFill(h *histogram.Hist, c color.Color) (*plotter.Polygon, error) {
	poly, err := plotter.NewPolygon(stepXYs(h.Edges, h.Counts))
	if err != nil {
		return nil, fmt.Errorf("histogram %q: %w", h.Label, err)
	}
	poly.Color = c
	poly.LineStyle.Color = color.Black
	poly.LineStyle.Width = vg.Points(0.5)
	return poly, nil
}

// cutMarker draws a dashed vertical line at x from 0 to top.
func cutMarker(x, top float64) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: top}})
	if err != nil {
		return nil, err
	}
	l.Color = markerColor
	l.Width = vg.Points(2)
	l.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	return l, nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p
}

func setYRange(p *plot.Plot, top float64) {
	p.Y.Min = 0
	if top > 0 {
		p.Y.Max = top * 1.15
	} else {
		p.Y.Max = 1
	}
}

// OverlayPlot draws signal against the summed background. With normalized
// set, both are scaled to unit area; an empty histogram then fails with
// histogram.ErrEmpty instead of plotting NaNs.
func OverlayPlot(d *Distributions, titles Titles, normalized bool) (*plot.Plot, error) {
	sig := d.Signal
	bkg, err := d.Background()
	if err != nil {
		return nil, err
	}

	title, yLabel := "BDT Score", "Events"
	if normalized {
		title, yLabel = "Normalized BDT Score", "A.U."
		if sig, err = sig.Normalized(); err != nil {
			return nil, err
		}
		if bkg, err = bkg.Normalized(); err != nil {
			return nil, err
		}
	}

	p := newPlot(title, "BDT score", yLabel)
	sigLine, err := histLine(sig, signalColor)
	if err != nil {
		return nil, err
	}
	bkgLine, err := histLine(bkg, backgroundColor)
	if err != nil {
		return nil, err
	}
	p.Add(sigLine, bkgLine)
	p.Legend.Add(titles.get(d.Signal.Label), sigLine)
	p.Legend.Add(titles.get("background"), bkgLine)

	p.X.Min, p.X.Max = d.Binning.Min, d.Binning.Max
	setYRange(p, max(sig.Max(), bkg.Max()))
	return p, nil
}

// StackPlot stacks the background processes as filled areas, overlays the
// signal outline and marks cut with a dashed line.
func StackPlot(d *Distributions, titles Titles, cut float64) (*plot.Plot, error) {
	p := newPlot("BDT Score", "BDT score", "Events")

	stacked, err := histogram.Stack(d.Backgrounds...)
	if err != nil {
		return nil, err
	}
	colors := fillColors(len(stacked))

	// Draw the tallest cumulative layer first so lower layers stay visible.
	fills := make([]*plotter.Polygon, len(stacked))
	for i := len(stacked) - 1; i >= 0; i-- {
		poly, err := histFill(stacked[i], colors[i])
		if err != nil {
			return nil, err
		}
		fills[i] = poly
		p.Add(poly)
	}

	sigLine, err := histLine(d.Signal, signalColor)
	if err != nil {
		return nil, err
	}
	p.Add(sigLine)
	p.Legend.Add(titles.get(d.Signal.Label), sigLine)
	for i, h := range d.Backgrounds {
		p.Legend.Add(titles.get(h.Label), fills[i])
	}

	top := d.Signal.Max()
	if len(stacked) > 0 {
		top = max(top, stacked[len(stacked)-1].Max())
	}
	if cut >= d.Binning.Min && cut <= d.Binning.Max {
		marker, err := cutMarker(cut, d.Signal.Max())
		if err != nil {
			return nil, err
		}
		p.Add(marker)
	}

	p.X.Min, p.X.Max = d.Binning.Min, d.Binning.Max
	setYRange(p, top)
	return p, nil
}

// SignificancePlot draws S/sqrt(S+B) per grid bin and marks the optimum.
func SignificancePlot(res *cutscan.Result) (*plot.Plot, error) {
	if len(res.Points) == 0 {
		return nil, fmt.Errorf("significance plot: no scan points")
	}
	p := newPlot("Significance vs BDT cut", "BDT cut", "S/√(S+B)")

	edges := make([]float64, len(res.Points)+1)
	counts := make([]float64, len(res.Points))
	w := res.Grid.Width()
	for i, pt := range res.Points {
		edges[i] = res.Grid.Min + float64(i)*w
		counts[i] = pt.Significance
	}
	edges[len(edges)-1] = res.Grid.Max

	curve, err := plotter.NewLine(stepXYs(edges, counts))
	if err != nil {
		return nil, err
	}
	curve.Width = vg.Points(2)
	curve.Color = backgroundColor
	p.Add(curve)

	marker, err := cutMarker(res.Optimal.Threshold, res.Optimal.Significance)
	if err != nil {
		return nil, err
	}
	p.Add(marker)
	p.Legend.Add("S/√(S+B)", curve)
	p.Legend.Add(fmt.Sprintf("optimal cut %.3f", res.Optimal.Threshold), marker)

	p.X.Min, p.X.Max = res.Grid.Min, res.Grid.Max
	setYRange(p, res.Optimal.Significance)
	return p, nil
}
