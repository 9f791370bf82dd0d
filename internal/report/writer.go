package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/segmentio/encoding/json"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/cutscan/internal/cutscan"
	"github.com/banshee-data/cutscan/internal/fsutil"
	"github.com/banshee-data/cutscan/internal/histogram"
	"github.com/banshee-data/cutscan/internal/monitoring"
)

// Output file names.
const (
	OverlayFile      = "BDT_signal_vs_background.png"
	NormalizedFile   = "BDT_signal_vs_background_normalized.png"
	StackFile        = "BDT_stack.png"
	SignificanceFile = "significance_vs_cut.png"
	ScanCSVFile      = "significance_scan.csv"
	SummaryFile      = "summary.json"
)

// Summary is the machine-readable record of one scan run.
type Summary struct {
	RunID       string             `json:"run_id"`
	Version     string             `json:"version"`
	GeneratedAt time.Time          `json:"generated_at"`
	Signal      string             `json:"signal"`
	Backgrounds []string           `json:"backgrounds"`
	Grid        cutscan.Grid       `json:"grid"`
	StackCut    float64            `json:"stack_cut"`
	Optimal     cutscan.OptimalCut `json:"optimal"`
	Files       []string           `json:"files"`
}

// Writer persists plots and tables below Dir.
type Writer struct {
	FS     fsutil.FileSystem
	Dir    string
	Width  vg.Length
	Height vg.Length
	Titles Titles
}

// NewWriter returns a writer producing 800x600-point images.
func NewWriter(fsys fsutil.FileSystem, dir string) *Writer {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Writer{
		FS:     fsys,
		Dir:    dir,
		Width:  800,
		Height: 600,
		Titles: Titles{},
	}
}

func (w *Writer) path(name string) string {
	return filepath.Join(w.Dir, name)
}

// SavePlot renders p as PNG into Dir/name.
func (w *Writer) SavePlot(p *plot.Plot, name string) error {
	wt, err := p.WriterTo(w.Width, w.Height, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	f, err := w.FS.Create(w.path(name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

// WriteScanCSV writes one row per grid bin.
func WriteScanCSV(out io.Writer, points []cutscan.Point) error {
	cw := csv.NewWriter(out)
	if err := cw.Write([]string{"bin", "threshold", "signal", "background", "significance"}); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			strconv.Itoa(p.Bin),
			strconv.FormatFloat(p.Threshold, 'f', 6, 64),
			strconv.FormatInt(p.Signal, 10),
			strconv.FormatInt(p.Background, 10),
			strconv.FormatFloat(p.Significance, 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteText prints the human-readable optimum summary.
func WriteText(out io.Writer, res *cutscan.Result) error {
	o := res.Optimal
	_, err := fmt.Fprintf(out,
		"Grid                  = %s\n"+
			"Optimal BDT cut       = %.4f (bin %d)\n"+
			"Max significance      = %.4f\n"+
			"Signal efficiency     = %.4f (%d/%d)\n"+
			"Background efficiency = %.4f (%d/%d)\n",
		res.Grid,
		o.Threshold, o.Bin,
		o.Significance,
		o.SignalEfficiency, o.SignalPass, o.SignalTotal,
		o.BackgroundEfficiency, o.BackgroundPass, o.BackgroundTotal,
	)
	if err != nil {
		return err
	}
	for _, bg := range o.Backgrounds {
		if bg.Total == 0 {
			if _, err := fmt.Fprintf(out, "  %-20s %d/%d\n", bg.Label, bg.Pass, bg.Total); err != nil {
				return err
			}
			continue
		}
		eff := float64(bg.Pass) / float64(bg.Total)
		if _, err := fmt.Fprintf(out, "  %-20s %d/%d (%.4f)\n", bg.Label, bg.Pass, bg.Total, eff); err != nil {
			return err
		}
	}
	return nil
}

// WriteAll produces every plot plus the scan table and JSON summary.
// summary.Files is filled with the names written.
func (w *Writer) WriteAll(d *Distributions, res *cutscan.Result, summary Summary) (*Summary, error) {
	if err := w.FS.MkdirAll(w.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	var files []string
	save := func(p *plot.Plot, err error, name string) error {
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := w.SavePlot(p, name); err != nil {
			return err
		}
		files = append(files, name)
		return nil
	}

	p, err := OverlayPlot(d, w.Titles, false)
	if err := save(p, err, OverlayFile); err != nil {
		return nil, err
	}
	p, err = OverlayPlot(d, w.Titles, true)
	if errors.Is(err, histogram.ErrEmpty) {
		monitoring.Logf("skipping %s: %v", NormalizedFile, err)
	} else if err := save(p, err, NormalizedFile); err != nil {
		return nil, err
	}
	p, err = StackPlot(d, w.Titles, summary.StackCut)
	if err := save(p, err, StackFile); err != nil {
		return nil, err
	}
	p, err = SignificancePlot(res)
	if err := save(p, err, SignificanceFile); err != nil {
		return nil, err
	}

	f, err := w.FS.Create(w.path(ScanCSVFile))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", ScanCSVFile, err)
	}
	if err := WriteScanCSV(f, res.Points); err != nil {
		f.Close()
		return nil, fmt.Errorf("write %s: %w", ScanCSVFile, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", ScanCSVFile, err)
	}
	files = append(files, ScanCSVFile)

	mf, err := w.FS.Create(w.path(MetricsFile))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricsFile, err)
	}
	if err := WriteMetrics(mf, summary.Signal, res); err != nil {
		mf.Close()
		return nil, fmt.Errorf("write %s: %w", MetricsFile, err)
	}
	if err := mf.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", MetricsFile, err)
	}
	files = append(files, MetricsFile, SummaryFile)

	summary.Grid = res.Grid
	summary.Optimal = res.Optimal
	summary.Files = files
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	if err := w.FS.WriteFile(w.path(SummaryFile), data, 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", SummaryFile, err)
	}

	monitoring.Logf("wrote %d report files to %s", len(files), w.Dir)
	return &summary, nil
}
