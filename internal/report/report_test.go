package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cutscan/internal/cutscan"
	"github.com/banshee-data/cutscan/internal/events"
	"github.com/banshee-data/cutscan/internal/fsutil"
	"github.com/banshee-data/cutscan/internal/histogram"
	"github.com/banshee-data/cutscan/internal/monitoring"
)

type fixture struct {
	signal      *events.Sample
	backgrounds []*events.Sample
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mk := func(label string, scores ...float64) *events.Sample {
		s, err := events.NewSample(label, scores)
		require.NoError(t, err)
		return s
	}
	return fixture{
		signal: mk("ww_signal", 0.5, 0.6, 0.9, -0.2, 0.45, 0.3),
		backgrounds: []*events.Sample{
			mk("ttbar", 0.1, -0.3, -0.7, 0.35),
			mk("tw_top", 0.3, -0.1),
			mk("tw_antitop", -0.5),
		},
	}
}

func (f fixture) sources() (cutscan.Source, []cutscan.Source) {
	bgs := make([]cutscan.Source, len(f.backgrounds))
	for i, b := range f.backgrounds {
		bgs[i] = b
	}
	return f.signal, bgs
}

func (f fixture) scoreSources() (ScoreSource, []ScoreSource) {
	bgs := make([]ScoreSource, len(f.backgrounds))
	for i, b := range f.backgrounds {
		bgs[i] = b
	}
	return f.signal, bgs
}

func (f fixture) distributions(t *testing.T) *Distributions {
	t.Helper()
	sig, bgs := f.scoreSources()
	d, err := BuildDistributions(histogram.DefaultBinning(), sig, bgs)
	require.NoError(t, err)
	return d
}

func (f fixture) result(t *testing.T) *cutscan.Result {
	t.Helper()
	sig, bgs := f.sources()
	res, err := cutscan.Optimize(sig, bgs, cutscan.DefaultGrid())
	require.NoError(t, err)
	return res
}

func muteLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

func TestBuildDistributions(t *testing.T) {
	d := newFixture(t).distributions(t)

	assert.Equal(t, 6.0, d.Signal.Integral())
	require.Len(t, d.Backgrounds, 3)

	bkg, err := d.Background()
	require.NoError(t, err)
	assert.Equal(t, 7.0, bkg.Integral())
	assert.Equal(t, "background", bkg.Label)

	_, err = BuildDistributions(histogram.DefaultBinning(), nil, nil)
	assert.Error(t, err)
}

func TestDistributions_NoBackgrounds(t *testing.T) {
	f := newFixture(t)
	d, err := BuildDistributions(histogram.DefaultBinning(), f.signal, nil)
	require.NoError(t, err)

	bkg, err := d.Background()
	require.NoError(t, err)
	assert.Zero(t, bkg.Integral())
}

func TestOverlayPlot(t *testing.T) {
	d := newFixture(t).distributions(t)

	p, err := OverlayPlot(d, Titles{"ww_signal": "WW Signal"}, false)
	require.NoError(t, err)
	assert.Equal(t, "BDT Score", p.Title.Text)
	assert.Equal(t, "Events", p.Y.Label.Text)
	assert.Equal(t, -1.0, p.X.Min)
	assert.Equal(t, 1.0, p.X.Max)

	n, err := OverlayPlot(d, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "A.U.", n.Y.Label.Text)
	assert.Less(t, n.Y.Max, 1.0, "normalised bins are fractions")
}

func TestOverlayPlot_NormalizeEmpty(t *testing.T) {
	f := newFixture(t)
	outOfRange, err := events.NewSample("ttbar", []float64{5, 6})
	require.NoError(t, err)

	d, err := BuildDistributions(histogram.DefaultBinning(), f.signal, []ScoreSource{outOfRange})
	require.NoError(t, err)

	_, err = OverlayPlot(d, nil, true)
	assert.ErrorIs(t, err, histogram.ErrEmpty)
}

func TestStackPlot(t *testing.T) {
	d := newFixture(t).distributions(t)

	p, err := StackPlot(d, Titles{}, 0.4)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Y.Min)
	assert.Greater(t, p.Y.Max, 0.0)

	// a cut outside the axis is simply not drawn
	_, err = StackPlot(d, Titles{}, 3)
	require.NoError(t, err)
}

func TestStackPlot_ManyBackgrounds(t *testing.T) {
	f := newFixture(t)
	sig, bgs := f.scoreSources()
	for i := 0; i < 4; i++ {
		extra, err := events.NewSample("extra"+string(rune('a'+i)), []float64{0.1 * float64(i)})
		require.NoError(t, err)
		bgs = append(bgs, extra)
	}
	d, err := BuildDistributions(histogram.DefaultBinning(), sig, bgs)
	require.NoError(t, err)

	_, err = StackPlot(d, nil, 0.4)
	require.NoError(t, err)
	assert.Len(t, fillColors(7), 7)
}

func TestSignificancePlot(t *testing.T) {
	res := newFixture(t).result(t)

	p, err := SignificancePlot(res)
	require.NoError(t, err)
	assert.Equal(t, "BDT cut", p.X.Label.Text)
	assert.InDelta(t, res.Optimal.Significance*1.15, p.Y.Max, 1e-12)

	_, err = SignificancePlot(&cutscan.Result{Grid: cutscan.DefaultGrid()})
	assert.Error(t, err)
}

func TestWriteScanCSV(t *testing.T) {
	points := []cutscan.Point{
		{Bin: 1, Threshold: -0.75, Signal: 4, Background: 3, Significance: 4 / math.Sqrt(7)},
		{Bin: 2, Threshold: 0.25, Signal: 3, Background: 1, Significance: 1.5},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteScanCSV(&buf, points))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "bin,threshold,signal,background,significance", lines[0])
	assert.Equal(t, "1,-0.750000,4,3,1.511858", lines[1])
	assert.Equal(t, "2,0.250000,3,1,1.500000", lines[2])
}

func TestWriteText(t *testing.T) {
	res := &cutscan.Result{
		Grid: cutscan.Grid{NCuts: 4, Min: -1, Max: 1},
		Optimal: cutscan.OptimalCut{
			Bin:                  3,
			Threshold:            0.25,
			Significance:         1.5,
			SignalEfficiency:     0.75,
			BackgroundEfficiency: 1.0 / 3.0,
			SignalPass:           3,
			SignalTotal:          4,
			BackgroundPass:       1,
			BackgroundTotal:      3,
			Backgrounds: []cutscan.SampleCount{
				{Label: "ttbar", Pass: 1, Total: 2},
				{Label: "tw_antitop", Pass: 0, Total: 0},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, res))
	out := buf.String()

	assert.Contains(t, out, "Optimal BDT cut       = 0.2500 (bin 3)")
	assert.Contains(t, out, "Max significance      = 1.5000")
	assert.Contains(t, out, "Signal efficiency     = 0.7500 (3/4)")
	assert.Contains(t, out, "Background efficiency = 0.3333 (1/3)")
	assert.Contains(t, out, "ttbar")
	assert.Contains(t, out, "(0.5000)")
	assert.NotContains(t, out, "NaN")
}

func TestWriter_WriteAll(t *testing.T) {
	muteLogs(t)
	f := newFixture(t)
	mem := fsutil.NewMemoryFileSystem()
	w := NewWriter(mem, "plots/run-1")
	w.Width, w.Height = 200, 150

	got, err := w.WriteAll(f.distributions(t), f.result(t), Summary{
		RunID:    "run-1",
		Version:  "test",
		Signal:   "ww_signal",
		StackCut: 0.4,
	})
	require.NoError(t, err)

	want := []string{OverlayFile, NormalizedFile, StackFile, SignificanceFile, ScanCSVFile, MetricsFile, SummaryFile}
	assert.Equal(t, want, got.Files)
	for _, name := range want {
		assert.True(t, mem.Exists("plots/run-1/"+name), name)
	}

	png, err := mem.ReadFile("plots/run-1/" + StackFile)
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, "\x89PNG", string(png[:4]))

	raw, err := mem.ReadFile("plots/run-1/" + SummaryFile)
	require.NoError(t, err)
	var decoded Summary
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, got.Optimal, decoded.Optimal)
	assert.Equal(t, cutscan.DefaultNCuts, decoded.Grid.NCuts)
}

func TestWriter_WriteAll_SkipsEmptyNormalization(t *testing.T) {
	muteLogs(t)
	f := newFixture(t)
	mem := fsutil.NewMemoryFileSystem()
	w := NewWriter(mem, "out")
	w.Width, w.Height = 120, 90

	outOfRange, err := events.NewSample("ttbar", []float64{5})
	require.NoError(t, err)
	d, err := BuildDistributions(histogram.DefaultBinning(), f.signal, []ScoreSource{outOfRange})
	require.NoError(t, err)

	got, err := w.WriteAll(d, f.result(t), Summary{})
	require.NoError(t, err)
	assert.NotContains(t, got.Files, NormalizedFile)
	assert.False(t, mem.Exists("out/"+NormalizedFile))
}

func TestTitles(t *testing.T) {
	titles := Titles{"tw_antitop": "t̄W", "empty": ""}
	assert.Equal(t, "t̄W", titles.get("tw_antitop"))
	assert.Equal(t, "ttbar", titles.get("ttbar"))
	assert.Equal(t, "empty", titles.get("empty"))

	var none Titles
	assert.Equal(t, "x", none.get("x"))
}

func TestFillColors(t *testing.T) {
	assert.Empty(t, fillColors(0))
	assert.Equal(t, stackColors[:2], fillColors(2))

	colors := fillColors(5)
	require.Len(t, colors, 5)
	assert.Equal(t, stackColors, colors[:3])
	for i := 3; i < len(colors); i++ {
		for j := 0; j < i; j++ {
			assert.NotEqual(t, colors[j], colors[i], "colours %d and %d", j, i)
		}
	}
}

func TestBuildDistributions_LogsOutOfRange(t *testing.T) {
	original := monitoring.Logf
	t.Cleanup(func() { monitoring.Logf = original })
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	f := newFixture(t)
	outOfRange, err := events.NewSample("ttbar", []float64{5, 6, 0.5})
	require.NoError(t, err)
	_, err = BuildDistributions(histogram.DefaultBinning(), f.signal, []ScoreSource{outOfRange})
	require.NoError(t, err)

	assert.Equal(t, []string{"sample ttbar: 2 of 3 entries outside [-1, 1)"}, lines)
}
