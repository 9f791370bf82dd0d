package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/banshee-data/cutscan/internal/config"
	"github.com/banshee-data/cutscan/internal/cutscan"
	"github.com/banshee-data/cutscan/internal/eventdb"
	"github.com/banshee-data/cutscan/internal/events"
	"github.com/banshee-data/cutscan/internal/fsutil"
	"github.com/banshee-data/cutscan/internal/monitoring"
	"github.com/banshee-data/cutscan/internal/report"
	"github.com/banshee-data/cutscan/internal/timeutil"
	"github.com/banshee-data/cutscan/internal/version"
)

// scanOptions is the parsed command line of the scan command.
type scanOptions struct {
	configPath     string
	runID          string
	stackAtOptimum bool
	preload        bool

	cfg   *config.ScanConfig
	clock timeutil.Clock
}

func parseScanFlags(args []string) (*scanOptions, error) {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	configPath := fs.String("config", "", "JSON scan configuration")
	nCuts := fs.Int("cuts", cutscan.DefaultNCuts, "Number of grid bins")
	cutMin := fs.Float64("cut-min", cutscan.DefaultCutMin, "Lower edge of the cut grid")
	cutMax := fs.Float64("cut-max", cutscan.DefaultCutMax, "Upper edge of the cut grid")
	column := fs.String("column", events.DefaultScoreColumn, "Score column in CSV inputs")
	outDir := fs.String("out", config.DefaultOutputDir, "Output directory")
	dbPath := fs.String("db", "", "Event database to read samples from")
	refCut := fs.Float64("reference-cut", config.DefaultReferenceCut, "Threshold marked on the stacked plot")
	stackAtOptimum := fs.Bool("stack-at-optimum", false, "Mark the optimal cut on the stacked plot")
	runID := fs.String("run-id", "", "Run identifier (default: random UUID)")
	preload := fs.Bool("preload", false, "Read database samples into memory before scanning")
	signal := &sampleFlag{role: events.RoleSignal}
	backgrounds := &sampleFlag{role: events.RoleBackground}
	fs.Var(signal, "signal", "Signal sample: label=path, path.csv or a stored label")
	fs.Var(backgrounds, "background", "Background sample (repeatable)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *runID != "" && !validRunID(*runID) {
		return nil, fmt.Errorf("run id %q: only letters, digits, '.', '_' and '-' are allowed", *runID)
	}

	cfg := config.DefaultScanConfig()
	if *configPath != "" {
		loaded, err := config.LoadScanConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Explicit flags win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cuts":
			cfg.NCuts = nCuts
		case "cut-min":
			cfg.CutMin = cutMin
		case "cut-max":
			cfg.CutMax = cutMax
		case "column":
			cfg.ScoreColumn = column
		case "out":
			cfg.OutputDir = outDir
		case "db":
			cfg.EventDB = dbPath
		case "reference-cut":
			cfg.ReferenceCut = refCut
		}
	})
	if len(signal.samples)+len(backgrounds.samples) > 0 {
		cfg.Samples = append(append([]config.SampleConfig(nil), signal.samples...), backgrounds.samples...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &scanOptions{
		configPath:     *configPath,
		runID:          *runID,
		stackAtOptimum: *stackAtOptimum,
		preload:        *preload,
		cfg:            cfg,
		clock:          timeutil.RealClock{},
	}, nil
}

func handleScan(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseScanFlags(args)
	if err != nil {
		return err
	}
	_, err = runScan(ctx, opts, fsutil.OSFileSystem{}, out)
	return err
}

// runScan loads every sample, optimises the cut, prints the result to out
// and writes the report below output_dir/<run id>.
func runScan(ctx context.Context, opts *scanOptions, fsys fsutil.FileSystem, out io.Writer) (*report.Summary, error) {
	cfg := opts.cfg
	runID := opts.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	clock := opts.clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	prevLogf := monitoring.Logf
	monitoring.SetLogger(monitoring.Prefixed(shortID(runID), prevLogf))
	defer func() { monitoring.Logf = prevLogf }()

	var store *eventdb.Store
	if path := cfg.GetEventDB(); path != "" {
		s, err := eventdb.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open event database: %v: %w", err, events.ErrSourceUnavailable)
		}
		defer s.Close()
		store = s
	}

	samples := cfg.Samples
	if len(samples) == 0 && store != nil {
		stored, err := storedSamples(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("list stored samples: %v: %w", err, events.ErrSourceUnavailable)
		}
		samples = stored
	}
	if err := config.ValidateSamples(samples); err != nil {
		return nil, err
	}

	resolved := *cfg
	resolved.Samples = samples
	signal, backgrounds, err := openSources(ctx, &resolved, store, opts.preload)
	if err != nil {
		return nil, err
	}
	bgSources := make([]cutscan.Source, len(backgrounds))
	bgScores := make([]report.ScoreSource, len(backgrounds))
	bgLabels := make([]string, len(backgrounds))
	for i, bg := range backgrounds {
		bgSources[i], bgScores[i], bgLabels[i] = bg, bg, bg.Label()
	}

	grid := cfg.Grid()
	monitoring.Logf("scanning %s: signal %s, %d backgrounds", grid, signal.Label(), len(backgrounds))
	res, err := cutscan.Optimize(signal, bgSources, grid)
	if err != nil {
		return nil, err
	}
	if err := report.WriteText(out, res); err != nil {
		return nil, err
	}

	dist, err := report.BuildDistributions(cfg.Binning(), signal, bgScores)
	if err != nil {
		return nil, err
	}

	stackCut := cfg.GetReferenceCut()
	if opts.stackAtOptimum {
		stackCut = res.Optimal.Threshold
	}

	dir := filepath.Join(cfg.GetOutputDir(), runID)
	w := report.NewWriter(fsys, dir)
	w.Titles = titlesFor(cfg, samples)
	summary, err := w.WriteAll(dist, res, report.Summary{
		RunID:       runID,
		Version:     version.Version,
		GeneratedAt: clock.Now(),
		Signal:      signal.Label(),
		Backgrounds: bgLabels,
		StackCut:    stackCut,
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Wrote %d files to %s\n", len(summary.Files), dir)
	return summary, nil
}

// titlesFor merges configured titles with titles recorded in the store.
func titlesFor(cfg *config.ScanConfig, samples []config.SampleConfig) report.Titles {
	titles := report.Titles(cfg.Titles())
	for _, s := range samples {
		if _, ok := titles[s.Label]; !ok && s.Title != "" {
			titles[s.Label] = s.Title
		}
	}
	return titles
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// validRunID reports whether id is usable as a single directory name.
func validRunID(id string) bool {
	if id == "." || id == ".." {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
