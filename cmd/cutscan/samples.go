package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/cutscan/internal/config"
	"github.com/banshee-data/cutscan/internal/cutscan"
	"github.com/banshee-data/cutscan/internal/eventdb"
	"github.com/banshee-data/cutscan/internal/events"
	"github.com/banshee-data/cutscan/internal/report"
)

// source is a sample usable both for counting and for histogramming.
// Both *events.Sample and *eventdb.SampleView satisfy it.
type source interface {
	cutscan.Source
	report.ScoreSource
}

// sampleFlag collects repeated --signal/--background values.
type sampleFlag struct {
	role    events.Role
	samples []config.SampleConfig
}

func (f *sampleFlag) String() string {
	parts := make([]string, len(f.samples))
	for i, s := range f.samples {
		parts[i] = s.Label
	}
	return strings.Join(parts, ",")
}

func (f *sampleFlag) Set(v string) error {
	s, err := parseSampleArg(v)
	if err != nil {
		return err
	}
	s.Role = f.role
	f.samples = append(f.samples, s)
	return nil
}

// parseSampleArg accepts "label=path", a bare CSV path (labelled by its
// file name) or a bare label naming a sample in the event database.
func parseSampleArg(v string) (config.SampleConfig, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return config.SampleConfig{}, fmt.Errorf("empty sample")
	}
	if label, path, ok := strings.Cut(v, "="); ok {
		if label == "" || path == "" {
			return config.SampleConfig{}, fmt.Errorf("sample %q: want label=path", v)
		}
		return config.SampleConfig{Label: label, Path: path}, nil
	}
	if strings.EqualFold(filepath.Ext(v), ".csv") {
		return config.SampleConfig{Label: labelFromPath(v), Path: v}, nil
	}
	return config.SampleConfig{Label: v}, nil
}

func labelFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// openSources resolves the signal and background samples of cfg to sources.
// Samples with a path are read from CSV; the rest are looked up in store and,
// with preload, read into memory instead of being counted in SQL.
func openSources(ctx context.Context, cfg *config.ScanConfig, store *eventdb.Store, preload bool) (source, []source, error) {
	sc, ok := cfg.Signal()
	if !ok {
		return nil, nil, fmt.Errorf("no signal sample configured")
	}
	column := cfg.GetScoreColumn()
	signal, err := openSource(ctx, sc, column, store, preload)
	if err != nil {
		return nil, nil, err
	}

	var backgrounds []source
	for _, bc := range cfg.Backgrounds() {
		src, err := openSource(ctx, bc, column, store, preload)
		if err != nil {
			return nil, nil, err
		}
		backgrounds = append(backgrounds, src)
	}
	return signal, backgrounds, nil
}

func openSource(ctx context.Context, sc config.SampleConfig, column string, store *eventdb.Store, preload bool) (source, error) {
	if sc.Path != "" {
		s, err := events.LoadCSV(sc.Path, sc.Label, column)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	if store == nil {
		return nil, fmt.Errorf("sample %q has no path and no event database was given: %w", sc.Label, events.ErrSourceUnavailable)
	}
	v, err := store.Sample(ctx, sc.Label)
	if err != nil {
		return nil, err
	}
	if !preload {
		return v, nil
	}
	loaded, err := v.Load()
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

// storedSamples returns every sample in store as scan configuration.
func storedSamples(ctx context.Context, store *eventdb.Store) ([]config.SampleConfig, error) {
	metas, err := store.ListSamples(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]config.SampleConfig, len(metas))
	for i, m := range metas {
		out[i] = config.SampleConfig{Label: m.Label, Role: m.Role, Title: m.Title}
	}
	return out, nil
}
