package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/cutscan/internal/cutscan"
	"github.com/banshee-data/cutscan/internal/events"
	"github.com/banshee-data/cutscan/internal/histogram"
)

// ScanConfig is the JSON or YAML configuration of a cut scan. Every field is
// optional; the Get* accessors supply defaults for anything omitted.
type ScanConfig struct {
	// Cut grid
	NCuts  *int     `json:"n_cuts,omitempty" yaml:"n_cuts,omitempty"`
	CutMin *float64 `json:"cut_min,omitempty" yaml:"cut_min,omitempty"`
	CutMax *float64 `json:"cut_max,omitempty" yaml:"cut_max,omitempty"`

	// Distribution plots
	HistBins     *int     `json:"hist_bins,omitempty" yaml:"hist_bins,omitempty"`
	HistMin      *float64 `json:"hist_min,omitempty" yaml:"hist_min,omitempty"`
	HistMax      *float64 `json:"hist_max,omitempty" yaml:"hist_max,omitempty"`
	ReferenceCut *float64 `json:"reference_cut,omitempty" yaml:"reference_cut,omitempty"`

	// Inputs and outputs
	ScoreColumn *string `json:"score_column,omitempty" yaml:"score_column,omitempty"`
	OutputDir   *string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	EventDB     *string `json:"event_db,omitempty" yaml:"event_db,omitempty"`

	Samples []SampleConfig `json:"samples,omitempty" yaml:"samples,omitempty"`
}

// SampleConfig names one input sample. Path is a CSV file; it may be empty
// when samples are read from the event database.
type SampleConfig struct {
	Label string      `json:"label" yaml:"label"`
	Role  events.Role `json:"role" yaml:"role"`
	Path  string      `json:"path,omitempty" yaml:"path,omitempty"`
	Title string      `json:"title,omitempty" yaml:"title,omitempty"`
}

// DefaultOutputDir is where reports are written when nothing else is set.
const DefaultOutputDir = "plots"

// DefaultReferenceCut is the threshold marked on the stacked plot.
const DefaultReferenceCut = 0.4

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultScanConfig returns a config with every scalar field populated.
func DefaultScanConfig() *ScanConfig {
	b := histogram.DefaultBinning()
	return &ScanConfig{
		NCuts:        ptrInt(cutscan.DefaultNCuts),
		CutMin:       ptrFloat64(cutscan.DefaultCutMin),
		CutMax:       ptrFloat64(cutscan.DefaultCutMax),
		HistBins:     ptrInt(b.NBins),
		HistMin:      ptrFloat64(b.Min),
		HistMax:      ptrFloat64(b.Max),
		ReferenceCut: ptrFloat64(DefaultReferenceCut),
		ScoreColumn:  ptrString(events.DefaultScoreColumn),
		OutputDir:    ptrString(DefaultOutputDir),
	}
}

// LoadScanConfig loads a ScanConfig from a JSON or YAML file, chosen by
// extension (.json, .yaml or .yml). The file must be at most 1MB.
func LoadScanConfig(path string) (*ScanConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &ScanConfig{}
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	// Relative sample paths are resolved against the config file.
	base := filepath.Dir(cleanPath)
	for i := range cfg.Samples {
		p := cfg.Samples[i].Path
		if p != "" && !filepath.IsAbs(p) {
			cfg.Samples[i].Path = filepath.Join(base, p)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the grid, the binning and the sample list. An empty
// sample list is allowed so the CLI can supply samples by flag.
func (c *ScanConfig) Validate() error {
	if err := c.Grid().Validate(); err != nil {
		return err
	}
	if err := c.Binning().Validate(); err != nil {
		return fmt.Errorf("invalid histogram binning: %w", err)
	}
	if len(c.Samples) == 0 {
		return nil
	}
	return ValidateSamples(c.Samples)
}

// ValidateSamples requires unique non-empty labels, exactly one signal and
// at least one background.
func ValidateSamples(samples []SampleConfig) error {
	seen := make(map[string]bool, len(samples))
	var nSignal, nBackground int
	for i, s := range samples {
		if s.Label == "" {
			return fmt.Errorf("sample %d: label is required", i)
		}
		if seen[s.Label] {
			return fmt.Errorf("sample %q listed twice", s.Label)
		}
		seen[s.Label] = true

		switch s.Role {
		case events.RoleSignal:
			nSignal++
		case events.RoleBackground:
			nBackground++
		default:
			return fmt.Errorf("sample %q: unknown role %q", s.Label, s.Role)
		}
	}
	if nSignal != 1 {
		return fmt.Errorf("exactly one signal sample is required, got %d", nSignal)
	}
	if nBackground == 0 {
		return fmt.Errorf("at least one background sample is required")
	}
	return nil
}

// Grid returns the cut grid described by the config.
func (c *ScanConfig) Grid() cutscan.Grid {
	return cutscan.Grid{NCuts: c.GetNCuts(), Min: c.GetCutMin(), Max: c.GetCutMax()}
}

// Binning returns the histogram binning described by the config.
func (c *ScanConfig) Binning() histogram.Binning {
	return histogram.Binning{NBins: c.GetHistBins(), Min: c.GetHistMin(), Max: c.GetHistMax()}
}

// Signal returns the signal sample, or false if none is configured.
func (c *ScanConfig) Signal() (SampleConfig, bool) {
	for _, s := range c.Samples {
		if s.Role == events.RoleSignal {
			return s, true
		}
	}
	return SampleConfig{}, false
}

// Backgrounds returns the background samples in configured order.
func (c *ScanConfig) Backgrounds() []SampleConfig {
	var out []SampleConfig
	for _, s := range c.Samples {
		if s.Role == events.RoleBackground {
			out = append(out, s)
		}
	}
	return out
}

// Titles maps sample labels to their configured legend titles.
func (c *ScanConfig) Titles() map[string]string {
	out := make(map[string]string, len(c.Samples))
	for _, s := range c.Samples {
		if s.Title != "" {
			out[s.Label] = s.Title
		}
	}
	return out
}

// GetNCuts returns the n_cuts value or the default.
func (c *ScanConfig) GetNCuts() int {
	if c.NCuts == nil {
		return cutscan.DefaultNCuts
	}
	return *c.NCuts
}

// GetCutMin returns the cut_min value or the default.
func (c *ScanConfig) GetCutMin() float64 {
	if c.CutMin == nil {
		return cutscan.DefaultCutMin
	}
	return *c.CutMin
}

// GetCutMax returns the cut_max value or the default.
func (c *ScanConfig) GetCutMax() float64 {
	if c.CutMax == nil {
		return cutscan.DefaultCutMax
	}
	return *c.CutMax
}

// GetHistBins returns the hist_bins value or the default.
func (c *ScanConfig) GetHistBins() int {
	if c.HistBins == nil {
		return histogram.DefaultBinning().NBins
	}
	return *c.HistBins
}

// GetHistMin returns the hist_min value or the default.
func (c *ScanConfig) GetHistMin() float64 {
	if c.HistMin == nil {
		return histogram.DefaultBinning().Min
	}
	return *c.HistMin
}

// GetHistMax returns the hist_max value or the default.
func (c *ScanConfig) GetHistMax() float64 {
	if c.HistMax == nil {
		return histogram.DefaultBinning().Max
	}
	return *c.HistMax
}

// GetReferenceCut returns the reference_cut value or the default.
func (c *ScanConfig) GetReferenceCut() float64 {
	if c.ReferenceCut == nil {
		return DefaultReferenceCut
	}
	return *c.ReferenceCut
}

// GetScoreColumn returns the score_column value or the default.
func (c *ScanConfig) GetScoreColumn() string {
	if c.ScoreColumn == nil || *c.ScoreColumn == "" {
		return events.DefaultScoreColumn
	}
	return *c.ScoreColumn
}

// GetOutputDir returns the output_dir value or the default.
func (c *ScanConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return DefaultOutputDir
	}
	return *c.OutputDir
}

// GetEventDB returns the event_db path, empty when samples come from CSV.
func (c *ScanConfig) GetEventDB() string {
	if c.EventDB == nil {
		return ""
	}
	return *c.EventDB
}
