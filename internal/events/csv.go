package events

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/cutscan/internal/monitoring"
)

// DefaultScoreColumn is the column written by the BDT application step.
const DefaultScoreColumn = "BDT_score"

// ReadCSV reads a header-prefixed CSV stream and returns a sample built from
// the named score column. Blank score cells and unparsable values are errors;
// a sample with silently dropped events would bias every efficiency.
func ReadCSV(r io.Reader, label, column string) (*Sample, error) {
	if column == "" {
		column = DefaultScoreColumn
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("sample %q: empty CSV, missing header", label)
	}
	if err != nil {
		return nil, fmt.Errorf("sample %q: read header: %w", label, err)
	}

	col := -1
	for i, h := range header {
		if strings.TrimSpace(h) == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("sample %q: column %q not found in header %v", label, column, header)
	}

	var scores []float64
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("sample %q: line %d: %w", label, line, err)
		}
		if col >= len(record) {
			return nil, fmt.Errorf("sample %q: line %d: missing %s column", label, line, column)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return nil, fmt.Errorf("sample %q: line %d: invalid score %q: %w", label, line, record[col], err)
		}
		scores = append(scores, v)
	}

	return NewSample(label, scores)
}

// LoadCSV opens path and reads it with ReadCSV. A missing or unreadable file
// is reported as ErrSourceUnavailable.
func LoadCSV(path, label, column string) (*Sample, error) {
	cleanPath := filepath.Clean(path)
	f, err := os.Open(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("sample %q: %s does not exist: %w", label, cleanPath, ErrSourceUnavailable)
		}
		return nil, fmt.Errorf("sample %q: open %s: %v: %w", label, cleanPath, err, ErrSourceUnavailable)
	}
	defer f.Close()

	s, err := ReadCSV(f, label, column)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("loaded sample %s: %d events from %s", label, len(s.scores), cleanPath)
	return s, nil
}
