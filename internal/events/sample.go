// Package events holds labeled collections of classifier-scored events and
// answers the counting queries the cut scan is built on.
package events

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrSourceUnavailable is returned when a sample cannot be read or queried.
// It is fatal for a scan: every sample must be present.
var ErrSourceUnavailable = errors.New("source unavailable")

// Role distinguishes the signal sample from background processes.
type Role string

const (
	RoleSignal     Role = "signal"
	RoleBackground Role = "background"
)

// ParseRole converts a config string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSignal, RoleBackground:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown sample role %q (must be signal or background)", s)
	}
}

// Sample is an immutable in-memory collection of event scores.
// Scores are sorted once on construction so each count is a binary search.
type Sample struct {
	label  string
	scores []float64
}

// NewSample copies scores and returns a sample ready for counting.
// NaN scores are rejected: they compare false against every threshold and
// would make Total disagree with CountAbove(-Inf).
func NewSample(label string, scores []float64) (*Sample, error) {
	if label == "" {
		return nil, fmt.Errorf("sample label must not be empty")
	}
	sorted := make([]float64, len(scores))
	for i, s := range scores {
		if math.IsNaN(s) {
			return nil, fmt.Errorf("sample %q: event %d has NaN score", label, i)
		}
		sorted[i] = s
	}
	sort.Float64s(sorted)
	return &Sample{label: label, scores: sorted}, nil
}

// Label returns the sample label.
func (s *Sample) Label() string {
	if s == nil {
		return ""
	}
	return s.label
}

// CountAbove returns the number of events with score strictly greater than
// threshold.
func (s *Sample) CountAbove(threshold float64) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("nil sample: %w", ErrSourceUnavailable)
	}
	if math.IsNaN(threshold) {
		return 0, fmt.Errorf("sample %q: NaN threshold", s.label)
	}
	// first index whose score is > threshold
	idx := sort.Search(len(s.scores), func(i int) bool {
		return s.scores[i] > threshold
	})
	return int64(len(s.scores) - idx), nil
}

// Total returns the number of events in the sample.
func (s *Sample) Total() (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("nil sample: %w", ErrSourceUnavailable)
	}
	return int64(len(s.scores)), nil
}

// Scores returns a copy of the sorted scores, for histogramming.
func (s *Sample) Scores() ([]float64, error) {
	if s == nil {
		return nil, fmt.Errorf("nil sample: %w", ErrSourceUnavailable)
	}
	out := make([]float64, len(s.scores))
	copy(out, s.scores)
	return out, nil
}
