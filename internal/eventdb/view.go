package eventdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/banshee-data/cutscan/internal/events"
)

// SampleView answers counting queries for one stored sample directly in SQL.
// Every query error is reported as events.ErrSourceUnavailable.
type SampleView struct {
	store *Store
	meta  SampleMeta
}

// Sample looks up label. An unknown label is events.ErrSourceUnavailable.
func (s *Store) Sample(ctx context.Context, label string) (*SampleView, error) {
	var meta SampleMeta
	var role string
	err := s.QueryRowContext(ctx, `
		SELECT sample_id, label, role, title, source_path
		FROM samples WHERE label = ?
	`, label).Scan(&meta.ID, &meta.Label, &role, &meta.Title, &meta.SourcePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sample %q not found in event store: %w", label, events.ErrSourceUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("sample %q: %v: %w", label, err, events.ErrSourceUnavailable)
	}
	meta.Role = events.Role(role)
	return &SampleView{store: s, meta: meta}, nil
}

// Label returns the sample label.
func (v *SampleView) Label() string { return v.meta.Label }

// Role returns the stored sample role.
func (v *SampleView) Role() events.Role { return v.meta.Role }

// Title returns the display title, falling back to the label.
func (v *SampleView) Title() string {
	if v.meta.Title != "" {
		return v.meta.Title
	}
	return v.meta.Label
}

// CountAbove counts events with score strictly greater than threshold.
func (v *SampleView) CountAbove(threshold float64) (int64, error) {
	var n int64
	err := v.store.QueryRow(`SELECT COUNT(*) FROM events WHERE sample_id = ? AND score > ?`, v.meta.ID, threshold).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count above %g: %v: %w", threshold, err, events.ErrSourceUnavailable)
	}
	return n, nil
}

// Total counts all events of the sample.
func (v *SampleView) Total() (int64, error) {
	var n int64
	err := v.store.QueryRow(`SELECT COUNT(*) FROM events WHERE sample_id = ?`, v.meta.ID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("total: %v: %w", err, events.ErrSourceUnavailable)
	}
	return n, nil
}

// Scores returns all scores in ascending order.
func (v *SampleView) Scores() ([]float64, error) {
	rows, err := v.store.Query(`SELECT score FROM events WHERE sample_id = ? ORDER BY score`, v.meta.ID)
	if err != nil {
		return nil, fmt.Errorf("scores: %v: %w", err, events.ErrSourceUnavailable)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scores: %v: %w", err, events.ErrSourceUnavailable)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scores: %v: %w", err, events.ErrSourceUnavailable)
	}
	return out, nil
}

// Load reads the sample into memory so a long scan costs one query.
func (v *SampleView) Load() (*events.Sample, error) {
	scores, err := v.Scores()
	if err != nil {
		return nil, fmt.Errorf("sample %q: %w", v.meta.Label, err)
	}
	return events.NewSample(v.meta.Label, scores)
}
