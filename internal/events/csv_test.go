package events

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	t.Parallel()

	t.Run("default column", func(t *testing.T) {
		t.Parallel()
		in := "pt1,BDT_score,mll\n10,0.5,80\n11,-0.2,91\n12,0.9,70\n"
		s, err := ReadCSV(strings.NewReader(in), "signal", "")
		require.NoError(t, err)

		total, err := s.Total()
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)

		n, err := s.CountAbove(0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("custom column with spaces", func(t *testing.T) {
		t.Parallel()
		in := "id, score\n1, 0.25\n2, -0.75\n"
		s, err := ReadCSV(strings.NewReader(in), "bkg", "score")
		require.NoError(t, err)
		scores, err := s.Scores()
		require.NoError(t, err)
		assert.Equal(t, []float64{-0.75, 0.25}, scores)
	})

	t.Run("header only yields empty sample", func(t *testing.T) {
		t.Parallel()
		s, err := ReadCSV(strings.NewReader("BDT_score\n"), "bkg", "")
		require.NoError(t, err)
		total, err := s.Total()
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	errorCases := []struct {
		name string
		in   string
	}{
		{"empty input", ""},
		{"missing column", "a,b\n1,2\n"},
		{"bad score", "BDT_score\n0.1\nabc\n"},
		{"blank score", "BDT_score,x\n,1\n"},
	}
	for _, tc := range errorCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadCSV(strings.NewReader(tc.in), "signal", "")
			assert.Error(t, err)
		})
	}
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ww_signal.csv")
	require.NoError(t, os.WriteFile(path, []byte("BDT_score\n0.1\n0.2\n"), 0o644))

	s, err := LoadCSV(path, "signal", "")
	require.NoError(t, err)
	assert.Equal(t, "signal", s.Label())

	_, err = LoadCSV(filepath.Join(dir, "missing.csv"), "ttbar", "")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "ttbar")
}
