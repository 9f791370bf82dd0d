package events

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSample(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty label", func(t *testing.T) {
		t.Parallel()
		_, err := NewSample("", []float64{1})
		assert.Error(t, err)
	})

	t.Run("rejects NaN scores", func(t *testing.T) {
		t.Parallel()
		_, err := NewSample("signal", []float64{0.1, math.NaN()})
		assert.Error(t, err)
	})

	t.Run("does not alias caller slice", func(t *testing.T) {
		t.Parallel()
		in := []float64{0.3, -0.1}
		s, err := NewSample("signal", in)
		require.NoError(t, err)
		in[0] = -5

		n, err := s.CountAbove(0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestSample_CountAbove(t *testing.T) {
	t.Parallel()

	s, err := NewSample("signal", []float64{0.5, 0.6, 0.9, -0.2})
	require.NoError(t, err)

	testCases := []struct {
		name      string
		threshold float64
		want      int64
	}{
		{"below range", -10, 4},
		{"negative infinity", math.Inf(-1), 4},
		{"between", 0.25, 3},
		{"strict at score", 0.5, 2},
		{"strict at max", 0.9, 0},
		{"above range", 10, 0},
		{"positive infinity", math.Inf(1), 0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := s.CountAbove(tc.threshold)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSample_CountAbove_Duplicates(t *testing.T) {
	s, err := NewSample("bkg", []float64{0.2, 0.2, 0.2, 0.1})
	require.NoError(t, err)

	n, err := s.CountAbove(0.2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = s.CountAbove(0.19)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSample_CountAbove_NaNThreshold(t *testing.T) {
	s, err := NewSample("signal", []float64{0.1})
	require.NoError(t, err)

	_, err = s.CountAbove(math.NaN())
	assert.Error(t, err)
}

func TestSample_TotalMatchesCountAboveNegInf(t *testing.T) {
	s, err := NewSample("signal", []float64{-1, 0, 1, 1e9, -1e9})
	require.NoError(t, err)

	total, err := s.Total()
	require.NoError(t, err)
	all, err := s.CountAbove(math.Inf(-1))
	require.NoError(t, err)
	assert.Equal(t, total, all)
	assert.Equal(t, int64(5), total)
}

func TestSample_CountAboveNonIncreasing(t *testing.T) {
	s, err := NewSample("signal", []float64{-0.9, -0.4, -0.4, 0, 0.2, 0.7, 0.99})
	require.NoError(t, err)

	prev := int64(math.MaxInt64)
	for thr := -1.0; thr <= 1.0; thr += 0.05 {
		n, err := s.CountAbove(thr)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, prev, "threshold %f", thr)
		prev = n
	}
}

func TestSample_Nil(t *testing.T) {
	var s *Sample
	_, err := s.CountAbove(0)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	_, err = s.Total()
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	_, err = s.Scores()
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Equal(t, "", s.Label())
}

func TestSample_ScoresSortedCopy(t *testing.T) {
	s, err := NewSample("signal", []float64{0.3, -0.2, 0.1})
	require.NoError(t, err)

	scores, err := s.Scores()
	require.NoError(t, err)
	assert.Equal(t, []float64{-0.2, 0.1, 0.3}, scores)

	scores[0] = 42
	again, err := s.Scores()
	require.NoError(t, err)
	assert.Equal(t, -0.2, again[0])
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("signal")
	require.NoError(t, err)
	assert.Equal(t, RoleSignal, r)

	r, err = ParseRole("background")
	require.NoError(t, err)
	assert.Equal(t, RoleBackground, r)

	_, err = ParseRole("data")
	assert.Error(t, err)
}
