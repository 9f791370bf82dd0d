package cutscan

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrid_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		grid    Grid
		wantErr bool
	}{
		{"default", DefaultGrid(), false},
		{"single bin", Grid{NCuts: 1, Min: -1, Max: 1}, false},
		{"zero cuts", Grid{NCuts: 0, Min: -1, Max: 1}, true},
		{"negative cuts", Grid{NCuts: -3, Min: -1, Max: 1}, true},
		{"empty range", Grid{NCuts: 10, Min: 1, Max: 1}, true},
		{"inverted range", Grid{NCuts: 10, Min: 1, Max: -1}, true},
		{"NaN min", Grid{NCuts: 10, Min: math.NaN(), Max: 1}, true},
		{"infinite max", Grid{NCuts: 10, Min: -1, Max: math.Inf(1)}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.grid.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidGridConfig) {
					t.Errorf("Validate() = %v, want ErrInvalidGridConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestGrid_Centers(t *testing.T) {
	g := Grid{NCuts: 4, Min: -1, Max: 1}
	assert.Equal(t, []float64{-0.75, -0.25, 0.25, 0.75}, g.Centers())
	assert.Equal(t, 0.5, g.Width())

	single := Grid{NCuts: 1, Min: -1, Max: 1}
	assert.Equal(t, []float64{0.0}, single.Centers())

	assert.Nil(t, Grid{}.Centers())
}

func TestGrid_CentersIncreasingWithinRange(t *testing.T) {
	grids := []Grid{
		DefaultGrid(),
		{NCuts: 7, Min: 0, Max: 1},
		{NCuts: 1000, Min: -3.5, Max: 12},
		{NCuts: 3, Min: 1e-9, Max: 2e-9},
	}
	for _, g := range grids {
		centers := g.Centers()
		if len(centers) != g.NCuts {
			t.Fatalf("%v: got %d centres", g, len(centers))
		}
		for i, c := range centers {
			if c < g.Min || c >= g.Max {
				t.Errorf("%v: centre %d = %v outside [%v, %v)", g, i, c, g.Min, g.Max)
			}
			if i > 0 && c <= centers[i-1] {
				t.Errorf("%v: centre %d = %v not above previous %v", g, i, c, centers[i-1])
			}
		}
	}
}
