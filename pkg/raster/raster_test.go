package raster

import (
	"testing"

	"github.com/project-spencer/nadir/pkg/model"
)

func TestGridGT(t *testing.T) {
	c := model.NewCFactorGrid(
		[]float64{402460, 407460, 412460},
		[]float64{5597540, 5592540},
		32633,
	)

	gt := gridGT(c)

	// the geotransform origin is the upper left cell corner, half a cell
	// outside the first center
	want := [6]float64{399960, 5000, 0, 5600040, 0, -5000}

	if gt != want {
		t.Errorf("gridGT=%v; want %v", gt, want)
	}
}

func TestImageCoords(t *testing.T) {
	img := &Image{
		W:  3,
		H:  2,
		GT: [6]float64{399960, 10, 0, 5600040, 0, -10},
	}

	x := img.XCoords()
	y := img.YCoords()

	if x[0] != 399965 || x[2] != 399985 {
		t.Errorf("x coords %v; want pixel centers from 399965 step 10", x)
	}

	if y[0] != 5600035 || y[1] != 5600025 {
		t.Errorf("y coords %v; want pixel centers from 5600035 step -10", y)
	}
}
