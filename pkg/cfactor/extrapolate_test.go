package cfactor

import (
	"errors"
	"math"
	"testing"

	"github.com/project-spencer/nadir/pkg/model"
)

func testCFactorGrid() *model.CFactorGrid {
	x := make([]float64, model.GridSize)
	y := make([]float64, model.GridSize)

	for i := 0; i < model.GridSize; i++ {
		x[i] = 402460 + model.GridStep*float64(i)
		y[i] = 5597540 - model.GridStep*float64(i)
	}

	return model.NewCFactorGrid(x, y, 32633)
}

func TestExtrapolateFillsGaps(t *testing.T) {
	c := testCFactorGrid()

	for i := range model.AllBands {
		p := c.Plane(i)

		for j := range p {
			// left half valid with a gradient, right half missing
			if j%model.GridSize < 12 {
				p[j] = 1 + float64(j)/1000
			} else {
				p[j] = math.NaN()
			}
		}
	}

	out, err := Extrapolate(c)

	if err != nil {
		t.Fatalf("Extrapolate: %s", err)
	}

	for i, band := range model.AllBands {
		in := c.Plane(i)
		p := out.Plane(i)

		for j, v := range p {
			if math.IsNaN(v) {
				t.Fatalf("band %s cell %d still NaN", band, j)
			}

			if !math.IsNaN(in[j]) && v != in[j] {
				t.Errorf("band %s cell %d: valid cell changed from %g to %g", band, j, in[j], v)
			}
		}

		// a missing cell takes the value of its nearest valid neighbor, which
		// for column 12 is column 11 of the same row
		row := 3
		want := in[row*model.GridSize+11]
		if got := p[row*model.GridSize+12]; got != want {
			t.Errorf("band %s: filled cell=%g; want nearest neighbor %g", band, got, want)
		}
	}
}

func TestExtrapolateIdempotent(t *testing.T) {
	c := testCFactorGrid()

	for i := range model.AllBands {
		p := c.Plane(i)
		for j := range p {
			if (i+j)%7 == 0 {
				p[j] = math.NaN()
			} else {
				p[j] = 0.9 + float64(j%13)/100
			}
		}
	}

	once, err := Extrapolate(c)
	if err != nil {
		t.Fatalf("Extrapolate: %s", err)
	}

	twice, err := Extrapolate(once)
	if err != nil {
		t.Fatalf("Extrapolate (again): %s", err)
	}

	for i := range once.Data {
		if once.Data[i] != twice.Data[i] {
			t.Fatalf("cell %d changed on re-run: %g -> %g", i, once.Data[i], twice.Data[i])
		}
	}
}

func TestExtrapolateEmptyBand(t *testing.T) {
	c := testCFactorGrid()

	for i := range model.AllBands {
		p := c.Plane(i)
		for j := range p {
			p[j] = 1
		}
	}

	// B05 has nothing to extrapolate from
	b05 := c.Plane(model.BandIndex(model.B05))
	for j := range b05 {
		b05[j] = math.NaN()
	}

	_, err := Extrapolate(c)

	var ebe *EmptyBandError
	if !errors.As(err, &ebe) {
		t.Fatalf("err=%v; want EmptyBandError", err)
	}

	if ebe.Band != model.B05 {
		t.Errorf("failed band %s; want B05", ebe.Band)
	}
}
