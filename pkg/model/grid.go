package model

import (
	"github.com/paulmach/orb"
)

// The viewing and illumination angles of a tile come on a fixed coarse grid:
// 23x23 cells of 5000 m, anchored to the geocoded upper left corner of the
// tile, values located at cell centers.
const (
	GridSize = 23
	GridStep = 5000.0
)

type Angle int

const (
	Zenith Angle = iota
	Azimuth
)

// An AngleGrid holds the sun angles and the per-band view angles of one tile
// on the coarse grid, in degrees. Subject 0 is the sun, subject 1+i is
// AllBands[i]. Data is strided (subject, angle, row, col).
type AngleGrid struct {
	Data []float64
	X    []float64 // cell center eastings, ascending
	Y    []float64 // cell center northings, descending
	EPSG int
}

// NumSubjects is the sun plus the 13 bands.
func NumSubjects() int { return 1 + len(AllBands) }

func NewAngleGrid(ulx, uly float64, epsg int) *AngleGrid {
	g := &AngleGrid{
		Data: make([]float64, NumSubjects()*2*GridSize*GridSize),
		X:    make([]float64, GridSize),
		Y:    make([]float64, GridSize),
		EPSG: epsg,
	}

	for i := 0; i < GridSize; i++ {
		g.X[i] = ulx + GridStep/2 + GridStep*float64(i)
		g.Y[i] = uly - GridStep/2 - GridStep*float64(i)
	}

	return g
}

// Plane returns the 23x23 cell values of one subject and angle type as a
// row-major slice backed by the grid.
func (g *AngleGrid) Plane(subject int, a Angle) []float64 {
	off := (subject*2 + int(a)) * GridSize * GridSize
	return g.Data[off : off+GridSize*GridSize]
}

func (g *AngleGrid) Sun(a Angle) []float64 {
	return g.Plane(0, a)
}

func (g *AngleGrid) Band(b Band, a Angle) []float64 {
	return g.Plane(1+BandIndex(b), a)
}

// A CFactorGrid holds the per-band multiplicative correction ratios, band
// major over (band, y, x). It starts out on the same coarse grid as the
// AngleGrid it was derived from; reprojection may change the raster shape.
type CFactorGrid struct {
	NY, NX int
	Data   []float64
	X      []float64
	Y      []float64
	EPSG   int
}

func NewCFactorGrid(x, y []float64, epsg int) *CFactorGrid {
	return &CFactorGrid{
		NY:   len(y),
		NX:   len(x),
		Data: make([]float64, len(AllBands)*len(y)*len(x)),
		X:    x,
		Y:    y,
		EPSG: epsg,
	}
}

// Plane returns the values of one band as a row-major slice backed by the
// grid. Band order is AllBands.
func (c *CFactorGrid) Plane(band int) []float64 {
	off := band * c.NY * c.NX
	return c.Data[off : off+c.NY*c.NX]
}

// Extent is the outer edge of the grid cells, not the cell centers.
func (c *CFactorGrid) Extent() orb.Bound {
	dx := c.X[1] - c.X[0]
	dy := c.Y[0] - c.Y[1]

	return orb.Bound{
		Min: orb.Point{c.X[0] - dx/2, c.Y[len(c.Y)-1] - dy/2},
		Max: orb.Point{c.X[len(c.X)-1] + dx/2, c.Y[0] + dy/2},
	}
}

// A ProcessingBaseline marks the version of the upstream product generation.
// From baseline 04.00 on, all digital numbers are shifted by +1000 and the
// shift has to be reversed before correction.
type ProcessingBaseline float64

func (p ProcessingBaseline) Harmonized() bool {
	return p >= 4.0
}

// Offset is the digital number offset to apply before correction.
func (p ProcessingBaseline) Offset() float64 {
	if p.Harmonized() {
		return -1000
	}

	return 0
}
