package cfactor

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/project-spencer/nadir/pkg/model"
)

// An EmptyBandError reports a band with no valid cell to extrapolate from.
type EmptyBandError struct {
	Band model.Band
}

func (e *EmptyBandError) Error() string {
	return fmt.Sprintf("cannot extrapolate band %s: no valid cells", e.Band)
}

// cell is a kd-tree node carrying the c-factor value of a valid grid cell at
// its map coordinates.
type cell struct {
	x, y float64
	val  float64
}

func (c cell) Compare(o kdtree.Comparable, d kdtree.Dim) float64 {
	q := o.(cell)
	if d == 0 {
		return c.x - q.x
	}
	return c.y - q.y
}

func (c cell) Dims() int { return 2 }

func (c cell) Distance(o kdtree.Comparable) float64 {
	q := o.(cell)
	dx, dy := c.x-q.x, c.y-q.y
	return dx*dx + dy*dy
}

type cells []cell

func (c cells) Index(i int) kdtree.Comparable         { return c[i] }
func (c cells) Len() int                              { return len(c) }
func (c cells) Slice(start, end int) kdtree.Interface { return c[start:end] }
func (c cells) Pivot(d kdtree.Dim) int                { return cellPlane{Dim: d, cells: c}.Pivot() }

type cellPlane struct {
	kdtree.Dim
	cells
}

func (p cellPlane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.cells[i].x < p.cells[j].x
	}
	return p.cells[i].y < p.cells[j].y
}

func (p cellPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p cellPlane) Slice(start, end int) kdtree.SortSlicer {
	p.cells = p.cells[start:end]
	return p
}

func (p cellPlane) Swap(i, j int) {
	p.cells[i], p.cells[j] = p.cells[j], p.cells[i]
}

func extrapolatePlane(in, out []float64, x, y []float64, band model.Band) error {
	nx := len(x)

	valid := make(cells, 0, len(in))
	for i, v := range in {
		if !math.IsNaN(v) {
			valid = append(valid, cell{x: x[i%nx], y: y[i/nx], val: v})
		}
	}

	if len(valid) == 0 {
		return &EmptyBandError{Band: band}
	}

	if len(valid) == len(in) {
		copy(out, in)
		return nil
	}

	tree := kdtree.New(valid, false)

	for i := range in {
		if !math.IsNaN(in[i]) {
			// nearest neighbor of a valid cell is itself
			out[i] = in[i]
			continue
		}

		got, _ := tree.Nearest(cell{x: x[i%nx], y: y[i/nx]})
		out[i] = got.(cell).val
	}

	return nil
}

// Extrapolate fills every NaN cell of the grid with the value of its nearest
// valid cell, band by band, and returns the filled grid as a new value. A
// band with no valid cell at all fails with an EmptyBandError. Running the
// result through Extrapolate again is a no-op.
func Extrapolate(c *model.CFactorGrid) (*model.CFactorGrid, error) {
	out := model.NewCFactorGrid(c.X, c.Y, c.EPSG)

	limiter := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup

	errs := make([]error, len(model.AllBands))

	for i, band := range model.AllBands {
		limiter <- struct{}{}
		wg.Add(1)

		go func(i int, band model.Band) {
			defer func() { <-limiter; wg.Done() }()

			errs[i] = extrapolatePlane(c.Plane(i), out.Plane(i), c.X, c.Y, band)
		}(i, band)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}
