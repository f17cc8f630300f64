package nbar

import (
	"errors"
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/project-spencer/nadir/pkg/angles"
	"github.com/project-spencer/nadir/pkg/cfactor"
	"github.com/project-spencer/nadir/pkg/model"
	"github.com/project-spencer/nadir/pkg/stac"
)

// A Cube is a time series of multi-band reflectance on a common pixel grid,
// strided (time, band, y, x). IDs aligns each timestep to a catalog scene.
type Cube struct {
	IDs   []string
	Times []time.Time // optional, same length as IDs when set
	Bands []model.Band
	X, Y  []float64
	EPSG  int
	Data  []float64
}

func NewCube(ids []string, bands []model.Band, x, y []float64, epsg int) *Cube {
	return &Cube{
		IDs:   ids,
		Bands: bands,
		X:     x,
		Y:     y,
		EPSG:  epsg,
		Data:  make([]float64, len(ids)*len(bands)*len(y)*len(x)),
	}
}

// Plane returns one (timestep, band) slice of the cube.
func (c *Cube) Plane(t, b int) []float64 {
	n := len(c.X) * len(c.Y)
	off := (t*len(c.Bands) + b) * n

	return c.Data[off : off+n]
}

// A CubeSource resolves a scene id to its catalog item. It is the narrow
// seam to the catalog collaborator; stac.Client plus ItemMap gives the usual
// implementation.
type CubeSource interface {
	Item(id string) (*stac.Item, error)
}

// MapSource serves items from a pre-fetched map.
type MapSource map[string]*stac.Item

func (m MapSource) Item(id string) (*stac.Item, error) {
	it, ok := m[id]

	if !ok {
		return nil, fmt.Errorf("no catalog item for scene %s", id)
	}

	return it, nil
}

// per-timestep outcome of the c-factor derivation
type timestep struct {
	dropped bool
	err     error
	offset  float64
	planes  [][]float64 // one resampled c-factor plane per cube band
}

// CorrectCube corrects a reflectance cube. For each timestep the scene's
// c-factor is derived, extrapolated and resampled onto the cube grid. A
// timestep whose metadata is missing a band's angles is dropped with a
// warning instead of failing the series; every other error aborts. The
// returned cube keeps the surviving timesteps in their original relative
// order.
func CorrectCube(cube *Cube, src CubeSource, f angles.Fetcher) (*Cube, error) {
	steps := make([]timestep, len(cube.IDs))

	limiter := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup

	for i := range cube.IDs {
		limiter <- struct{}{}
		wg.Add(1)

		go func(i int) {
			defer func() { <-limiter; wg.Done() }()

			steps[i] = correctTimestep(cube, src, f, i)
		}(i)
	}

	wg.Wait()

	// fold into kept timesteps and excluded indices; assembly is by original
	// index, so the parallel derivation above cannot reorder anything
	kept := make([]int, 0, len(steps))

	for i, st := range steps {
		if st.err != nil {
			return nil, fmt.Errorf("timestep %d (%s): %s", i, cube.IDs[i], st.err)
		}

		if st.dropped {
			continue
		}

		kept = append(kept, i)
	}

	out := NewCube(make([]string, len(kept)), cube.Bands, cube.X, cube.Y, cube.EPSG)

	if len(cube.Times) == len(cube.IDs) {
		out.Times = make([]time.Time, len(kept))
	}

	for k, i := range kept {
		out.IDs[k] = cube.IDs[i]

		if out.Times != nil {
			out.Times[k] = cube.Times[i]
		}

		st := steps[i]

		for b := range cube.Bands {
			in := cube.Plane(i, b)
			dst := out.Plane(k, b)
			cf := st.planes[b]

			for j, v := range in {
				if v == 0 {
					dst[j] = math.NaN()
					continue
				}

				dst[j] = (v + st.offset) * cf[j]
			}
		}
	}

	return out, nil
}

func correctTimestep(cube *Cube, src CubeSource, f angles.Fetcher, i int) timestep {
	item, err := src.Item(cube.IDs[i])

	if err != nil {
		return timestep{err: err}
	}

	c, err := cfactor.FromItem(item, cube.EPSG, f)

	if err != nil {
		var iae *angles.IncompleteAngleError

		if errors.As(err, &iae) {
			log.Printf("dropping timestep %d (%s): %s", i, cube.IDs[i], err)
			return timestep{dropped: true}
		}

		return timestep{err: err}
	}

	baseline, err := item.ProcessingBaseline()

	if err != nil {
		return timestep{err: err}
	}

	planes := make([][]float64, len(cube.Bands))
	for b, band := range cube.Bands {
		planes[b] = ResampleBand(c, band, cube.X, cube.Y)
	}

	return timestep{offset: baseline.Offset(), planes: planes}
}
