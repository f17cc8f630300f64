// Package cfactor derives the per-band c-factor, the ratio of nadir-view to
// observed-view BRDF, from tile geometry.
package cfactor

import (
	"runtime"
	"sync"

	"github.com/project-spencer/nadir/pkg/angles"
	"github.com/project-spencer/nadir/pkg/kernel"
	"github.com/project-spencer/nadir/pkg/model"
)

// CFactor computes the correction ratio for one band, elementwise over the
// given geometry: the BRDF with the view zenith forced to nadir, divided by
// the BRDF of the observed geometry. With viewZenith all zero the result is
// exactly one everywhere.
func CFactor(band model.Band, sunZenith, viewZenith, relAzimuth []float64) []float64 {
	nadir := make([]float64, len(viewZenith))

	num := kernel.BRDF(band, sunZenith, nadir, relAzimuth)
	den := kernel.BRDF(band, sunZenith, viewZenith, relAzimuth)

	for i := range num {
		num[i] /= den[i]
	}

	return num
}

// FromAngles computes the c-factor grid from an angle grid. The sun zenith is
// shared across bands, each band contributes its own view zenith, and the
// relative azimuth is sun azimuth minus band azimuth. Bands are computed in
// parallel and assembled by index, so the canonical order is kept.
func FromAngles(g *model.AngleGrid) *model.CFactorGrid {
	c := model.NewCFactorGrid(g.X, g.Y, g.EPSG)

	sunZen := g.Sun(model.Zenith)
	sunAz := g.Sun(model.Azimuth)

	limiter := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup

	for i, band := range model.AllBands {
		limiter <- struct{}{}
		wg.Add(1)

		go func(i int, band model.Band) {
			defer func() { <-limiter; wg.Done() }()

			viewZen := g.Band(band, model.Zenith)
			viewAz := g.Band(band, model.Azimuth)

			phi := make([]float64, len(sunAz))
			for j := range phi {
				phi[j] = sunAz[j] - viewAz[j]
			}

			copy(c.Plane(i), CFactor(band, sunZen, viewZen, phi))
		}(i, band)
	}

	wg.Wait()

	return c
}

// FromMetadata computes the c-factor grid straight from a tile metadata
// reference.
func FromMetadata(f angles.Fetcher, ref string) (*model.CFactorGrid, error) {
	grid, err := angles.ExtractAnglesFrom(f, ref)

	if err != nil {
		return nil, err
	}

	return FromAngles(grid), nil
}
