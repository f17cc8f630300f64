package cfactor

import (
	"github.com/project-spencer/nadir/pkg/angles"
	"github.com/project-spencer/nadir/pkg/model"
	"github.com/project-spencer/nadir/pkg/raster"
	"github.com/project-spencer/nadir/pkg/stac"
)

var warpGrid = raster.WarpGrid

// FromItem computes the extrapolated c-factor grid of a catalog item,
// reprojected to the target CRS when the tile's native CRS differs.
func FromItem(item *stac.Item, targetEPSG int, f angles.Fetcher) (*model.CFactorGrid, error) {
	ref, err := item.GranuleMetadata()

	if err != nil {
		return nil, err
	}

	c, err := FromMetadata(f, ref)

	if err != nil {
		return nil, err
	}

	c, err = Extrapolate(c)

	if err != nil {
		return nil, err
	}

	if item.EPSG() != targetEPSG {
		c, err = warpGrid(c, targetEPSG)

		if err != nil {
			return nil, err
		}
	}

	return c, nil
}
