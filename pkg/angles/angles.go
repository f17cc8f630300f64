// Package angles extracts sun and view geometry from Sentinel-2 tile
// metadata (MTD_TL.xml) and the processing baseline from the product
// metadata (MTD_MSIL2A.xml).
package angles

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/project-spencer/nadir/pkg/model"
)

// An IncompleteAngleError reports a band with no detector observation for at
// least one angle type. Single-scene callers treat it as fatal; the
// time-series path drops the affected timestep instead.
type IncompleteAngleError struct {
	Band model.Band
}

func (e *IncompleteAngleError) Error() string {
	return fmt.Sprintf("missing angles for band %s", e.Band)
}

// wire structs for the tile metadata; element names carry an n1 namespace
// prefix in the product, which the decoder matches by local name
type tileMetadata struct {
	Geocoding struct {
		HorizontalCS string        `xml:"HORIZONTAL_CS_CODE"`
		Geopositions []geoposition `xml:"Geoposition"`
	} `xml:"Geometric_Info>Tile_Geocoding"`
	Angles struct {
		Sun     anglePair      `xml:"Sun_Angles_Grid"`
		Viewing []detectorGrid `xml:"Viewing_Incidence_Angles_Grids"`
	} `xml:"Geometric_Info>Tile_Angles"`
}

type geoposition struct {
	Resolution int     `xml:"resolution,attr"`
	ULX        float64 `xml:"ULX"`
	ULY        float64 `xml:"ULY"`
}

type anglePair struct {
	Zenith  valuesGrid `xml:"Zenith"`
	Azimuth valuesGrid `xml:"Azimuth"`
}

type detectorGrid struct {
	BandID     int `xml:"bandId,attr"`
	DetectorID int `xml:"detectorId,attr"`
	anglePair
}

type valuesGrid struct {
	Rows []string `xml:"Values_List>VALUES"`
}

// parse one detector grid into a row-major 23x23 slice. The metadata encodes
// cells without coverage as "NaN", which ParseFloat handles.
func (v valuesGrid) values() ([]float64, error) {
	if len(v.Rows) != model.GridSize {
		return nil, fmt.Errorf("angle grid has %d rows, want %d", len(v.Rows), model.GridSize)
	}

	out := make([]float64, model.GridSize*model.GridSize)

	for i, row := range v.Rows {
		fields := strings.Fields(row)

		if len(fields) != model.GridSize {
			return nil, fmt.Errorf("angle grid row %d has %d columns, want %d", i, len(fields), model.GridSize)
		}

		for j, f := range fields {
			val, err := strconv.ParseFloat(f, 64)

			if err != nil {
				return nil, fmt.Errorf("angle grid row %d: %s", i, err)
			}

			out[i*model.GridSize+j] = val
		}
	}

	return out, nil
}

// nanMean reduces a list of same-shaped planes cell by cell, ignoring NaN. A
// cell with no valid observation in any plane stays NaN.
func nanMean(planes [][]float64, out []float64) {
	for i := range out {
		sum, n := 0.0, 0

		for _, p := range planes {
			if !math.IsNaN(p[i]) {
				sum += p[i]
				n++
			}
		}

		if n == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(n)
		}
	}
}

// ExtractAngles parses tile metadata into the coarse angle grid. Every band
// must contribute at least one detector observation for both angle types,
// otherwise an IncompleteAngleError is returned.
func ExtractAngles(r io.Reader) (*model.AngleGrid, error) {
	var md tileMetadata

	if err := xml.NewDecoder(r).Decode(&md); err != nil {
		return nil, fmt.Errorf("could not parse tile metadata: %s", err)
	}

	if len(md.Geocoding.Geopositions) == 0 {
		return nil, fmt.Errorf("tile metadata has no geoposition")
	}

	// the corner is identical across resolutions, take the first entry
	ulx := md.Geocoding.Geopositions[0].ULX
	uly := md.Geocoding.Geopositions[0].ULY

	epsg, err := model.ParseEPSG(md.Geocoding.HorizontalCS)

	if err != nil {
		return nil, err
	}

	// accumulate the per-detector planes band by band
	type accum struct {
		zenith  [][]float64
		azimuth [][]float64
	}
	acc := make([]accum, len(model.AllBands))

	for _, det := range md.Angles.Viewing {
		if det.BandID < 0 || det.BandID >= len(model.AllBands) {
			return nil, fmt.Errorf("tile metadata references unknown band id %d", det.BandID)
		}

		zen, err := det.Zenith.values()
		if err != nil {
			return nil, fmt.Errorf("band %s detector %d zenith: %s", model.AllBands[det.BandID], det.DetectorID, err)
		}

		az, err := det.Azimuth.values()
		if err != nil {
			return nil, fmt.Errorf("band %s detector %d azimuth: %s", model.AllBands[det.BandID], det.DetectorID, err)
		}

		acc[det.BandID].zenith = append(acc[det.BandID].zenith, zen)
		acc[det.BandID].azimuth = append(acc[det.BandID].azimuth, az)
	}

	sunZen, err := md.Angles.Sun.Zenith.values()
	if err != nil {
		return nil, fmt.Errorf("sun zenith: %s", err)
	}

	sunAz, err := md.Angles.Sun.Azimuth.values()
	if err != nil {
		return nil, fmt.Errorf("sun azimuth: %s", err)
	}

	grid := model.NewAngleGrid(ulx, uly, epsg)

	copy(grid.Sun(model.Zenith), sunZen)
	copy(grid.Sun(model.Azimuth), sunAz)

	for i, band := range model.AllBands {
		if len(acc[i].zenith) == 0 || len(acc[i].azimuth) == 0 {
			return nil, &IncompleteAngleError{Band: band}
		}

		nanMean(acc[i].zenith, grid.Band(band, model.Zenith))
		nanMean(acc[i].azimuth, grid.Band(band, model.Azimuth))
	}

	return grid, nil
}

// ExtractAnglesFrom fetches and parses the tile metadata reference.
func ExtractAnglesFrom(f Fetcher, ref string) (*model.AngleGrid, error) {
	r, err := f.Fetch(ref)

	if err != nil {
		return nil, err
	}
	defer r.Close()

	return ExtractAngles(r)
}

type userMetadata struct {
	Baseline string `xml:"General_Info>Product_Info>PROCESSING_BASELINE"`
}

// ProcessingBaseline reads the scene-level processing baseline from product
// metadata.
func ProcessingBaseline(r io.Reader) (model.ProcessingBaseline, error) {
	var md userMetadata

	if err := xml.NewDecoder(r).Decode(&md); err != nil {
		return 0, fmt.Errorf("could not parse product metadata: %s", err)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(md.Baseline), 64)

	if err != nil {
		return 0, fmt.Errorf("could not parse processing baseline %q: %s", md.Baseline, err)
	}

	return model.ProcessingBaseline(v), nil
}

func ProcessingBaselineFrom(f Fetcher, ref string) (model.ProcessingBaseline, error) {
	r, err := f.Fetch(ref)

	if err != nil {
		return 0, err
	}
	defer r.Close()

	return ProcessingBaseline(r)
}
