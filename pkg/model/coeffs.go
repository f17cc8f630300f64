package model

import "fmt"

// Coefficients are the fixed kernel weights of the semi-empirical BRDF model
// for one spectral band: isotropic, volumetric (Ross-Thick) and geometric
// (Li-Sparse-Reciprocal).
type Coefficients struct {
	Iso float64
	Vol float64
	Geo float64
}

// BandCoefficients holds the per-band kernel weights, spectrally interpolated
// from the MODIS-derived values of Roy et al. to the MSI band set. The table
// is static calibration data, not something this system derives.
var BandCoefficients = map[Band]Coefficients{
	B01: {Iso: 0.0774, Vol: 0.0372, Geo: 0.0079},
	B02: {Iso: 0.0774, Vol: 0.0372, Geo: 0.0079},
	B03: {Iso: 0.1306, Vol: 0.0580, Geo: 0.0178},
	B04: {Iso: 0.1690, Vol: 0.0574, Geo: 0.0227},
	B05: {Iso: 0.2085, Vol: 0.0845, Geo: 0.0256},
	B06: {Iso: 0.2316, Vol: 0.1003, Geo: 0.0273},
	B07: {Iso: 0.2599, Vol: 0.1197, Geo: 0.0294},
	B08: {Iso: 0.3093, Vol: 0.1535, Geo: 0.0330},
	B8A: {Iso: 0.3093, Vol: 0.1535, Geo: 0.0330},
	B09: {Iso: 0.3093, Vol: 0.1535, Geo: 0.0330},
	B10: {Iso: 0.3093, Vol: 0.1535, Geo: 0.0330},
	B11: {Iso: 0.3430, Vol: 0.1154, Geo: 0.0330},
	B12: {Iso: 0.2658, Vol: 0.0639, Geo: 0.0012},
}

func init() {
	// the coefficient table and the canonical band list must agree exactly
	if len(BandCoefficients) != len(AllBands) {
		panic(fmt.Sprintf("model: coefficient table has %d bands, want %d", len(BandCoefficients), len(AllBands)))
	}

	for _, b := range AllBands {
		if _, ok := BandCoefficients[b]; !ok {
			panic(fmt.Sprintf("model: no coefficients for band %s", b))
		}
	}
}
