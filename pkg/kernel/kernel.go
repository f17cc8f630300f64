// Package kernel implements the two semi-empirical BRDF kernels of the
// RossThick-LiSparse-Reciprocal model and their weighted sum.
// See Roy et al., http://dx.doi.org/10.1016/j.rse.2016.01.023
package kernel

import (
	"math"

	"github.com/project-spencer/nadir/pkg/model"
)

// shape parameters of the geometric kernel, fixed for this model
const (
	br = 1.0
	hb = 2.0
)

// KvolAt computes the Ross-Thick volumetric kernel for one geometry. Angles
// are in degrees: sun zenith, view zenith, relative azimuth. Degenerate
// geometry (both zeniths at 90 deg) yields +-Inf and is not special-cased.
func KvolAt(sunZenith, viewZenith, relAzimuth float64) float64 {
	thetaI := sunZenith * math.Pi / 180
	thetaV := viewZenith * math.Pi / 180
	phi := relAzimuth * math.Pi / 180

	cosXi := math.Cos(thetaI)*math.Cos(thetaV) + math.Sin(thetaI)*math.Sin(thetaV)*math.Cos(phi)
	xi := math.Acos(cosXi)

	return ((math.Pi/2-xi)*cosXi+math.Sin(xi))/(math.Cos(thetaI)+math.Cos(thetaV)) - math.Pi/4
}

// KgeoAt computes the Li-Sparse-Reciprocal geometric kernel for one geometry,
// angles in degrees.
func KgeoAt(sunZenith, viewZenith, relAzimuth float64) float64 {
	thetaI := math.Atan(br * math.Tan(sunZenith*math.Pi/180))
	thetaV := math.Atan(br * math.Tan(viewZenith*math.Pi/180))
	phi := relAzimuth * math.Pi / 180

	cosXi := math.Cos(thetaI)*math.Cos(thetaV) + math.Sin(thetaI)*math.Sin(thetaV)*math.Cos(phi)

	tanI := math.Tan(thetaI)
	tanV := math.Tan(thetaV)
	secI := 1 / math.Cos(thetaI)
	secV := 1 / math.Cos(thetaV)

	d2 := tanI*tanI + tanV*tanV - 2*tanI*tanV*math.Cos(phi)
	s := tanI * tanV * math.Sin(phi)

	cosT := hb * math.Sqrt(d2+s*s) / (secI + secV)

	// floating point and grazing geometry can push cosT out of the arccos
	// domain, so it has to be clamped before taking the angle
	if cosT > 1 {
		cosT = 1
	}
	if cosT < -1 {
		cosT = -1
	}

	t := math.Acos(cosT)

	overlap := (1 / math.Pi) * (t - math.Sin(t)*cosT) * (secI + secV)

	return overlap - secI - secV + 0.5*(1+cosXi)*secI*secV
}

// Kvol is the elementwise form of KvolAt. The three slices must have the same
// length.
func Kvol(sunZenith, viewZenith, relAzimuth []float64) []float64 {
	out := make([]float64, len(sunZenith))
	for i := range out {
		out[i] = KvolAt(sunZenith[i], viewZenith[i], relAzimuth[i])
	}

	return out
}

// Kgeo is the elementwise form of KgeoAt.
func Kgeo(sunZenith, viewZenith, relAzimuth []float64) []float64 {
	out := make([]float64, len(sunZenith))
	for i := range out {
		out[i] = KgeoAt(sunZenith[i], viewZenith[i], relAzimuth[i])
	}

	return out
}

// BRDF computes the weighted kernel sum for one band, elementwise over the
// given geometry. NaN propagates.
func BRDF(band model.Band, sunZenith, viewZenith, relAzimuth []float64) []float64 {
	c := model.BandCoefficients[band]

	out := make([]float64, len(sunZenith))
	for i := range out {
		out[i] = c.Iso +
			c.Vol*KvolAt(sunZenith[i], viewZenith[i], relAzimuth[i]) +
			c.Geo*KgeoAt(sunZenith[i], viewZenith[i], relAzimuth[i])
	}

	return out
}

// BRDFAll evaluates the kernels once per geometry cell and broadcasts the
// coefficient table over them, returning one plane per band in canonical
// order.
func BRDFAll(sunZenith, viewZenith, relAzimuth []float64) [][]float64 {
	kvol := Kvol(sunZenith, viewZenith, relAzimuth)
	kgeo := Kgeo(sunZenith, viewZenith, relAzimuth)

	out := make([][]float64, len(model.AllBands))
	for b, band := range model.AllBands {
		c := model.BandCoefficients[band]

		plane := make([]float64, len(kvol))
		for i := range plane {
			plane[i] = c.Iso + c.Vol*kvol[i] + c.Geo*kgeo[i]
		}

		out[b] = plane
	}

	return out
}
