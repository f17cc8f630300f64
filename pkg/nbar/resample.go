package nbar

import (
	"github.com/project-spencer/nadir/pkg/model"
)

// segment locates coordinate v on the uniform axis starting at origin with
// the given step, returning the lower cell index clamped into the axis and
// the interpolation weight. Weights outside [0,1] linearly extrapolate, so a
// target grid larger than the coarse grid never produces NaN.
func segment(v, origin, step float64, n int) (int, float64) {
	f := (v - origin) / step

	i := int(f)
	if f < 0 {
		i = 0
	}
	if i > n-2 {
		i = n - 2
	}

	return i, f - float64(i)
}

// resamplePlane interpolates a coarse plane (cell centers gx ascending, gy
// descending) bilinearly onto the target pixel centers tx/ty.
func resamplePlane(p []float64, gx, gy, tx, ty []float64) []float64 {
	nx := len(gx)
	ny := len(gy)

	dx := gx[1] - gx[0]
	dy := gy[1] - gy[0] // negative

	out := make([]float64, len(tx)*len(ty))

	for r, y := range ty {
		iy, wy := segment(y, gy[0], dy, ny)

		for c, x := range tx {
			ix, wx := segment(x, gx[0], dx, nx)

			p00 := p[iy*nx+ix]
			p01 := p[iy*nx+ix+1]
			p10 := p[(iy+1)*nx+ix]
			p11 := p[(iy+1)*nx+ix+1]

			top := p00 + (p01-p00)*wx
			bot := p10 + (p11-p10)*wx

			out[r*len(tx)+c] = top + (bot-top)*wy
		}
	}

	return out
}

// ResampleBand interpolates one band of a dense c-factor grid onto arbitrary
// pixel center coordinates.
func ResampleBand(c *model.CFactorGrid, band model.Band, tx, ty []float64) []float64 {
	return resamplePlane(c.Plane(model.BandIndex(band)), c.X, c.Y, tx, ty)
}
