// Package raster wraps godal for the raster I/O this system needs: reading a
// band at its native resolution, writing corrected imagery as GeoTIFF/COG,
// and warping c-factor grids between coordinate reference systems.
package raster

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/project-spencer/nadir/pkg/model"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// An Image is one band at its native resolution. Nodata stays encoded as 0
// here; masking is the applier's concern.
type Image struct {
	W, H int
	Data []float64
	GT   [6]float64 // geotransform: origin x, dx, 0, origin y, 0, dy (dy < 0)
}

// XCoords returns the pixel center eastings.
func (img *Image) XCoords() []float64 {
	x := make([]float64, img.W)
	for i := range x {
		x[i] = img.GT[0] + (float64(i)+0.5)*img.GT[1]
	}

	return x
}

// YCoords returns the pixel center northings.
func (img *Image) YCoords() []float64 {
	y := make([]float64, img.H)
	for i := range y {
		y[i] = img.GT[3] + (float64(i)+0.5)*img.GT[5]
	}

	return y
}

// ReadBand reads band 1 of a raster file into float64.
func ReadBand(path string) (*Image, error) {
	register()

	ds, err := godal.Open(path)

	if err != nil {
		return nil, fmt.Errorf("could not open %s: %s", path, err)
	}
	defer ds.Close()

	st := ds.Structure()

	gt, err := ds.GeoTransform()

	if err != nil {
		return nil, fmt.Errorf("could not read geotransform of %s: %s", path, err)
	}

	img := &Image{
		W:    st.SizeX,
		H:    st.SizeY,
		Data: make([]float64, st.SizeX*st.SizeY),
		GT:   gt,
	}

	bands := ds.Bands()

	if len(bands) == 0 {
		return nil, fmt.Errorf("%s has no bands", path)
	}

	if err := bands[0].Read(0, 0, img.Data, st.SizeX, st.SizeY); err != nil {
		return nil, fmt.Errorf("could not read %s: %s", path, err)
	}

	return img, nil
}

func writeDataset(path string, buf interface{}, dtype godal.DataType, w, h int, gt [6]float64, epsg int, cog bool) error {
	register()

	mem, err := godal.Create(godal.Memory, "", 1, dtype, w, h)

	if err != nil {
		return fmt.Errorf("could not create memory dataset: %s", err)
	}
	defer mem.Close()

	if err := mem.SetGeoTransform(gt); err != nil {
		return err
	}

	sr, err := godal.NewSpatialRefFromEPSG(epsg)

	if err != nil {
		return fmt.Errorf("could not build SRS for EPSG:%d: %s", epsg, err)
	}
	defer sr.Close()

	if err := mem.SetSpatialRef(sr); err != nil {
		return err
	}

	if err := mem.Bands()[0].Write(0, 0, buf, w, h); err != nil {
		return err
	}

	switches := []string{"-of", "GTiff", "-co", "COMPRESS=DEFLATE"}
	if cog {
		switches = []string{"-of", "COG", "-co", "COMPRESS=DEFLATE"}
	}

	out, err := mem.Translate(path, switches)

	if err != nil {
		return fmt.Errorf("could not write %s: %s", path, err)
	}

	return out.Close()
}

// WriteImage writes a float64 band to path as GeoTIFF, or COG when cog is
// set.
func WriteImage(path string, img *Image, epsg int, cog bool) error {
	return writeDataset(path, img.Data, godal.Float64, img.W, img.H, img.GT, epsg, cog)
}

// WriteImageInt16 writes a rounded int16 band, nodata 0.
func WriteImageInt16(path string, data []int16, img *Image, epsg int, cog bool) error {
	return writeDataset(path, data, godal.Int16, img.W, img.H, img.GT, epsg, cog)
}

// gridGT anchors the geotransform on the outer cell edges of the grid, not
// on the cell centers.
func gridGT(c *model.CFactorGrid) [6]float64 {
	b := c.Extent()
	dx := c.X[1] - c.X[0]
	dy := c.Y[0] - c.Y[1]

	return [6]float64{b.Min[0], dx, 0, b.Max[1], 0, -dy}
}

// WarpGrid reprojects a c-factor grid to the target CRS. This is a real grid
// remap through gdalwarp, not a relabeling; nearest resampling keeps the
// coarse correction ratios as-is.
func WarpGrid(c *model.CFactorGrid, targetEPSG int) (*model.CFactorGrid, error) {
	register()

	mem, err := godal.Create(godal.Memory, "", len(model.AllBands), godal.Float64, c.NX, c.NY)

	if err != nil {
		return nil, fmt.Errorf("could not create memory dataset: %s", err)
	}
	defer mem.Close()

	if err := mem.SetGeoTransform(gridGT(c)); err != nil {
		return nil, err
	}

	sr, err := godal.NewSpatialRefFromEPSG(c.EPSG)

	if err != nil {
		return nil, fmt.Errorf("could not build SRS for EPSG:%d: %s", c.EPSG, err)
	}
	defer sr.Close()

	if err := mem.SetSpatialRef(sr); err != nil {
		return nil, err
	}

	for i := range model.AllBands {
		if err := mem.Bands()[i].Write(0, 0, c.Plane(i), c.NX, c.NY); err != nil {
			return nil, err
		}
	}

	warped, err := mem.Warp("", []string{
		"-of", "MEM",
		"-t_srs", fmt.Sprintf("EPSG:%d", targetEPSG),
		"-r", "near",
	})

	if err != nil {
		return nil, fmt.Errorf("could not warp grid to EPSG:%d: %s", targetEPSG, err)
	}
	defer warped.Close()

	st := warped.Structure()

	gt, err := warped.GeoTransform()

	if err != nil {
		return nil, err
	}

	x := make([]float64, st.SizeX)
	for i := range x {
		x[i] = gt[0] + (float64(i)+0.5)*gt[1]
	}

	y := make([]float64, st.SizeY)
	for i := range y {
		y[i] = gt[3] + (float64(i)+0.5)*gt[5]
	}

	out := model.NewCFactorGrid(x, y, targetEPSG)

	for i := range model.AllBands {
		if err := warped.Bands()[i].Read(0, 0, out.Plane(i), st.SizeX, st.SizeY); err != nil {
			return nil, err
		}
	}

	return out, nil
}
