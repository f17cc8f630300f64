// Package nbar applies the c-factor correction to full resolution imagery,
// for a single scene on local storage or for a time series cube.
package nbar

import (
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/project-spencer/nadir/pkg/angles"
	"github.com/project-spencer/nadir/pkg/cfactor"
	"github.com/project-spencer/nadir/pkg/model"
	"github.com/project-spencer/nadir/pkg/raster"
)

// CorrectBand turns one band of reflectance into NBAR: nodata zeros become
// NaN, the harmonization offset is applied, and the image is multiplied by
// the band's c-factor resampled onto its own pixel grid.
func CorrectBand(img *raster.Image, c *model.CFactorGrid, band model.Band, baseline model.ProcessingBaseline) []float64 {
	interp := ResampleBand(c, band, img.XCoords(), img.YCoords())

	offset := baseline.Offset()

	out := make([]float64, len(img.Data))

	for i, v := range img.Data {
		if v == 0 {
			out[i] = math.NaN()
			continue
		}

		out[i] = (v + offset) * interp[i]
	}

	return out
}

// RoundInt16 rounds corrected values to int16, mapping NaN back to the
// nodata value 0.
func RoundInt16(data []float64) []int16 {
	out := make([]int16, len(data))

	for i, v := range data {
		if math.IsNaN(v) {
			continue
		}

		r := math.Round(v)
		if r > math.MaxInt16 {
			r = math.MaxInt16
		}
		if r < math.MinInt16 {
			r = math.MinInt16
		}

		out[i] = int16(r)
	}

	return out
}

type SceneOptions struct {
	COG        bool                  // write cloud optimized GeoTIFF
	Int16      bool                  // round output to int16 instead of float64
	Fetcher    angles.Fetcher        // defaults to reading local files
	Progress   func(band model.Band) // called as each band starts
	MaxThreads int                   // defaults to GOMAXPROCS
}

// Scene corrects a L2A product in a .SAFE directory. Corrected images are
// written next to the originals, into an NBAR folder inside the SAFE path.
// A band without valid angle data fails the whole scene.
func Scene(safePath string, opts SceneOptions) error {
	f := opts.Fetcher
	if f == nil {
		f = angles.FileFetcher{}
	}

	tileMeta, err := findOne(path.Join(safePath, "GRANULE", "*", "MTD_TL.xml"))

	if err != nil {
		return err
	}

	baseline, err := angles.ProcessingBaselineFrom(f, path.Join(safePath, "MTD_MSIL2A.xml"))

	if err != nil {
		return err
	}

	grid, err := angles.ExtractAnglesFrom(f, tileMeta)

	if err != nil {
		return err
	}

	c, err := cfactor.Extrapolate(cfactor.FromAngles(grid))

	if err != nil {
		return err
	}

	outDir := path.Join(safePath, "NBAR")

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("could not create %s: %s", outDir, err)
	}

	maxThreads := opts.MaxThreads
	if maxThreads <= 0 {
		maxThreads = runtime.GOMAXPROCS(0)
	}

	limiter := make(chan struct{}, maxThreads)
	var wg sync.WaitGroup

	errs := make([]error, len(model.AllBands))

	for i, band := range model.AllBands {
		res, ok := model.ImageBands[band]
		if !ok {
			continue
		}

		limiter <- struct{}{}
		wg.Add(1)

		go func(i int, band model.Band, res int) {
			defer func() { <-limiter; wg.Done() }()

			if opts.Progress != nil {
				opts.Progress(band)
			}

			errs[i] = correctSceneBand(safePath, outDir, band, res, c, grid.EPSG, baseline, opts)
		}(i, band, res)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

func correctSceneBand(safePath, outDir string, band model.Band, res int, c *model.CFactorGrid, epsg int, baseline model.ProcessingBaseline, opts SceneOptions) error {
	imgPath, err := findOne(path.Join(safePath, "GRANULE", "*", "IMG_DATA", fmt.Sprintf("R%dm", res), fmt.Sprintf("*_%s_%dm.jp2", band, res)))

	if err != nil {
		return err
	}

	img, err := raster.ReadBand(imgPath)

	if err != nil {
		return err
	}

	corrected := CorrectBand(img, c, band, baseline)

	name := path.Base(imgPath)
	outPath := path.Join(outDir, name[:len(name)-len(path.Ext(name))]+".tif")

	if opts.Int16 {
		return raster.WriteImageInt16(outPath, RoundInt16(corrected), img, epsg, opts.COG)
	}

	out := &raster.Image{W: img.W, H: img.H, Data: corrected, GT: img.GT}

	return raster.WriteImage(outPath, out, epsg, opts.COG)
}

func findOne(pattern string) (string, error) {
	matches, err := filepath.Glob(pattern)

	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("no file matches %s", pattern)
	}

	return matches[0], nil
}
