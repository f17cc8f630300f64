package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"os"
	"path"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/image/tiff"

	"github.com/project-spencer/nadir/pkg/model"
	"github.com/project-spencer/nadir/pkg/nbar"
	"github.com/project-spencer/nadir/pkg/raster"
)

func main() {
	log.SetPrefix("[nbar] ")
	log.SetFlags(log.Ldate | log.Ltime | log.LUTC)

	var safePath string
	var cog bool
	var toInt bool
	var quicklook bool
	var quiet bool

	flag.StringVar(&safePath, "safe", "", "path to the .SAFE product directory")
	flag.BoolVar(&cog, "cog", true, "write cloud optimized GeoTIFF")
	flag.BoolVar(&toInt, "int16", false, "round output to int16")
	flag.BoolVar(&quicklook, "quicklook", false, "also write an RGB quicklook tiff")
	flag.BoolVar(&quiet, "quiet", false, "no progress output")

	flag.Parse()

	if safePath == "" {
		log.Fatal("-safe is required")
	}

	opts := nbar.SceneOptions{
		COG:   cog,
		Int16: toInt,
	}

	if !quiet {
		bar := progressbar.Default(int64(len(model.ImageBands)), "Correcting bands")
		opts.Progress = func(b model.Band) {
			bar.Add(1)
		}
	}

	if err := nbar.Scene(safePath, opts); err != nil {
		log.Fatalf("could not correct %s: %s", safePath, err)
	}

	if quicklook {
		if err := writeQuicklook(safePath); err != nil {
			log.Fatalf("could not write quicklook: %s", err)
		}
	}

	log.Printf("saved to %s", path.Join(safePath, "NBAR"))
}

// writeQuicklook renders the corrected B04/B03/B02 bands into an 8-bit RGB
// tiff next to the corrected imagery.
func writeQuicklook(safePath string) error {
	outDir := path.Join(safePath, "NBAR")

	var planes [3][]float64
	var w, h int

	for i, band := range []model.Band{model.B04, model.B03, model.B02} {
		p, err := findBand(outDir, band)

		if err != nil {
			return err
		}

		img, err := raster.ReadBand(p)

		if err != nil {
			return err
		}

		planes[i] = img.Data
		w, h = img.W, img.H
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))

	for p := 0; p < w*h; p++ {
		var rgb [3]uint8

		for i := range planes {
			v := planes[i][p]

			if math.IsNaN(v) {
				continue
			}

			// simple fixed stretch: reflectance 0..3000 DN to 0..255
			s := v / 3000 * 255
			if s > 255 {
				s = 255
			}
			if s < 0 {
				s = 0
			}

			rgb[i] = uint8(s)
		}

		out.SetRGBA(p%w, p/w, color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255})
	}

	f, err := os.Create(path.Join(outDir, "quicklook.tif"))

	if err != nil {
		return err
	}
	defer f.Close()

	return tiff.Encode(f, out, &tiff.Options{Compression: tiff.Deflate})
}

func findBand(dir string, band model.Band) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_"+string(band)+"_*.tif"))

	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("no corrected image for band %s in %s", band, dir)
	}

	return matches[0], nil
}
