package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/joho/godotenv"

	"github.com/project-spencer/nadir/pkg/angles"
	"github.com/project-spencer/nadir/pkg/model"
	"github.com/project-spencer/nadir/pkg/nbar"
	"github.com/project-spencer/nadir/pkg/stac"
)

// The cube file layout: a float64 variable "reflectance" over dims
// (time, band, y, x), float64 coordinate variables "x" and "y", and global
// attributes "ids" (comma separated scene ids, one per timestep), "bands"
// (comma separated band names) and "epsg".
func main() {
	log.SetPrefix("[cube] ")
	log.SetFlags(log.Ldate | log.Ltime | log.LUTC)

	// optional .env with STAC_ENDPOINT
	godotenv.Load()

	var inPath string
	var outPath string
	var collection string
	var endpoint string
	var timeout time.Duration

	flag.StringVar(&inPath, "in", "", "input reflectance cube (NetCDF)")
	flag.StringVar(&outPath, "out", "", "output NBAR cube (NetCDF)")
	flag.StringVar(&collection, "collection", "sentinel-2-l2a", "STAC collection of the scenes")
	flag.StringVar(&endpoint, "endpoint", os.Getenv("STAC_ENDPOINT"), "STAC API endpoint")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "timeout per catalog/metadata request")

	flag.Parse()

	if inPath == "" || outPath == "" || endpoint == "" {
		log.Fatal("-in, -out and -endpoint (or STAC_ENDPOINT) are required")
	}

	cube, err := readCube(inPath)

	if err != nil {
		log.Fatalf("could not read cube %s: %s", inPath, err)
	}

	log.Printf("read cube: %d timesteps, %d bands, %dx%d pixels, EPSG:%d", len(cube.IDs), len(cube.Bands), len(cube.X), len(cube.Y), cube.EPSG)

	client := &http.Client{Timeout: timeout}

	items, err := (&stac.Client{Endpoint: endpoint, HTTP: client}).Search(cube.IDs, collection)

	if err != nil {
		log.Fatalf("could not search catalog: %s", err)
	}

	log.Printf("catalog returned %d of %d items", len(items), len(cube.IDs))

	out, err := nbar.CorrectCube(cube, nbar.MapSource(stac.ItemMap(items)), angles.HTTPFetcher{Client: client})

	if err != nil {
		log.Fatalf("could not correct cube: %s", err)
	}

	if dropped := len(cube.IDs) - len(out.IDs); dropped > 0 {
		log.Printf("dropped %d of %d timesteps", dropped, len(cube.IDs))
	}

	if err := writeCube(outPath, out); err != nil {
		log.Fatalf("could not write cube %s: %s", outPath, err)
	}

	log.Printf("saved to %s", outPath)
}

func readCube(path string) (*nbar.Cube, error) {
	f, err := os.Open(path)

	if err != nil {
		return nil, err
	}
	defer f.Close()

	nc, err := cdf.Open(f)

	if err != nil {
		return nil, err
	}

	ids, err := listAttribute(nc, "ids")
	if err != nil {
		return nil, err
	}

	bandNames, err := listAttribute(nc, "bands")
	if err != nil {
		return nil, err
	}

	bands := make([]model.Band, len(bandNames))
	for i, name := range bandNames {
		b := model.Band(name)

		if model.BandIndex(b) < 0 {
			return nil, fmt.Errorf("unknown band %q in cube", name)
		}

		bands[i] = b
	}

	epsgStr, err := listAttribute(nc, "epsg")
	if err != nil {
		return nil, err
	}

	epsg, err := model.ParseEPSG(epsgStr[0])
	if err != nil {
		return nil, err
	}

	x, err := readFloats(nc, "x")
	if err != nil {
		return nil, err
	}

	y, err := readFloats(nc, "y")
	if err != nil {
		return nil, err
	}

	dims := nc.Header.Lengths("reflectance")

	if len(dims) != 4 {
		return nil, fmt.Errorf("reflectance has %d dims, want (time, band, y, x)", len(dims))
	}

	if dims[0] != len(ids) || dims[1] != len(bands) || dims[2] != len(y) || dims[3] != len(x) {
		return nil, fmt.Errorf("reflectance dims %v do not match ids/bands/y/x (%d/%d/%d/%d)", dims, len(ids), len(bands), len(y), len(x))
	}

	data, err := readFloats(nc, "reflectance")
	if err != nil {
		return nil, err
	}

	cube := nbar.NewCube(ids, bands, x, y, epsg)
	copy(cube.Data, data)

	return cube, nil
}

func listAttribute(nc *cdf.File, name string) ([]string, error) {
	attr := nc.Header.GetAttribute("", name)

	s, ok := attr.(string)

	if !ok || s == "" {
		return nil, fmt.Errorf("cube is missing the %q attribute", name)
	}

	return strings.Split(s, ","), nil
}

func readFloats(nc *cdf.File, name string) ([]float64, error) {
	r := nc.Reader(name, nil, nil)

	buf, ok := r.Zero(-1).([]float64)

	if !ok {
		return nil, fmt.Errorf("variable %s is not float64", name)
	}

	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading %s: %s", name, err)
	}

	return buf, nil
}

func writeCube(path string, cube *nbar.Cube) error {
	h := cdf.NewHeader(
		[]string{"time", "band", "y", "x"},
		[]int{len(cube.IDs), len(cube.Bands), len(cube.Y), len(cube.X)},
	)

	h.AddVariable("reflectance", []string{"time", "band", "y", "x"}, []float64{0})
	h.AddVariable("x", []string{"x"}, []float64{0})
	h.AddVariable("y", []string{"y"}, []float64{0})

	bandNames := make([]string, len(cube.Bands))
	for i, b := range cube.Bands {
		bandNames[i] = string(b)
	}

	h.AddAttribute("", "ids", strings.Join(cube.IDs, ","))
	h.AddAttribute("", "bands", strings.Join(bandNames, ","))
	h.AddAttribute("", "epsg", fmt.Sprintf("EPSG:%d", cube.EPSG))

	h.Define()

	f, err := os.Create(path)

	if err != nil {
		return err
	}
	defer f.Close()

	nc, err := cdf.Create(f, h)

	if err != nil {
		return err
	}

	for name, data := range map[string][]float64{
		"reflectance": cube.Data,
		"x":           cube.X,
		"y":           cube.Y,
	} {
		w := nc.Writer(name, nil, nil)

		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing %s: %s", name, err)
		}
	}

	return cdf.UpdateNumRecs(f)
}
