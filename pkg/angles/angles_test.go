package angles

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/project-spencer/nadir/pkg/model"
)

// gridXML renders one 23x23 values list where every cell holds v, except
// cells listed in nan (row-major indices) which hold NaN.
func gridXML(name string, v float64, nan ...int) string {
	var sb strings.Builder

	sb.WriteString("<" + name + "><COL_STEP unit=\"m\">5000</COL_STEP><ROW_STEP unit=\"m\">5000</ROW_STEP><Values_List>")

	idx := 0
	for r := 0; r < model.GridSize; r++ {
		sb.WriteString("<VALUES>")
		for c := 0; c < model.GridSize; c++ {
			if c > 0 {
				sb.WriteString(" ")
			}

			isNaN := false
			for _, n := range nan {
				if n == idx {
					isNaN = true
				}
			}

			if isNaN {
				sb.WriteString("NaN")
			} else {
				fmt.Fprintf(&sb, "%g", v)
			}
			idx++
		}
		sb.WriteString("</VALUES>")
	}

	sb.WriteString("</Values_List></" + name + ">")

	return sb.String()
}

type detector struct {
	bandID     int
	detectorID int
	zenith     string
	azimuth    string
}

func tileXML(dets []detector) string {
	var sb strings.Builder

	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sb.WriteString(`<n1:Level-2A_Tile_ID xmlns:n1="https://psd-14.sentinel2.eo.esa.int/PSD/S2_PDI_Level-2A_Tile_Metadata.xsd">`)
	sb.WriteString(`<n1:Geometric_Info><Tile_Geocoding>`)
	sb.WriteString(`<HORIZONTAL_CS_NAME>WGS84 / UTM zone 33N</HORIZONTAL_CS_NAME>`)
	sb.WriteString(`<HORIZONTAL_CS_CODE>EPSG:32633</HORIZONTAL_CS_CODE>`)
	sb.WriteString(`<Geoposition resolution="10"><ULX>399960</ULX><ULY>5600040</ULY><XDIM>10</XDIM><YDIM>-10</YDIM></Geoposition>`)
	sb.WriteString(`<Geoposition resolution="20"><ULX>399960</ULX><ULY>5600040</ULY><XDIM>20</XDIM><YDIM>-20</YDIM></Geoposition>`)
	sb.WriteString(`</Tile_Geocoding><Tile_Angles>`)
	sb.WriteString(`<Sun_Angles_Grid>` + gridXML("Zenith", 42.5) + gridXML("Azimuth", 160) + `</Sun_Angles_Grid>`)

	for _, d := range dets {
		fmt.Fprintf(&sb, `<Viewing_Incidence_Angles_Grids bandId="%d" detectorId="%d">`, d.bandID, d.detectorID)
		sb.WriteString(d.zenith)
		sb.WriteString(d.azimuth)
		sb.WriteString(`</Viewing_Incidence_Angles_Grids>`)
	}

	sb.WriteString(`</Tile_Angles></n1:Geometric_Info></n1:Level-2A_Tile_ID>`)

	return sb.String()
}

func allBandDetectors() []detector {
	dets := make([]detector, 0, len(model.AllBands))
	for i := range model.AllBands {
		dets = append(dets, detector{
			bandID:     i,
			detectorID: 1,
			zenith:     gridXML("Zenith", float64(i)+5),
			azimuth:    gridXML("Azimuth", float64(i)+100),
		})
	}

	return dets
}

func TestExtractAngles(t *testing.T) {
	grid, err := ExtractAngles(strings.NewReader(tileXML(allBandDetectors())))

	if err != nil {
		t.Fatalf("ExtractAngles: %s", err)
	}

	if grid.EPSG != 32633 {
		t.Errorf("EPSG=%d; want 32633", grid.EPSG)
	}

	if grid.X[0] != 399960+2500 || grid.X[1]-grid.X[0] != 5000 {
		t.Errorf("X coords start %g step %g; want %g step 5000", grid.X[0], grid.X[1]-grid.X[0], 399960.0+2500)
	}

	if grid.Y[0] != 5600040-2500 || grid.Y[0]-grid.Y[1] != 5000 {
		t.Errorf("Y coords start %g step %g; want %g step 5000", grid.Y[0], grid.Y[0]-grid.Y[1], 5600040.0-2500)
	}

	if got := grid.Sun(model.Zenith)[0]; got != 42.5 {
		t.Errorf("sun zenith=%g; want 42.5", got)
	}

	// band planes follow the canonical order no matter how the metadata
	// orders its detectors
	for i, band := range model.AllBands {
		if got := grid.Band(band, model.Zenith)[7]; got != float64(i)+5 {
			t.Errorf("band %s zenith=%g; want %g", band, got, float64(i)+5)
		}
		if got := grid.Band(band, model.Azimuth)[7]; got != float64(i)+100 {
			t.Errorf("band %s azimuth=%g; want %g", band, got, float64(i)+100)
		}
	}
}

func TestExtractAnglesDetectorMean(t *testing.T) {
	dets := allBandDetectors()

	// band B02 gets a second detector: cell 0 invalid in detector one, valid
	// in detector two; cell 1 valid in both; cell 2 invalid in both
	dets[1].zenith = gridXML("Zenith", 10, 0, 2)
	dets = append(dets, detector{
		bandID:     1,
		detectorID: 2,
		zenith:     gridXML("Zenith", 20, 2),
		azimuth:    gridXML("Azimuth", 101),
	})

	grid, err := ExtractAngles(strings.NewReader(tileXML(dets)))

	if err != nil {
		t.Fatalf("ExtractAngles: %s", err)
	}

	zen := grid.Band(model.B02, model.Zenith)

	if zen[0] != 20 {
		t.Errorf("cell 0 = %g; want 20 (single valid detector)", zen[0])
	}

	if zen[1] != 15 {
		t.Errorf("cell 1 = %g; want 15 (mean of 10 and 20)", zen[1])
	}

	if !math.IsNaN(zen[2]) {
		t.Errorf("cell 2 = %g; want NaN (no valid detector)", zen[2])
	}
}

func TestExtractAnglesMissingBand(t *testing.T) {
	dets := allBandDetectors()

	// drop B8A (band id 8) entirely
	dets = append(dets[:8], dets[9:]...)

	_, err := ExtractAngles(strings.NewReader(tileXML(dets)))

	var iae *IncompleteAngleError
	if !errors.As(err, &iae) {
		t.Fatalf("err=%v; want IncompleteAngleError", err)
	}

	if iae.Band != model.B8A {
		t.Errorf("missing band %s; want B8A", iae.Band)
	}

	if !strings.Contains(err.Error(), "B8A") {
		t.Errorf("error %q does not name the band", err.Error())
	}
}

func TestExtractAnglesBadCRS(t *testing.T) {
	xmlStr := strings.Replace(tileXML(allBandDetectors()), "EPSG:32633", "ESRI:102030", 1)

	_, err := ExtractAngles(strings.NewReader(xmlStr))

	var crsErr *model.CRSUnsupportedError
	if !errors.As(err, &crsErr) {
		t.Fatalf("err=%v; want CRSUnsupportedError", err)
	}
}

func TestProcessingBaseline(t *testing.T) {
	const productXML = `<?xml version="1.0" encoding="UTF-8"?>
<n1:Level-2A_User_Product xmlns:n1="https://psd-14.sentinel2.eo.esa.int/PSD/User_Product_Level-2A.xsd">
<n1:General_Info><Product_Info>
<PRODUCT_START_TIME>2022-06-12T10:00:21.024Z</PRODUCT_START_TIME>
<PROCESSING_BASELINE>04.00</PROCESSING_BASELINE>
</Product_Info></n1:General_Info>
</n1:Level-2A_User_Product>`

	pb, err := ProcessingBaseline(strings.NewReader(productXML))

	if err != nil {
		t.Fatalf("ProcessingBaseline: %s", err)
	}

	if pb != 4.0 {
		t.Errorf("baseline=%g; want 4", float64(pb))
	}

	if !pb.Harmonized() || pb.Offset() != -1000 {
		t.Errorf("baseline 4.00 must harmonize with offset -1000")
	}
}
