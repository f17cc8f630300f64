package model

type Band string

const (
	B01 Band = "B01"
	B02 Band = "B02"
	B03 Band = "B03"
	B04 Band = "B04"
	B05 Band = "B05"
	B06 Band = "B06"
	B07 Band = "B07"
	B08 Band = "B08"
	B8A Band = "B8A"
	B09 Band = "B09"
	B10 Band = "B10"
	B11 Band = "B11"
	B12 Band = "B12"
)

// AllBands is the canonical MSI band order. The metadata identifies bands by
// a numeric id which is an index into this slice (B8A sits between B08 and
// B09), so the order must not change.
var AllBands = []Band{B01, B02, B03, B04, B05, B06, B07, B08, B8A, B09, B10, B11, B12}

// ImageBands are the bands that ship imagery in a L2A product, with their
// native pixel resolution in meters. B10 is cirrus-only and has no L2A image,
// B01 and B09 are delivered at 60 m.
var ImageBands = map[Band]int{
	B01: 60,
	B02: 10,
	B03: 10,
	B04: 10,
	B05: 20,
	B06: 20,
	B07: 20,
	B08: 10,
	B8A: 20,
	B09: 60,
	B11: 20,
	B12: 20,
}

// BandIndex returns the position of b in AllBands, or -1.
func BandIndex(b Band) int {
	for i, bb := range AllBands {
		if bb == b {
			return i
		}
	}

	return -1
}
