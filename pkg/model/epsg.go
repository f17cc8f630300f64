package model

import (
	"fmt"
	"strconv"
	"strings"
)

type CRSUnsupportedError struct {
	CRS string
}

func (e *CRSUnsupportedError) Error() string {
	return fmt.Sprintf("unsupported CRS identifier %q, want EPSG:<code>", e.CRS)
}

// ParseEPSG parses a CRS identifier of the form "EPSG:32633" (any case) or a
// bare numeric code. Anything else, including non-EPSG authorities, is a
// CRSUnsupportedError rather than a guess.
func ParseEPSG(crs string) (int, error) {
	s := strings.TrimSpace(crs)

	if i := strings.IndexByte(s, ':'); i >= 0 {
		if !strings.EqualFold(s[:i], "epsg") {
			return 0, &CRSUnsupportedError{CRS: crs}
		}
		s = s[i+1:]
	}

	code, err := strconv.Atoi(s)
	if err != nil || code <= 0 {
		return 0, &CRSUnsupportedError{CRS: crs}
	}

	return code, nil
}
