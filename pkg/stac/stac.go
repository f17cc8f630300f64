// Package stac is a minimal STAC item-search client, just wide enough to
// look up Sentinel-2 L2A items by id and read the properties the correction
// needs: the tile CRS, the processing baseline and the granule metadata
// asset.
package stac

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/project-spencer/nadir/pkg/model"
)

type Item struct {
	ID         string           `json:"id"`
	Properties ItemProperties   `json:"properties"`
	Assets     map[string]Asset `json:"assets"`
}

type ItemProperties struct {
	EPSG               int    `json:"proj:epsg"`
	ProcessingBaseline string `json:"s2:processing_baseline"`
}

type Asset struct {
	Href  string   `json:"href"`
	Type  string   `json:"type"`
	Roles []string `json:"roles"`
}

func (i *Item) EPSG() int {
	return i.Properties.EPSG
}

func (i *Item) ProcessingBaseline() (model.ProcessingBaseline, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(i.Properties.ProcessingBaseline), 64)

	if err != nil {
		return 0, fmt.Errorf("item %s: could not parse processing baseline %q: %s", i.ID, i.Properties.ProcessingBaseline, err)
	}

	return model.ProcessingBaseline(v), nil
}

// GranuleMetadata returns the href of the tile metadata asset.
func (i *Item) GranuleMetadata() (string, error) {
	a, ok := i.Assets["granule-metadata"]

	if !ok {
		return "", fmt.Errorf("item %s has no granule-metadata asset", i.ID)
	}

	return a.Href, nil
}

type Client struct {
	Endpoint string
	HTTP     *http.Client
}

type searchRequest struct {
	IDs         []string `json:"ids"`
	Collections []string `json:"collections"`
	Limit       int      `json:"limit"`
}

type featureCollection struct {
	Features []*Item `json:"features"`
}

// Search looks up items by id in one collection. Fetch failures are returned
// to the caller; retry policy is the caller's concern (set a timeout on the
// injected http.Client).
func (c *Client) Search(ids []string, collection string) ([]*Item, error) {
	j, err := json.Marshal(searchRequest{
		IDs:         ids,
		Collections: []string{collection},
		Limit:       len(ids),
	})

	if err != nil {
		return nil, err
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}

	res, err := hc.Post(strings.TrimRight(c.Endpoint, "/")+"/search", "application/json", bytes.NewBuffer(j))

	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search at %s: unexpected status code: %d", c.Endpoint, res.StatusCode)
	}

	var fc featureCollection

	if err := json.NewDecoder(res.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("could not decode search response: %s", err)
	}

	return fc.Features, nil
}

// ItemMap keys items by id, for aligning catalog results to the timesteps of
// a data cube.
func ItemMap(items []*Item) map[string]*Item {
	m := make(map[string]*Item, len(items))
	for _, it := range items {
		m[it.ID] = it
	}

	return m
}
