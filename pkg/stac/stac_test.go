package stac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

const itemJSON = `{
	"type": "Feature",
	"id": "S2B_MSIL2A_20220612T100029_R122_T33UVP",
	"properties": {
		"proj:epsg": 32633,
		"s2:processing_baseline": "04.00"
	},
	"assets": {
		"granule-metadata": {
			"href": "https://example.com/GRANULE/L2A_T33UVP/MTD_TL.xml",
			"type": "application/xml",
			"roles": ["metadata"]
		}
	}
}`

func TestItemAccessors(t *testing.T) {
	var it Item

	if err := json.Unmarshal([]byte(itemJSON), &it); err != nil {
		t.Fatalf("unmarshal: %s", err)
	}

	if it.EPSG() != 32633 {
		t.Errorf("EPSG=%d; want 32633", it.EPSG())
	}

	pb, err := it.ProcessingBaseline()

	if err != nil {
		t.Fatalf("ProcessingBaseline: %s", err)
	}

	if pb != 4.0 || !pb.Harmonized() {
		t.Errorf("baseline=%g; want 4.00 (harmonized)", float64(pb))
	}

	href, err := it.GranuleMetadata()

	if err != nil {
		t.Fatalf("GranuleMetadata: %s", err)
	}

	if href != "https://example.com/GRANULE/L2A_T33UVP/MTD_TL.xml" {
		t.Errorf("href=%q", href)
	}
}

func TestItemMissingAsset(t *testing.T) {
	it := Item{ID: "x"}

	if _, err := it.GranuleMetadata(); err == nil {
		t.Errorf("want error for missing granule-metadata asset")
	}
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path=%q; want /search", r.URL.Path)
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %s", err)
		}

		if len(req.IDs) != 1 || req.Collections[0] != "sentinel-2-l2a" {
			t.Errorf("unexpected request %+v", req)
		}

		w.Write([]byte(`{"type":"FeatureCollection","features":[` + itemJSON + `]}`))
	}))
	defer srv.Close()

	c := &Client{Endpoint: srv.URL}

	items, err := c.Search([]string{"S2B_MSIL2A_20220612T100029_R122_T33UVP"}, "sentinel-2-l2a")

	if err != nil {
		t.Fatalf("Search: %s", err)
	}

	if len(items) != 1 || items[0].ID != "S2B_MSIL2A_20220612T100029_R122_T33UVP" {
		t.Fatalf("items=%v", items)
	}

	m := ItemMap(items)

	if m[items[0].ID] != items[0] {
		t.Errorf("ItemMap does not key by id")
	}
}

func TestSearchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := &Client{Endpoint: srv.URL}

	if _, err := c.Search([]string{"a"}, "sentinel-2-l2a"); err == nil {
		t.Fatalf("want error on non-200 response")
	}
}
