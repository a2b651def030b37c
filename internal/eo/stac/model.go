// Package stac implements the minimal SpatioTemporal Asset Catalog API
// client the pipeline needs: an item-search request against a catalog's
// /search endpoint filtered by collection, bbox, datetime interval and
// cloud cover.
package stac

import (
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"
)

// Sentinel2L2A is the collection queried for surface reflectance plus
// scene classification.
const Sentinel2L2A = "sentinel-2-l2a"

// Asset is a downloadable band or metadata file attached to an item.
type Asset struct {
	Href  string `json:"href"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

// ItemProperties carries the scene metadata the pipeline reads.
type ItemProperties struct {
	Datetime   string  `json:"datetime"`
	CloudCover float64 `json:"eo:cloud_cover"`
}

// Item is one catalog search result: a single-date Sentinel-2 capture.
type Item struct {
	ID         string            `json:"id"`
	Collection string            `json:"collection"`
	BBox       []float64         `json:"bbox"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties ItemProperties    `json:"properties"`
	Assets     map[string]Asset  `json:"assets"`
}

// Time parses the item's acquisition timestamp.
func (it *Item) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, it.Properties.Datetime)
	if err != nil {
		return time.Time{}, fmt.Errorf("item %s has unparseable datetime %q: %w", it.ID, it.Properties.Datetime, err)
	}
	return t, nil
}

// searchRequest is the POST /search body. The cloud cover constraint
// uses the STAC query extension's lt operator.
type searchRequest struct {
	Collections []string               `json:"collections"`
	BBox        []float64              `json:"bbox,omitempty"`
	Datetime    string                 `json:"datetime,omitempty"`
	Query       map[string]rangeFilter `json:"query,omitempty"`
	Limit       int                    `json:"limit,omitempty"`
}

type rangeFilter struct {
	LT float64 `json:"lt"`
}

// link is a STAC hypermedia link; rel=next drives pagination.
type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// searchResponse is the FeatureCollection returned by /search.
type searchResponse struct {
	Type     string `json:"type"`
	Features []Item `json:"features"`
	Links    []link `json:"links"`
}
