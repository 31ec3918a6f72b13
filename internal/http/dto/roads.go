package dto

import "github.com/paulmach/orb/geojson"

// BBoxRequest es el body de POST /api/roads/bbox: [south, west, north, east].
type BBoxRequest struct {
	BBox []float64 `json:"bbox"`
}

type BBoxResponse struct {
	Success bool                       `json:"success"`
	Roads   *geojson.FeatureCollection `json:"roads"`
	Total   int                        `json:"total"`
}

type WayItem struct {
	ID      int64             `json:"id"`
	Version int64             `json:"version"`
	Nodes   []int64           `json:"nodes"`
	Tags    map[string]string `json:"tags"`
}

type WayResponse struct {
	Success bool    `json:"success"`
	Way     WayItem `json:"way"`
}
