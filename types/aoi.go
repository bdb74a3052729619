package types

// AreaOfInterest is the bounded region an analysis is scoped to.
// It is immutable once built; ID is a canonical hash of the rounded
// geometry so equivalent requests resolve to the same identity.
type AreaOfInterest struct {
	ID          string      `json:"id"`
	Lat         float64     `json:"lat"`
	Lon         float64     `json:"lon"`
	RadiusM     float64     `json:"radiusMeters"`
	BoundingBox BoundingBox `json:"boundingBox"`
}

type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
}
