package aoi

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"

	"go-terrawatch/config"
	"go-terrawatch/types"
)

// meters per degree of latitude (and of longitude at the equator).
const metersPerDegree = 111320.0

// Builder turns a point (+ optional radius) into a bounded, canonically
// identified query region. No side effects.
type Builder struct {
	cfg config.AOIConfig
}

func NewBuilder(cfg config.AOIConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Build validates the point and derives the AreaOfInterest. A radius of 0
// selects the configured default. Fails with ErrInvalidGeometry on
// out-of-range coordinates or a non-positive/oversized radius.
func (b *Builder) Build(lat, lon, radiusM float64) (types.AreaOfInterest, error) {
	if radiusM == 0 {
		radiusM = b.cfg.DefaultRadiusM
	}

	switch {
	case math.IsNaN(lat) || math.IsNaN(lon) || math.IsNaN(radiusM):
		return types.AreaOfInterest{}, fmt.Errorf("non-numeric input: %w", types.ErrInvalidGeometry)
	case lat < -90 || lat > 90:
		return types.AreaOfInterest{}, fmt.Errorf("latitude %.4f out of [-90, 90]: %w", lat, types.ErrInvalidGeometry)
	case lon < -180 || lon > 180:
		return types.AreaOfInterest{}, fmt.Errorf("longitude %.4f out of [-180, 180]: %w", lon, types.ErrInvalidGeometry)
	case radiusM < 0:
		return types.AreaOfInterest{}, fmt.Errorf("radius %.1f m must be positive: %w", radiusM, types.ErrInvalidGeometry)
	case b.cfg.MaxRadiusM > 0 && radiusM > b.cfg.MaxRadiusM:
		return types.AreaOfInterest{}, fmt.Errorf("radius %.1f m exceeds maximum %.1f m: %w", radiusM, b.cfg.MaxRadiusM, types.ErrInvalidGeometry)
	}

	lat = roundTo(lat, b.cfg.CoordDecimals)
	lon = roundTo(lon, b.cfg.CoordDecimals)

	return types.AreaOfInterest{
		ID:          identity(lat, lon, radiusM, b.cfg.CoordDecimals),
		Lat:         lat,
		Lon:         lon,
		RadiusM:     radiusM,
		BoundingBox: boundingBox(lat, lon, radiusM),
	}, nil
}

// identity hashes the rounded geometry so the "same" location always maps
// to the same AOI id, which the orchestrator uses for dedup.
func identity(lat, lon, radiusM float64, decimals int) string {
	key := strconv.FormatFloat(lat, 'f', decimals, 64) + "|" +
		strconv.FormatFloat(lon, 'f', decimals, 64) + "|" +
		strconv.FormatFloat(radiusM, 'f', 0, 64)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// boundingBox buffers the point by the radius in degrees. Longitude
// degrees shrink with latitude; near the poles the box is clamped.
func boundingBox(lat, lon, radiusM float64) types.BoundingBox {
	latDelta := radiusM / metersPerDegree

	cosLat := math.Cos(lat * math.Pi / 180)
	lonDelta := 180.0
	if cosLat > 1e-6 {
		lonDelta = radiusM / (metersPerDegree * cosLat)
	}

	return types.BoundingBox{
		MinLat: math.Max(lat-latDelta, -90),
		MaxLat: math.Min(lat+latDelta, 90),
		MinLon: math.Max(lon-lonDelta, -180),
		MaxLon: math.Min(lon+lonDelta, 180),
	}
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
