package types

import "time"

// Variable identifies a remote-sensing signal exposed by the query platform.
type Variable string

const (
	// RadarBackscatterVH is the Sentinel-1 style VH backscatter composite, in dB.
	RadarBackscatterVH Variable = "radar_backscatter_vh"
	// VegetationIndex is the NDVI composite, unitless in [-1, 1].
	VegetationIndex Variable = "vegetation_index_ndvi"
	// SurfaceWaterOccurrence is the historical surface-water occurrence
	// percentage per pixel (JRC-style), in [0, 100].
	SurfaceWaterOccurrence Variable = "surface_water_occurrence"
)

// DateRange is a half-open [Start, End) interval in UTC.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// CDFPoint is one step of a coarse cumulative pixel distribution:
// Share is the fraction of sampled pixels with values <= Value.
type CDFPoint struct {
	Value float64 `json:"value"`
	Share float64 `json:"share"`
}

// TimeSeriesSample is a composited raster statistic for one variable over
// one date range, as returned by the query platform. Read-only; consumers
// must check Completeness before folding a sample into an index.
type TimeSeriesSample struct {
	Variable Variable  `json:"variable"`
	Range    DateRange `json:"range"`

	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`

	// CDF is an ascending step summary of the pixel distribution, used to
	// derive below-threshold shares without shipping rasters.
	CDF []CDFPoint `json:"cdf,omitempty"`

	// SampleCount is the number of scene observations folded into the
	// composite; zero means the platform found no usable imagery.
	SampleCount int `json:"sampleCount"`

	// Completeness is the fraction of the region observed cloud/gap-free,
	// in [0, 1]. Partial coverage must be flagged, never treated as zero.
	Completeness float64 `json:"completeness"`
}

// Usable reports whether the composite is complete enough to enter an index.
func (s TimeSeriesSample) Usable(minCompleteness float64) bool {
	return s.SampleCount > 0 && s.Completeness >= minCompleteness
}

// ShareBelow returns the fraction of sampled pixels at or below threshold,
// stepping through the CDF summary. Returns 0 when no CDF was provided.
func (s TimeSeriesSample) ShareBelow(threshold float64) float64 {
	share := 0.0
	for _, p := range s.CDF {
		if p.Value > threshold {
			break
		}
		share = p.Share
	}
	return share
}
