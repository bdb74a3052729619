// Package query is the boundary to the remote geospatial compute platform.
// The analyzers depend only on the Adapter interface so they can be tested
// with synthetic samples; the live platform is never required in unit tests.
package query

import (
	"context"

	"go-terrawatch/types"
)

// Adapter answers composited raster statistics for a region, variable and
// date range. Implementations fail with types.ErrTimeout when the per-call
// deadline is exceeded and types.ErrNoData when the platform found no
// usable imagery; retries, if any, belong behind this interface.
type Adapter interface {
	Query(ctx context.Context, region types.AreaOfInterest, variable types.Variable, dateRange types.DateRange) (types.TimeSeriesSample, error)
}
