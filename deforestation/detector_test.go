package deforestation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-terrawatch/config"
	"go-terrawatch/types"
)

var testNow = time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)

func testConfig() config.DeforestationConfig {
	return config.DeforestationConfig{
		WindowDays:      90,
		BaselineLagDays: 365,
		RadarDeltaDB:    1.0,
		NDVIDelta:       0.15,
		MinCompleteness: 0.5,
	}
}

// composites describes the four window means handed to the detector.
type composites struct {
	currentRadar, baselineRadar float64
	currentNDVI, baselineNDVI   float64
	completeness                float64
	radarErr, ndviErr           error
}

type fakeAdapter struct{ c composites }

func (f *fakeAdapter) Query(_ context.Context, _ types.AreaOfInterest, variable types.Variable, r types.DateRange) (types.TimeSeriesSample, error) {
	// The baseline window ends before the current one starts.
	isBaseline := r.End.Before(testNow.AddDate(0, 0, -180))

	var mean float64
	switch {
	case variable == types.RadarBackscatterVH && f.c.radarErr != nil:
		return types.TimeSeriesSample{}, f.c.radarErr
	case variable == types.VegetationIndex && f.c.ndviErr != nil:
		return types.TimeSeriesSample{}, f.c.ndviErr
	case variable == types.RadarBackscatterVH && isBaseline:
		mean = f.c.baselineRadar
	case variable == types.RadarBackscatterVH:
		mean = f.c.currentRadar
	case isBaseline:
		mean = f.c.baselineNDVI
	default:
		mean = f.c.currentNDVI
	}

	completeness := f.c.completeness
	if completeness == 0 {
		completeness = 1
	}
	return types.TimeSeriesSample{
		Variable:     variable,
		Range:        r,
		Mean:         mean,
		SampleCount:  12,
		Completeness: completeness,
	}, nil
}

func detect(t *testing.T, c composites) (types.ChangeVerdict, error) {
	t.Helper()
	d := NewDetector(&fakeAdapter{c}, testConfig(), zap.NewNop())
	return d.Detect(context.Background(), types.AreaOfInterest{ID: "aoi-defo"}, testNow)
}

func TestDetectBothSignalsAgree(t *testing.T) {
	verdict, err := detect(t, composites{
		baselineRadar: -8.0, currentRadar: -10.0, // delta 2.0 > 1.0
		baselineNDVI: 0.80, currentNDVI: 0.55, // delta 0.25 > 0.15
	})
	require.NoError(t, err)

	assert.True(t, verdict.IsDeforested)
	assert.InDelta(t, 2.0, verdict.RadarDeltaDB, 1e-9)
	assert.InDelta(t, 0.25, verdict.NDVIDelta, 1e-9)
	assert.Greater(t, verdict.Confidence, 0.5)
	assert.LessOrEqual(t, verdict.Confidence, 1.0)
}

func TestDetectRadarAloneNeverFlipsVerdict(t *testing.T) {
	// Radar drops 1.5 dB past its 1.0 threshold, NDVI delta 0.05 stays
	// under 0.15: seasonal moisture, not deforestation.
	verdict, err := detect(t, composites{
		baselineRadar: -8.5, currentRadar: -10.0,
		baselineNDVI: 0.80, currentNDVI: 0.75,
	})
	require.NoError(t, err)

	assert.False(t, verdict.IsDeforested)
	assert.InDelta(t, 1.5, verdict.RadarDeltaDB, 1e-9)
	assert.InDelta(t, 0.05, verdict.NDVIDelta, 1e-9)
}

func TestDetectNDVIAloneNeverFlipsVerdict(t *testing.T) {
	verdict, err := detect(t, composites{
		baselineRadar: -10.0, currentRadar: -10.2,
		baselineNDVI: 0.80, currentNDVI: 0.40,
	})
	require.NoError(t, err)
	assert.False(t, verdict.IsDeforested)
}

func TestDetectSingleSourceRaisesConfidence(t *testing.T) {
	none, err := detect(t, composites{
		baselineRadar: -10.0, currentRadar: -10.0,
		baselineNDVI: 0.80, currentNDVI: 0.80,
	})
	require.NoError(t, err)

	radarOnly, err := detect(t, composites{
		baselineRadar: -8.0, currentRadar: -10.0,
		baselineNDVI: 0.80, currentNDVI: 0.80,
	})
	require.NoError(t, err)

	assert.False(t, radarOnly.IsDeforested)
	assert.Greater(t, radarOnly.Confidence, none.Confidence)
}

func TestDetectPartialCoverageReducesConfidence(t *testing.T) {
	full, err := detect(t, composites{
		baselineRadar: -8.0, currentRadar: -10.0,
		baselineNDVI: 0.80, currentNDVI: 0.55,
		completeness: 1.0,
	})
	require.NoError(t, err)

	partial, err := detect(t, composites{
		baselineRadar: -8.0, currentRadar: -10.0,
		baselineNDVI: 0.80, currentNDVI: 0.55,
		completeness: 0.6,
	})
	require.NoError(t, err)

	assert.True(t, partial.IsDeforested, "partial coverage reduces confidence, not the verdict")
	assert.Less(t, partial.Confidence, full.Confidence)
	assert.Greater(t, partial.Confidence, 0.0)
}

func TestDetectFailsBelowMinCompleteness(t *testing.T) {
	// Coverage under the 0.5 floor is a data failure, not a low-confidence
	// verdict.
	_, err := detect(t, composites{
		baselineRadar: -8.0, currentRadar: -10.0,
		baselineNDVI: 0.80, currentNDVI: 0.55,
		completeness: 0.3,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInsufficientData)
}

func TestDetectFailsWithoutComposite(t *testing.T) {
	_, err := detect(t, composites{
		ndviErr: fmt.Errorf("nothing sensed: %w", types.ErrNoData),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInsufficientData)
}

func TestDetectPropagatesTimeout(t *testing.T) {
	_, err := detect(t, composites{
		radarErr: fmt.Errorf("deadline: %w", types.ErrTimeout),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTimeout)
}

func TestDetectWindowsAreDisjointAndZeroInput(t *testing.T) {
	verdict, err := detect(t, composites{
		baselineRadar: -8.0, currentRadar: -10.0,
		baselineNDVI: 0.80, currentNDVI: 0.55,
	})
	require.NoError(t, err)

	cur, base := verdict.CurrentWindow, verdict.BaselineWindow
	assert.Equal(t, 90, cur.Days())
	assert.Equal(t, 90, base.Days())
	assert.True(t, base.End.Before(cur.Start), "windows must not overlap")
	// Baseline covers the same calendar window one year earlier.
	assert.Equal(t, cur.Start.AddDate(0, 0, -365), base.Start)
}

func TestDetectTraceRecordsBothComparisons(t *testing.T) {
	verdict, err := detect(t, composites{
		baselineRadar: -8.5, currentRadar: -10.0,
		baselineNDVI: 0.80, currentNDVI: 0.75,
	})
	require.NoError(t, err)

	require.Len(t, verdict.Trace, 2)
	radar, ndvi := verdict.Trace[0], verdict.Trace[1]

	assert.Equal(t, RuleRadarDecline, radar.RuleID)
	assert.Equal(t, types.SignalRadar, radar.Source)
	assert.True(t, radar.Fired)
	assert.InDelta(t, 1.0, radar.Threshold, 1e-9)

	assert.Equal(t, RuleNDVIDecline, ndvi.RuleID)
	assert.Equal(t, types.SignalOptical, ndvi.Source)
	assert.False(t, ndvi.Fired)
	assert.InDelta(t, 0.15, ndvi.Threshold, 1e-9)
}
