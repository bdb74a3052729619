// Package deforestation detects vegetation loss by comparing radar and
// optical composites across two non-overlapping time windows.
package deforestation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-terrawatch/config"
	"go-terrawatch/query"
	"go-terrawatch/types"
)

// Trace rule ids emitted by the detector.
const (
	RuleRadarDecline = "radar_backscatter_decline"
	RuleNDVIDecline  = "ndvi_decline"
)

// Detector compares a "current" window against the same calendar window of
// the prior year. Callers supply no dates: the windows derive entirely
// from the clock, which is what makes the detection zero-input.
type Detector struct {
	queries query.Adapter
	cfg     config.DeforestationConfig
	logger  *zap.Logger
}

func NewDetector(queries query.Adapter, cfg config.DeforestationConfig, logger *zap.Logger) *Detector {
	return &Detector{
		queries: queries,
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "deforestation")),
	}
}

// Detect fetches the four composites (radar and NDVI for both windows)
// concurrently and renders the dual-source verdict. Both deltas must cross
// their thresholds in the decreasing direction for a positive verdict;
// agreement across two physically distinct modalities suppresses
// single-sensor artifacts such as seasonal moisture drops.
func (d *Detector) Detect(ctx context.Context, region types.AreaOfInterest, now time.Time) (types.ChangeVerdict, error) {
	end := now.UTC().Truncate(24 * time.Hour)
	current := types.DateRange{Start: end.AddDate(0, 0, -d.cfg.WindowDays), End: end}
	baseline := types.DateRange{
		Start: current.Start.AddDate(0, 0, -d.cfg.BaselineLagDays),
		End:   current.End.AddDate(0, 0, -d.cfg.BaselineLagDays),
	}

	var curRadar, baseRadar, curNDVI, baseNDVI types.TimeSeriesSample

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(dst *types.TimeSeriesSample, variable types.Variable, window types.DateRange, label string) {
		g.Go(func() error {
			s, err := d.queries.Query(gctx, region, variable, window)
			if err != nil {
				if errors.Is(err, types.ErrNoData) {
					return fmt.Errorf("no %s composite for the %s window: %w", variable, label, types.ErrInsufficientData)
				}
				return err
			}
			*dst = s
			return nil
		})
	}
	fetch(&curRadar, types.RadarBackscatterVH, current, "current")
	fetch(&baseRadar, types.RadarBackscatterVH, baseline, "baseline")
	fetch(&curNDVI, types.VegetationIndex, current, "current")
	fetch(&baseNDVI, types.VegetationIndex, baseline, "baseline")

	if err := g.Wait(); err != nil {
		return types.ChangeVerdict{}, fmt.Errorf("deforestation analysis for %s: %w", region.ID, err)
	}

	for _, s := range []types.TimeSeriesSample{curRadar, baseRadar, curNDVI, baseNDVI} {
		if !s.Usable(d.cfg.MinCompleteness) {
			return types.ChangeVerdict{}, fmt.Errorf(
				"unusable %s composite %s to %s (%d samples, completeness %.2f): %w",
				s.Variable,
				s.Range.Start.Format("2006-01-02"), s.Range.End.Format("2006-01-02"),
				s.SampleCount, s.Completeness, types.ErrInsufficientData)
		}
	}

	// Positive delta = decline versus the baseline year.
	radarDelta := baseRadar.Mean - curRadar.Mean
	ndviDelta := baseNDVI.Mean - curNDVI.Mean

	radarFired := radarDelta > d.cfg.RadarDeltaDB
	ndviFired := ndviDelta > d.cfg.NDVIDelta
	deforested := radarFired && ndviFired

	completeness := minCompleteness(curRadar, baseRadar, curNDVI, baseNDVI)
	confidence := d.confidence(radarDelta, ndviDelta, completeness)

	verdict := types.ChangeVerdict{
		IsDeforested:   deforested,
		RadarDeltaDB:   radarDelta,
		NDVIDelta:      ndviDelta,
		Confidence:     confidence,
		CurrentWindow:  current,
		BaselineWindow: baseline,
		Trace: []types.RuleOutcome{
			{RuleID: RuleRadarDecline, Source: types.SignalRadar, Evidence: radarDelta, Threshold: d.cfg.RadarDeltaDB, Fired: radarFired},
			{RuleID: RuleNDVIDecline, Source: types.SignalOptical, Evidence: ndviDelta, Threshold: d.cfg.NDVIDelta, Fired: ndviFired},
		},
	}

	d.logger.Info("change verdict rendered",
		zap.String("aoi", region.ID),
		zap.Bool("isDeforested", deforested),
		zap.Float64("radarDeltaDb", radarDelta),
		zap.Float64("ndviDelta", ndviDelta),
		zap.Float64("confidence", confidence))

	return verdict, nil
}

// confidence grows monotonically with how far each delta exceeds its
// threshold, capped at 1.0. Partial window completeness scales it down but
// never to zero.
func (d *Detector) confidence(radarDelta, ndviDelta, completeness float64) float64 {
	radarExcess := clamp01((radarDelta - d.cfg.RadarDeltaDB) / d.cfg.RadarDeltaDB)
	ndviExcess := clamp01((ndviDelta - d.cfg.NDVIDelta) / d.cfg.NDVIDelta)
	base := 0.5 + 0.25*radarExcess + 0.25*ndviExcess

	// Completeness 1.0 leaves the confidence untouched; 0.0 halves it.
	return clamp01(base * (0.5 + 0.5*clamp01(completeness)))
}

func minCompleteness(samples ...types.TimeSeriesSample) float64 {
	m := 1.0
	for _, s := range samples {
		m = math.Min(m, s.Completeness)
	}
	return m
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
