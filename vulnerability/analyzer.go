// Package vulnerability computes the historical flood-vulnerability index
// from a radar backscatter time series.
package vulnerability

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

// Analyzer derives the vulnerability index for an AOI from weekly radar
// composites. Pure function of its inputs: identical adapter responses
// always produce the identical index.
type Analyzer struct {
	queries query.Adapter
	cfg     config.VulnerabilityConfig
	logger  *zap.Logger
}

func NewAnalyzer(queries query.Adapter, cfg config.VulnerabilityConfig, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		queries: queries,
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "vulnerability")),
	}
}

// Analyze partitions the lookback window into sub-periods, requests one
// radar composite per sub-period plus a dry-reference composite and the
// surface-water occurrence mask, and folds the sub-period inundated-like
// shares into a completeness-weighted index in [0, 1].
//
// Fails with ErrInsufficientData when fewer than the configured minimum of
// sub-periods carry usable composites; gaps are surfaced, never averaged
// over.
func (a *Analyzer) Analyze(ctx context.Context, region types.AreaOfInterest, now time.Time) (types.VulnerabilityIndex, error) {
	window := types.DateRange{
		Start: now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, -a.cfg.LookbackDays),
		End:   now.UTC().Truncate(24 * time.Hour),
	}
	reference := types.DateRange{
		Start: window.Start.AddDate(0, 0, -a.cfg.ReferenceDays),
		End:   window.Start,
	}
	periods := partition(window, a.cfg.SubPeriodDays)

	// All queries are independent read-only composites, so issue them
	// concurrently. A data gap in one sub-period is recorded as a nil
	// slot; timeouts and platform failures abort the whole analysis.
	samples := make([]*types.TimeSeriesSample, len(periods))
	var refSample, waterSample types.TimeSeriesSample
	var waterMissing bool

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s, err := a.queries.Query(gctx, region, types.RadarBackscatterVH, reference)
		if err != nil {
			if errors.Is(err, types.ErrNoData) {
				return fmt.Errorf("no dry-reference composite for %s: %w", region.ID, types.ErrInsufficientData)
			}
			return err
		}
		refSample = s
		return nil
	})

	g.Go(func() error {
		s, err := a.queries.Query(gctx, region, types.SurfaceWaterOccurrence, window)
		if err != nil {
			if errors.Is(err, types.ErrNoData) {
				// The occurrence mask is auxiliary; without it no pixels
				// are excluded, which only overstates the index.
				waterMissing = true
				return nil
			}
			return err
		}
		waterSample = s
		return nil
	})

	for i, p := range periods {
		g.Go(func() error {
			s, err := a.queries.Query(gctx, region, types.RadarBackscatterVH, p)
			if err != nil {
				if errors.Is(err, types.ErrNoData) {
					return nil // gap, counted against the usable minimum
				}
				return err
			}
			samples[i] = &s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return types.VulnerabilityIndex{}, fmt.Errorf("vulnerability analysis for %s: %w", region.ID, err)
	}

	if waterMissing {
		a.logger.Warn("surface-water occurrence mask unavailable, permanent water not excluded",
			zap.String("aoi", region.ID))
	}

	// The cutoff hangs off the reference mean, so a sparse reference would
	// skew every sub-period score. It is held to the same bar as the
	// composites entering the index.
	if !refSample.Usable(a.cfg.MinCompleteness) {
		return types.VulnerabilityIndex{}, fmt.Errorf(
			"dry-reference composite unusable (%d samples, completeness %.2f): %w",
			refSample.SampleCount, refSample.Completeness, types.ErrInsufficientData)
	}

	// A pixel is inundated-like when backscatter sits below the dry
	// reference by the calibrated delta and below the open-water ceiling.
	cutoff := math.Min(refSample.Mean+a.cfg.InundationDeltaDB, a.cfg.OpenWaterCeilingDB)
	permanentShare := 0.0
	if !waterMissing && waterSample.Usable(a.cfg.MinCompleteness) {
		permanentShare = 1 - waterSample.ShareBelow(a.cfg.PermanentWaterPct)
	}

	usable := 0
	weightSum, weighted := 0.0, 0.0
	for i, s := range samples {
		if s == nil || !s.Usable(a.cfg.MinCompleteness) {
			a.logger.Debug("sub-period composite unusable",
				zap.String("aoi", region.ID), zap.Int("subPeriod", i))
			continue
		}
		usable++
		score := subPeriodScore(*s, cutoff, permanentShare)
		weightSum += s.Completeness
		weighted += s.Completeness * score
	}

	if usable < a.cfg.MinUsableSubPeriods {
		return types.VulnerabilityIndex{}, fmt.Errorf(
			"only %d of %d sub-periods usable, minimum is %d: %w",
			usable, len(periods), a.cfg.MinUsableSubPeriods, types.ErrInsufficientData)
	}

	index := clamp01(weighted / weightSum)
	a.logger.Info("vulnerability index computed",
		zap.String("aoi", region.ID),
		zap.Float64("index", index),
		zap.Int("subPeriodsUsed", usable))

	return types.VulnerabilityIndex{
		Value:          index,
		SubPeriodsUsed: usable,
		Range:          window,
	}, nil
}

// subPeriodScore is the share of inundated-like pixels with the permanent
// water share factored out, so lakes and rivers never inflate the index.
func subPeriodScore(s types.TimeSeriesSample, cutoff, permanentShare float64) float64 {
	raw := s.ShareBelow(cutoff)
	if permanentShare >= 1 {
		return 0
	}
	return clamp01((raw - permanentShare) / (1 - permanentShare))
}

// partition splits the window into fixed-length sub-intervals; the final
// one is clipped to the window end.
func partition(window types.DateRange, days int) []types.DateRange {
	var out []types.DateRange
	for start := window.Start; start.Before(window.End); start = start.AddDate(0, 0, days) {
		end := start.AddDate(0, 0, days)
		if end.After(window.End) {
			end = window.End
		}
		out = append(out, types.DateRange{Start: start, End: end})
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
