package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"go-terrawatch/deforestation"
	"go-terrawatch/forecast"
	"go-terrawatch/fusion"
	"go-terrawatch/narrative"
	"go-terrawatch/types"
	"go-terrawatch/vulnerability"
)

// Pipeline is one mode's unit of work: the analysis stages executed in
// strict sequence by a single worker. Cancellation is checked at stage
// boundaries only; a started stage runs to completion or failure.
type Pipeline interface {
	Run(ctx context.Context, region types.AreaOfInterest) (*types.AnalysisResult, error)
}

// checkpoint enforces cooperative cancellation between stages.
func checkpoint(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("pipeline stopped between stages: %w", types.ErrTaskCancelled)
	}
	return nil
}

// FloodPipeline runs vulnerability analysis, forecast fetch, risk fusion
// and narrative generation.
type FloodPipeline struct {
	analyzer  *vulnerability.Analyzer
	forecasts forecast.Provider
	engine    *fusion.Engine
	polisher  *narrative.Polisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewFloodPipeline(
	analyzer *vulnerability.Analyzer,
	forecasts forecast.Provider,
	engine *fusion.Engine,
	polisher *narrative.Polisher,
	logger *zap.Logger,
) *FloodPipeline {
	return &FloodPipeline{
		analyzer:  analyzer,
		forecasts: forecasts,
		engine:    engine,
		polisher:  polisher,
		logger:    logger.With(zap.String("pipeline", "flood")),
		now:       time.Now,
	}
}

func (p *FloodPipeline) Run(ctx context.Context, region types.AreaOfInterest) (*types.AnalysisResult, error) {
	index, err := p.analyzer.Analyze(ctx, region, p.now())
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	features, err := p.forecasts.Forecast(ctx, region.Lat, region.Lon)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	assessment := p.engine.Evaluate(index, features)
	story := narrative.FromRisk(assessment)
	p.polisher.Polish(ctx, &story)

	p.logger.Info("flood pipeline finished",
		zap.String("aoi", region.ID),
		zap.String("level", string(assessment.Level)))

	return &types.AnalysisResult{
		Risk:     &assessment,
		Forecast: &features,
		Story:    &story,
	}, nil
}

// DeforestationPipeline runs change detection and narrative generation.
type DeforestationPipeline struct {
	detector *deforestation.Detector
	polisher *narrative.Polisher
	logger   *zap.Logger
	now      func() time.Time
}

func NewDeforestationPipeline(detector *deforestation.Detector, polisher *narrative.Polisher, logger *zap.Logger) *DeforestationPipeline {
	return &DeforestationPipeline{
		detector: detector,
		polisher: polisher,
		logger:   logger.With(zap.String("pipeline", "deforestation")),
		now:      time.Now,
	}
}

func (p *DeforestationPipeline) Run(ctx context.Context, region types.AreaOfInterest) (*types.AnalysisResult, error) {
	verdict, err := p.detector.Detect(ctx, region, p.now())
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	story := narrative.FromChange(verdict)
	p.polisher.Polish(ctx, &story)

	p.logger.Info("deforestation pipeline finished",
		zap.String("aoi", region.ID),
		zap.Bool("isDeforested", verdict.IsDeforested))

	return &types.AnalysisResult{
		Change: &verdict,
		Story:  &story,
	}, nil
}
