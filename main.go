package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go-terrawatch/aoi"
	"go-terrawatch/config"
	"go-terrawatch/cronjobs"
	"go-terrawatch/deforestation"
	"go-terrawatch/forecast"
	"go-terrawatch/fusion"
	"go-terrawatch/narrative"
	"go-terrawatch/observability"
	"go-terrawatch/orchestrator"
	"go-terrawatch/query"
	"go-terrawatch/routes"
	"go-terrawatch/types"
	"go-terrawatch/vulnerability"
)

func main() {
	// Load .env file; a missing one is fine in production.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.InitializeLogger(cfg.Logger)
	defer observability.Sync()

	// External collaborators
	queries := query.NewClient(cfg.Query, logger)
	forecasts := forecast.NewClient(cfg.Forecast, logger)

	// Optional narrative polish; nil when no key is configured.
	polisher := narrative.NewPolisher(os.Getenv("OPENAI_API_KEY"), cfg.Narrative.Model, logger)
	if !cfg.Narrative.PolishWithLLM {
		polisher = nil
	}
	if polisher != nil {
		logger.Info("narrative polish enabled", zap.String("model", cfg.Narrative.Model))
	}

	// Analysis pipelines
	analyzer := vulnerability.NewAnalyzer(queries, cfg.Vulnerability, logger)
	detector := deforestation.NewDetector(queries, cfg.Deforestation, logger)
	engine := fusion.NewEngine(cfg.Fusion)

	pipelines := map[types.TaskMode]orchestrator.Pipeline{
		types.ModeFlood:         orchestrator.NewFloodPipeline(analyzer, forecasts, engine, polisher, logger),
		types.ModeDeforestation: orchestrator.NewDeforestationPipeline(detector, polisher, logger),
	}

	// Orchestration
	store := orchestrator.NewStore(cfg.Engine.MaxTasks)
	builder := aoi.NewBuilder(cfg.AOI)
	orch := orchestrator.New(cfg.Engine, store, builder, pipelines, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch.Start(ctx)

	// Initialize cron jobs (task retention sweep)
	sweeper := cronjobs.InitCronJobs(store, cfg.Engine, logger)

	r := routes.SetupRouter(orch)
	server := &http.Server{Addr: cfg.Server.Addr, Handler: r}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	sweeper.Stop()
	orch.Stop()
}
