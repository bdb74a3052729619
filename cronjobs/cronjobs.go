package cronjobs

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"go-terrawatch/config"
	"go-terrawatch/orchestrator"
)

// InitCronJobs wires the periodic maintenance jobs and starts the
// scheduler. Currently a single job: sweeping terminal tasks out of the
// in-memory table once their retention window has passed. Pending and
// Running tasks are never swept.
func InitCronJobs(store *orchestrator.Store, cfg config.EngineConfig, logger *zap.Logger) *cron.Cron {
	logger = logger.With(zap.String("component", "cronjobs"))
	c := cron.New()

	_, err := c.AddFunc(cfg.SweepEvery, func() {
		evicted := store.EvictExpired(time.Now().UTC(), cfg.TaskRetention)
		if evicted > 0 {
			logger.Info("retention sweep evicted terminal tasks",
				zap.Int("evicted", evicted),
				zap.Int("remaining", store.Len()))
		}
	})
	if err != nil {
		logger.Error("scheduling retention sweep", zap.Error(err))
	}

	c.Start()
	return c
}
