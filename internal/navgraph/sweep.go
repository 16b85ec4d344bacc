package navgraph

import (
	"github.com/robfig/cron/v3"

	"hostcp/internal/infrastructure/logger"
)

// StartSweeper schedules a periodic Cache.Sweep() call, supplementing
// the lazy TTL-on-read check with a background reclaim so long-idle
// cache entries don't linger in memory between reads. Returns the
// cron.Cron so callers can Stop() it on shutdown.
func StartSweeper(c *Cache, spec string, log *logger.Logger) *cron.Cron {
	if spec == "" {
		spec = "@every 1h"
	}
	sched := cron.New()
	_, err := sched.AddFunc(spec, func() {
		dropped := c.Sweep()
		if dropped > 0 {
			log.Info("navgraph cache sweep", "dropped", dropped)
		}
	})
	if err != nil {
		log.Error("navgraph cache sweep schedule invalid", "spec", spec, "error", err.Error())
		return sched
	}
	sched.Start()
	return sched
}
