package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/subtitle-bot/pkg/icron"
	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

// StalePruner is users.QuotaManager.
type StalePruner interface {
	PruneStale(retention time.Duration) int
}

// CronScheduler is the part of *cron.Cron used to register jobs.
type CronScheduler interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
}

// Maintenance drops user records that are both idle and out of their quota
// window, on a cron schedule.
type Maintenance struct {
	pruner    StalePruner
	cron      CronScheduler
	cronExpr  string
	retention time.Duration

	group singleflight.Group
}

func NewMaintenance(pruner StalePruner, scheduler CronScheduler, cronExpr string, retention time.Duration) *Maintenance {
	return &Maintenance{
		pruner:    pruner,
		cron:      scheduler,
		cronExpr:  cronExpr,
		retention: retention,
	}
}

// Schedule registers the prune run. Overlapping triggers collapse into one.
func (m *Maintenance) Schedule(ctx context.Context) error {
	if err := icron.Validate(m.cronExpr); err != nil {
		return err
	}
	if info, err := icron.GetTriggerInfo(m.cronExpr, time.Now()); err == nil {
		log.Info("User pruning scheduled (%s), next run in %s", m.cronExpr, info.TimeUntilNext.Round(time.Second))
	}

	_, err := m.cron.AddFunc(m.cronExpr, func() {
		if ctx.Err() != nil {
			return
		}
		m.RunOnce()
	})
	return err
}

// RunOnce prunes immediately and returns the number of records removed.
func (m *Maintenance) RunOnce() int {
	v, _, _ := m.group.Do("prune", func() (any, error) {
		removed := m.pruner.PruneStale(m.retention)
		if removed > 0 {
			log.Info("Pruned %d stale user records", removed)
		} else {
			log.Debug("No stale user records to prune")
		}
		return removed, nil
	})
	n, _ := v.(int)
	return n
}
