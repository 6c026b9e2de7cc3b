package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/trezcool/masomo-absences/core"
)

type sweeper interface {
	Sweep(ctx context.Context, from, to time.Time) (int, error)
}

// startSweep periodically retries resolution of the upcoming uncovered teacher absences.
func startSweep(conf core.SweepConfig, svc sweeper, logger core.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(conf.Schedule, func() { runSweep(svc, conf.Days, logger) }); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func runSweep(svc sweeper, days int, logger core.Logger) {
	if days < 1 {
		days = 1
	}
	from := core.DateOf(core.NowFunc())
	to := from.AddDate(0, 0, days-1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := svc.Sweep(ctx, from, to)
	if err != nil {
		logger.Error(fmt.Sprintf("sweep %s..%s: %v", from.Format(core.DateLayout), to.Format(core.DateLayout), err), err)
		return
	}
	logger.Info(fmt.Sprintf("sweep %s..%s: %d substitutes assigned", from.Format(core.DateLayout), to.Format(core.DateLayout), n))
}
