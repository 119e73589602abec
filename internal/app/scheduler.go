package app

import (
	"context"

	"go.uber.org/zap"
)

// StartBackgroundJobs runs the cron jobs until ctx is done
func (a *Application) StartBackgroundJobs(ctx context.Context) {
	if a.sched == nil {
		return
	}
	a.sched.Start()
	zap.L().Info("background jobs started",
		zap.String("namespace", "app"),
		zap.Int("entries", len(a.sched.Entries())))
	go func() {
		<-ctx.Done()
		<-a.sched.Stop().Done()
		zap.L().Info("background jobs stopped", zap.String("namespace", "app"))
	}()
}
