package service

import (
	"context"
	"time"
)

// Run refreshes the aggregate until ctx is cancelled, rescheduling after
// each refresh according to its report. A failed refresh is retried after
// MinRefreshInterval.
func (a *Aggregator) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		report, err := a.Refresh(ctx)
		next := report.NextRefresh
		if err != nil || next <= 0 {
			next = MinRefreshInterval
		}
		a.logger.DebugContext(ctx, "next refresh scheduled", "in", next)
		timer.Reset(next)
	}
}
