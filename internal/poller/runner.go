// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run connects every module, then polls until ctx is cancelled.
// A pass in progress always completes; the wait between passes is bounded
// by the interval. out is closed on return.
func (f *Fleet) Run(ctx context.Context, out chan<- PollResult) {
	defer close(out)
	if ctx.Err() != nil {
		return
	}

	n := f.ConnectAll(ctx)
	f.log.Info("modules connected", "connected", n, "total", len(f.hubs))

	for ctx.Err() == nil {
		start := time.Now()
		f.pollAll(func(r PollResult) { out <- r })
		f.logSummary()

		if f.cfg.OnPass != nil {
			online, total := f.Summary()
			f.cfg.OnPass(PassStats{Duration: time.Since(start), Online: online, Total: total})
		}

		if !sleep(ctx, f.cfg.Interval) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
