// Package enforcement hosts the durable enforcement engine: the action
// processor and endpoint monitor loops plus claim recovery.
package enforcement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kestrelsec/aegis/internal/logger"
	"github.com/kestrelsec/aegis/internal/notify"
	"github.com/kestrelsec/aegis/internal/store"
)

// Config carries the engine loop cadences and bounds.
type Config struct {
	PollInterval    time.Duration
	PollBackoff     time.Duration
	MonitorInterval time.Duration
	MonitorBackoff  time.Duration
	ExecTimeout     time.Duration
	ClaimBatchSize  int
	StaleClaimAge   time.Duration
	SweepInterval   time.Duration
}

// Engine runs the two enforcement loops and the stale-claim recovery sweep.
type Engine struct {
	processor  *Processor
	monitor    *Monitor
	actions    *store.ActionStore
	staleAge   time.Duration
	sweepEvery time.Duration
}

// NewEngine wires an enforcement engine from its collaborators.
func NewEngine(cfg Config, actions *store.ActionStore, endpoints *store.EndpointStore,
	runner Runner, prober Prober, notifier *notify.Service) *Engine {
	return &Engine{
		processor: NewProcessor(actions, endpoints, runner, notifier,
			cfg.PollInterval, cfg.PollBackoff, cfg.ExecTimeout, cfg.ClaimBatchSize),
		monitor: NewMonitor(endpoints, prober, notifier,
			cfg.MonitorInterval, cfg.MonitorBackoff),
		actions:    actions,
		staleAge:   cfg.StaleClaimAge,
		sweepEvery: cfg.SweepInterval,
	}
}

// Run starts both loops and blocks until ctx is cancelled. A recovery sweep
// runs at startup so EXECUTING records orphaned by a previous crash are
// re-queued, and a scheduled sweep keeps catching claims that go stale while
// running.
func (e *Engine) Run(ctx context.Context) {
	log := logger.WithComponent("enforcement-engine")

	if n, err := e.actions.ReclaimStale(ctx, e.staleAge); err != nil {
		log.WithError(err).Error("startup claim recovery failed")
	} else if n > 0 {
		log.WithField("reclaimed", n).Warn("re-queued stale executing actions from previous run")
	}

	sweepEvery := e.sweepEvery
	if sweepEvery <= 0 {
		sweepEvery = 5 * time.Minute
	}

	sched := cron.New()
	if _, err := sched.AddFunc(fmt.Sprintf("@every %s", sweepEvery), func() {
		if n, err := e.actions.ReclaimStale(ctx, e.staleAge); err != nil {
			log.WithError(err).Error("stale claim sweep failed")
		} else if n > 0 {
			log.WithField("reclaimed", n).Warn("re-queued stale executing actions")
		}
	}); err != nil {
		log.WithError(err).Error("failed to schedule stale claim sweep")
	}
	sched.Start()
	defer sched.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.processor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		e.monitor.Run(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	log.Info("enforcement engine stopped")
}
