package enforcement

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kestrelsec/aegis/internal/logger"
	"github.com/kestrelsec/aegis/internal/metrics"
	"github.com/kestrelsec/aegis/internal/models"
	"github.com/kestrelsec/aegis/internal/notify"
	"github.com/kestrelsec/aegis/internal/store"
)

// Processor drives pending actions to completion: claim, map to a playbook,
// build inventory, execute remotely, record the terminal status.
type Processor struct {
	actions   *store.ActionStore
	endpoints *store.EndpointStore
	runner    Runner
	notifier  *notify.Service

	interval    time.Duration
	backoff     time.Duration
	execTimeout time.Duration
	batchSize   int

	log *logrus.Entry
}

// NewProcessor wires an action processor. notifier may be nil.
func NewProcessor(actions *store.ActionStore, endpoints *store.EndpointStore, runner Runner,
	notifier *notify.Service, interval, backoff, execTimeout time.Duration, batchSize int) *Processor {
	return &Processor{
		actions:     actions,
		endpoints:   endpoints,
		runner:      runner,
		notifier:    notifier,
		interval:    interval,
		backoff:     backoff,
		execTimeout: execTimeout,
		batchSize:   batchSize,
		log:         logger.WithComponent("action-processor"),
	}
}

// Run polls for pending actions until ctx is cancelled. Poll errors never
// terminate the loop; they are logged and the loop backs off before retrying.
func (p *Processor) Run(ctx context.Context) {
	p.log.WithField("interval", p.interval).Info("action processor started")
	for {
		delay := p.interval
		if err := p.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			p.log.WithError(err).Error("action poll failed; backing off")
			delay = p.backoff
		}

		if !sleep(ctx, delay) {
			break
		}
	}
	p.log.Info("action processor stopped")
}

// runOnce claims one batch of pending actions and executes each in turn. A
// store error on one action never strands the rest of the batch; the first
// error is reported for backoff after the batch is drained.
func (p *Processor) runOnce(ctx context.Context) error {
	claimed, err := p.actions.ClaimPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("claim pending actions: %w", err)
	}

	var firstErr error
	for _, action := range claimed {
		if ctx.Err() != nil {
			// Shutdown mid-batch: remaining claims stay EXECUTING and are
			// re-queued by the stale-claim sweep after restart.
			return ctx.Err()
		}
		if err := p.execute(ctx, action); err != nil {
			if ctx.Err() != nil {
				return err
			}
			p.log.WithError(err).WithField("action_id", action.ID).
				Error("action errored; continuing with the rest of the batch")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (p *Processor) execute(ctx context.Context, action models.Action) error {
	log := p.log.WithFields(logrus.Fields{
		"action_id": action.ID,
		"action":    action.ActionTaken,
	})

	playbook, ok := PlaybookFor(action.ActionTaken)
	if !ok {
		// No automation for this control. Surface it once and put the record
		// back; never silently mark it EXECUTED or FAILED, and never alert
		// again on later re-claims of the same row.
		log.Warn("no playbook mapping for action; returning to pending for manual intervention")
		if !action.OperatorAlerted {
			p.notifyOp(models.NotificationTypeError, "Unmapped action type",
				fmt.Sprintf("action %s (%s) has no playbook mapping", action.ID, action.ActionTaken))
			if err := p.actions.MarkAlerted(ctx, action.ID); err != nil {
				log.WithError(err).Warn("failed to record unmapped-action alert")
			}
		}
		if err := p.actions.ReleaseClaim(ctx, action.ID, action.ClaimToken); err != nil {
			return fmt.Errorf("release unmapped action %s: %w", action.ID, err)
		}
		return nil
	}

	targets, err := p.endpoints.ResolveTargets(ctx, action.Targets())
	if err != nil {
		// Store blip: hand the claim back and let the loop back off.
		if relErr := p.actions.ReleaseClaim(ctx, action.ID, action.ClaimToken); relErr != nil {
			log.WithError(relErr).Error("failed to release claim after target resolution error")
		}
		return fmt.Errorf("resolve targets for action %s: %w", action.ID, err)
	}

	// Claims queued behind earlier long runs would otherwise age toward the
	// stale threshold; re-stamp ours just before the run. A conflict means
	// the sweep already took the claim back and someone else may own it.
	if err := p.actions.RefreshClaim(ctx, action.ID, action.ClaimToken); err != nil {
		log.Warn("claim lost before execution; skipping")
		return nil
	}

	inv := BuildInventory(targets)
	log.WithFields(logrus.Fields{"playbook": playbook, "targets": inv.Size()}).Info("executing action")

	execCtx, cancel := context.WithTimeout(ctx, p.execTimeout)
	result, runErr := p.runner.Run(execCtx, Job{
		Playbook:  playbook,
		Inventory: inv,
		Variables: map[string]interface{}{
			"action_id":          action.ID,
			"threat_description": action.ThreatDescription,
			"target_hosts":       inv.Groups(),
		},
	})
	cancel()

	if ctx.Err() != nil {
		// Shutdown while the job was in flight: leave the record EXECUTING
		// for the recovery sweep rather than guessing an outcome.
		log.Warn("shutdown during remote execution; leaving action for recovery sweep")
		return ctx.Err()
	}

	if runErr != nil {
		log.WithError(runErr).Error("remote execution errored")
		metrics.IncActionFailed()
		p.notifyOp(models.NotificationTypeError, "Action failed",
			fmt.Sprintf("action %s (%s): %v", action.ID, action.ActionTaken, runErr))
		if err := p.actions.MarkFailed(ctx, action.ID, action.ClaimToken, runErr.Error()); err != nil {
			return fmt.Errorf("mark action %s failed: %w", action.ID, err)
		}
		return nil
	}

	if !result.Success {
		log.Error("remote execution failed")
		metrics.IncActionFailed()
		p.notifyOp(models.NotificationTypeError, "Action failed",
			fmt.Sprintf("action %s (%s) failed on %d target(s)", action.ID, action.ActionTaken, inv.Size()))
		if err := p.actions.MarkFailed(ctx, action.ID, action.ClaimToken, result.Output); err != nil {
			return fmt.Errorf("mark action %s failed: %w", action.ID, err)
		}
		return nil
	}

	log.Info("action executed")
	metrics.IncActionExecuted()
	if err := p.actions.MarkExecuted(ctx, action.ID, action.ClaimToken, result.Output); err != nil {
		return fmt.Errorf("mark action %s executed: %w", action.ID, err)
	}
	return nil
}

func (p *Processor) notifyOp(nType models.NotificationType, title, message string) {
	if p.notifier == nil {
		return
	}
	if _, err := p.notifier.Notify(nType, title, message); err != nil {
		p.log.WithError(err).Warn("operator notification failed")
	}
}

// sleep waits for d or ctx cancellation, reporting false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
