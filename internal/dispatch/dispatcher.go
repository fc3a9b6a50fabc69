// Package dispatch turns a verdict into a durably recorded, auditable action:
// one ledger write plus one action row per dispatch attempt.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kestrelsec/aegis/internal/decision"
	"github.com/kestrelsec/aegis/internal/ledger"
	"github.com/kestrelsec/aegis/internal/logger"
	"github.com/kestrelsec/aegis/internal/metrics"
	"github.com/kestrelsec/aegis/internal/models"
	"github.com/kestrelsec/aegis/internal/store"
)

// Dispatch result statuses. ERROR is reserved for pipeline-level failures
// (classification) and never produced by the dispatcher itself.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
	StatusError   = "ERROR"
)

// Metadata carries the decision context preserved on every action record.
type Metadata struct {
	ThreatID          string   `json:"threat_id"`
	ThreatClass       string   `json:"threat_class"`
	ThreatDescription string   `json:"threat_description"`
	PolicyIDs         []string `json:"policies"`
	Severity          string   `json:"severity"`
	// Controls is ordered with the highest-severity policy's controls first;
	// the leading control becomes the action to enforce.
	Controls        []string `json:"controls"`
	TargetEndpoints []string `json:"target_endpoints,omitempty"`
}

// Result reports the outcome of one dispatch attempt.
type Result struct {
	ActionID      string        `json:"action_id"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	Status        string        `json:"status"`
	Elapsed       time.Duration `json:"elapsed"`
	Detail        string        `json:"detail,omitempty"`
}

// Feedback is invoked after every dispatch attempt, successful or not. It
// feeds any downstream learning or monitoring system; a no-op is valid.
type Feedback func(Result)

// Dispatcher records decisions in the ledger and the action store.
type Dispatcher struct {
	actions  *store.ActionStore
	ledger   ledger.Ledger
	feedback Feedback
}

// New returns a Dispatcher. feedback may be nil.
func New(actions *store.ActionStore, l ledger.Ledger, feedback Feedback) *Dispatcher {
	return &Dispatcher{actions: actions, ledger: l, feedback: feedback}
}

type ledgerEntry struct {
	Verdict  decision.Verdict `json:"verdict"`
	Metadata Metadata         `json:"metadata"`
}

// Dispatch performs the ledger write and creates the action record. A failed
// ledger write still produces an action row (for audit and later re-dispatch)
// but no correlation id, and is not retried here. The feedback hook runs
// after every attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, verdict decision.Verdict, meta Metadata) (Result, error) {
	result := Result{Status: StatusSuccess}
	defer func() {
		metrics.IncDispatch(result.Status)
		if d.feedback != nil {
			d.feedback(result)
		}
	}()

	payload, err := json.Marshal(ledgerEntry{Verdict: verdict, Metadata: meta})
	if err != nil {
		result.Status = StatusFailed
		result.Detail = err.Error()
		return result, fmt.Errorf("encode ledger entry: %w", err)
	}

	start := time.Now()
	txID, ledgerErr := d.ledger.Submit(ctx, payload)
	result.Elapsed = time.Since(start)

	actionTaken := models.ActionNone
	if verdict != decision.NoActionRequired && len(meta.Controls) > 0 {
		actionTaken = meta.Controls[0]
	}

	action := models.Action{
		ThreatID:          meta.ThreatID,
		ActionTaken:       actionTaken,
		TargetEndpoints:   joinIDs(meta.TargetEndpoints),
		CorrelationID:     txID,
		ThreatClass:       meta.ThreatClass,
		ThreatDescription: meta.ThreatDescription,
		PolicyIDs:         joinIDs(meta.PolicyIDs),
		Severity:          meta.Severity,
	}
	if actionTaken == models.ActionNone {
		// Nothing to enforce: the row is audit-only and born terminal so the
		// enforcement loop never claims it.
		now := time.Now()
		action.Status = models.ActionExecuted
		action.ExecutedAt = &now
	}

	if err := d.actions.Create(ctx, &action); err != nil {
		result.Status = StatusFailed
		result.Detail = err.Error()
		return result, fmt.Errorf("create action record: %w", err)
	}
	result.ActionID = action.ID

	if ledgerErr != nil {
		logger.WithComponent("dispatcher").
			WithField("action_id", action.ID).
			WithError(ledgerErr).
			Warn("ledger write failed; action recorded without correlation id")
		result.Status = StatusFailed
		result.Detail = ledgerErr.Error()
		return result, nil
	}

	result.CorrelationID = txID
	return result, nil
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}
