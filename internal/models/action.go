package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Action lifecycle status. Transitions are monotonic:
// PENDING -> EXECUTING -> {EXECUTED | FAILED}. Terminal states are never
// re-entered; EXECUTING may fall back to PENDING only through an explicit
// claim release (unmapped action) or the stale-claim recovery sweep.
const (
	ActionPending   = "PENDING"
	ActionExecuting = "EXECUTING"
	ActionExecuted  = "EXECUTED"
	ActionFailed    = "FAILED"
)

// ActionNone is recorded when a dispatch carried no enforcement control.
// Such rows are audit-only and are written already terminal.
const ActionNone = "NO_ACTION"

// Action is the durable, auditable unit representing "apply this control to
// these endpoints". It is created exactly once by the dispatcher and mutated
// only by the enforcement engine that holds its claim.
type Action struct {
	ID       string `gorm:"primaryKey" json:"id"`
	ThreatID string `gorm:"index" json:"threat_id"`

	ActionTaken string `json:"action_taken"`
	// TargetEndpoints is a comma-separated list of endpoint IDs. Empty means
	// the target inventory is resolved at execution time (all ONLINE hosts).
	TargetEndpoints string `json:"target_endpoints"`

	Status        string `gorm:"index" json:"status"`
	CorrelationID string `json:"correlation_id"`

	// ClaimToken identifies the current claim. It is minted at claim time and
	// required to finish or release the claim, so an owner whose claim was
	// re-queued by the stale sweep can no longer mutate the row.
	ClaimToken string `json:"-"`
	// OperatorAlerted records that the one-time unmapped-control alert for
	// this action has been sent.
	OperatorAlerted bool `json:"operator_alerted"`

	// Decision metadata, preserved for audit.
	ThreatClass       string `json:"threat_class"`
	ThreatDescription string `gorm:"type:text" json:"threat_description"`
	PolicyIDs         string `json:"policy_ids"` // comma-separated
	Severity          string `json:"severity"`

	Output string `gorm:"type:text" json:"output,omitempty"`

	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
}

func (a *Action) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = ActionPending
	}
	return
}

// Targets splits the comma-separated target endpoint IDs.
func (a Action) Targets() []string {
	if a.TargetEndpoints == "" {
		return nil
	}
	parts := strings.Split(a.TargetEndpoints, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Terminal reports whether the action reached a final state.
func (a Action) Terminal() bool {
	return a.Status == ActionExecuted || a.Status == ActionFailed
}
