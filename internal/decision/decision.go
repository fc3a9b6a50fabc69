// Package decision turns resolved policies into an enforcement verdict and
// orchestrates the classify -> resolve -> decide -> dispatch pipeline.
package decision

import (
	"github.com/kestrelsec/aegis/internal/models"
)

// Verdict is the urgency classification produced for a threat record.
type Verdict string

const (
	NoActionRequired           Verdict = "NO_ACTION_REQUIRED"
	StandardMitigationRequired Verdict = "STANDARD_MITIGATION_REQUIRED"
	ImmediateActionRequired    Verdict = "IMMEDIATE_ACTION_REQUIRED"
)

// severityRank fixes the ordinal severity mapping.
var severityRank = map[string]int{
	models.SeverityLow:      1,
	models.SeverityMedium:   2,
	models.SeverityHigh:     3,
	models.SeverityCritical: 4,
}

// immediateThreshold: only severities strictly above HIGH (i.e. CRITICAL)
// trigger immediate action. This matches the reference behavior; whether HIGH
// should also qualify is an open product question.
const immediateThreshold = 3

// Rank returns the ordinal rank of a severity label, defaulting to LOW for
// unknown labels.
func Rank(severity string) int {
	if r, ok := severityRank[severity]; ok {
		return r
	}
	return severityRank[models.SeverityLow]
}

// MaxSeverity returns the highest severity label among the policies, or LOW
// when the set is empty.
func MaxSeverity(policies []models.Policy) string {
	max := 0
	label := models.SeverityLow
	for _, p := range policies {
		if r := Rank(p.Severity); r > max {
			max = r
			label = p.Severity
		}
	}
	return label
}

// Decide derives the verdict for a set of applicable policies. It is pure and
// has no failure modes: an empty set means no action is required, a CRITICAL
// policy demands immediate action, anything else standard mitigation.
func Decide(policies []models.Policy) Verdict {
	if len(policies) == 0 {
		return NoActionRequired
	}

	maxSev := 0
	for _, p := range policies {
		if r := Rank(p.Severity); r > maxSev {
			maxSev = r
		}
	}

	if maxSev > immediateThreshold {
		return ImmediateActionRequired
	}
	return StandardMitigationRequired
}
