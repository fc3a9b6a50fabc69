package models

import "strings"

// Severity levels ordered LOW < MEDIUM < HIGH < CRITICAL.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Policy is a compliance rule: a severity plus an ordered list of remediation
// controls. Policies are read-only to the decision and enforcement cores.
type Policy struct {
	PolicyID string `gorm:"primaryKey" json:"policy_id"`
	Name     string `json:"name"`
	Severity string `json:"severity"`
	// Controls is a comma-separated, ordered list of control identifiers,
	// e.g. "DISABLE_SMBv1" or "BLOCK_RDP_PORT,ENABLE_FIREWALL".
	Controls string `json:"controls"`
	// Default marks the generic fallback policy returned when no binding
	// matches a threat class.
	Default bool `json:"default" gorm:"index"`
}

// ControlList splits the ordered control identifiers.
func (p Policy) ControlList() []string {
	if p.Controls == "" {
		return nil
	}
	parts := strings.Split(p.Controls, ",")
	out := make([]string, 0, len(parts))
	for _, c := range parts {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// ThreatClassBinding associates an enumerated threat-class label with a policy.
// Lookups are exact-match on ThreatClass; there is deliberately no substring
// matching so a class like "NON_RANSOMWARE" can never collide with a
// ransomware rule.
type ThreatClassBinding struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ThreatClass string `gorm:"index:idx_class_policy,unique" json:"threat_class"`
	PolicyID    string `gorm:"index:idx_class_policy,unique" json:"policy_id"`
}
