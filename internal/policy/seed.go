package policy

import (
	"errors"

	"gorm.io/gorm"

	"github.com/kestrelsec/aegis/internal/classifier"
	"github.com/kestrelsec/aegis/internal/models"
)

// Defaults returns the baseline policy catalogue and its threat-class bindings.
func Defaults() ([]models.Policy, []models.ThreatClassBinding) {
	policies := []models.Policy{
		{PolicyID: "POL-SMB-001", Name: "Disable SMBv1 Policy", Severity: models.SeverityCritical, Controls: "DISABLE_SMBv1"},
		{PolicyID: "POL-PHISH-001", Name: "Enable MFA Policy", Severity: models.SeverityHigh, Controls: "ENABLE_MFA"},
		{PolicyID: "POL-RANSOM-001", Name: "Isolate Endpoint Policy", Severity: models.SeverityCritical, Controls: "ISOLATE_ENDPOINT"},
		{PolicyID: "POL-RDP-001", Name: "Block RDP Policy", Severity: models.SeverityCritical, Controls: "BLOCK_RDP_PORT,ENABLE_FIREWALL"},
		{PolicyID: "POL-GENERIC-001", Name: "Investigate Threat", Severity: models.SeverityMedium, Controls: "INVESTIGATE", Default: true},
	}

	bindings := []models.ThreatClassBinding{
		{ThreatClass: classifier.ClassSMB, PolicyID: "POL-SMB-001"},
		{ThreatClass: classifier.ClassPhishing, PolicyID: "POL-PHISH-001"},
		{ThreatClass: classifier.ClassRansomware, PolicyID: "POL-RANSOM-001"},
		{ThreatClass: classifier.ClassRDP, PolicyID: "POL-RDP-001"},
	}

	return policies, bindings
}

// Seed inserts the default catalogue, skipping rows that already exist.
func Seed(db *gorm.DB) error {
	policies, bindings := Defaults()

	for _, p := range policies {
		var existing models.Policy
		err := db.Where("policy_id = ?", p.PolicyID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&p).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}

	for _, b := range bindings {
		var existing models.ThreatClassBinding
		err := db.Where("threat_class = ? AND policy_id = ?", b.ThreatClass, b.PolicyID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&b).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}

	return nil
}
