package enforcement

// playbooks maps an action control to the automation playbook that enforces
// it. Several firewall-adjacent controls share one playbook.
var playbooks = map[string]string{
	"DISABLE_SMBv1":    "disable-smbv1.yml",
	"ISOLATE_ENDPOINT": "isolate-endpoint.yml",
	"BLOCK_RDP_PORT":   "firewall-update.yml",
	"ENABLE_FIREWALL":  "firewall-update.yml",
	"UPDATE_FIREWALL":  "firewall-update.yml",
	"ENABLE_MFA":       "enable-mfa.yml",
}

// PlaybookFor resolves an action control to its playbook. The second return
// is false for controls with no automation; those stay pending for operator
// attention.
func PlaybookFor(action string) (string, bool) {
	pb, ok := playbooks[action]
	return pb, ok
}
