// Package classifier defines the boundary to the threat classification model.
// The model itself (training, embeddings) lives in an external service; this
// package only maps free text to a stable label from a known label space.
package classifier

import (
	"context"
	"errors"
	"strings"
)

// Known threat-class labels. The policy store binds policies to these exact
// labels; classifiers must not invent labels outside this space.
const (
	ClassSMB        = "SMB_THREAT"
	ClassPhishing   = "PHISHING_THREAT"
	ClassRansomware = "RANSOMWARE_THREAT"
	ClassRDP        = "RDP_THREAT"
	ClassGeneric    = "GENERIC_THREAT"
)

// ErrEmptyInput is returned when there is no text to classify.
var ErrEmptyInput = errors.New("classifier: empty input text")

// Classifier maps free text to a threat-class label.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// Keyword is a deterministic keyword-based classifier used when no model
// service is configured. It mirrors the label space of the trained model.
type Keyword struct{}

var keywordClasses = []struct {
	class    string
	keywords []string
}{
	{ClassSMB, []string{"smbv1", "smb ", "smb protocol", "eternalblue"}},
	{ClassRansomware, []string{"ransomware", "ransom", "encrypted files", "lockbit"}},
	{ClassPhishing, []string{"phishing", "phish", "credential harvest", "spoofed email"}},
	{ClassRDP, []string{"rdp", "remote desktop", "port 3389"}},
}

// Classify returns the first class whose keyword list matches the text,
// falling back to GENERIC_THREAT.
func (Keyword) Classify(_ context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}

	lowered := strings.ToLower(text)
	for _, c := range keywordClasses {
		for _, kw := range c.keywords {
			if strings.Contains(lowered, kw) {
				return c.class, nil
			}
		}
	}

	return ClassGeneric, nil
}
