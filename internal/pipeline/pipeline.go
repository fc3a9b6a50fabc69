// Package pipeline orchestrates the decision path for incoming threat
// records: classify, resolve policies, decide, dispatch. It is stateless and
// safe to invoke concurrently for independent batches.
package pipeline

import (
	"context"
	"sort"

	"github.com/kestrelsec/aegis/internal/classifier"
	"github.com/kestrelsec/aegis/internal/decision"
	"github.com/kestrelsec/aegis/internal/dispatch"
	"github.com/kestrelsec/aegis/internal/logger"
	"github.com/kestrelsec/aegis/internal/metrics"
	"github.com/kestrelsec/aegis/internal/models"
	"github.com/kestrelsec/aegis/internal/policy"
)

// Outcome is the per-record pipeline output. Err is set (and Result.Status is
// ERROR) when the record could not be classified or its policies resolved; a
// failed record never aborts the rest of the batch.
type Outcome struct {
	ThreatID    string           `json:"threat_id"`
	ThreatClass string           `json:"threat_class,omitempty"`
	Verdict     decision.Verdict `json:"verdict,omitempty"`
	Result      dispatch.Result  `json:"result"`
	Err         error            `json:"-"`
}

// Pipeline wires the classifier, policy store and dispatcher.
type Pipeline struct {
	classifier classifier.Classifier
	policies   policy.Store
	dispatcher *dispatch.Dispatcher
}

// New returns a Pipeline over the given collaborators.
func New(c classifier.Classifier, p policy.Store, d *dispatch.Dispatcher) *Pipeline {
	return &Pipeline{classifier: c, policies: p, dispatcher: d}
}

// Process runs each threat record through the decision path. The output has
// exactly one entry per input record, in input order.
func (p *Pipeline) Process(ctx context.Context, batch []models.Threat) []Outcome {
	outcomes := make([]Outcome, 0, len(batch))
	for _, threat := range batch {
		outcomes = append(outcomes, p.processOne(ctx, threat))
	}
	return outcomes
}

func (p *Pipeline) processOne(ctx context.Context, threat models.Threat) Outcome {
	log := logger.WithComponent("pipeline").WithField("threat_id", threat.ID)
	metrics.IncThreatProcessed()

	out := Outcome{ThreatID: threat.ID}

	text := threat.Title + " " + threat.Description
	class, err := p.classifier.Classify(ctx, text)
	if err != nil {
		log.WithError(err).Error("classification failed")
		metrics.IncPipelineError()
		out.Result = dispatch.Result{Status: dispatch.StatusError, Detail: err.Error()}
		out.Err = err
		return out
	}
	out.ThreatClass = class

	policies, err := p.policies.PoliciesFor(ctx, class)
	if err != nil {
		log.WithError(err).Error("policy resolution failed")
		metrics.IncPipelineError()
		out.Result = dispatch.Result{Status: dispatch.StatusError, Detail: err.Error()}
		out.Err = err
		return out
	}

	verdict := decision.Decide(policies)
	out.Verdict = verdict

	meta := dispatch.Metadata{
		ThreatID:          threat.ID,
		ThreatClass:       class,
		ThreatDescription: threat.Description,
		PolicyIDs:         policyIDs(policies),
		Severity:          decision.MaxSeverity(policies),
		Controls:          orderedControls(policies),
	}

	result, err := p.dispatcher.Dispatch(ctx, verdict, meta)
	out.Result = result
	if err != nil {
		log.WithError(err).Error("dispatch failed")
		metrics.IncPipelineError()
		out.Err = err
		return out
	}

	log.WithFields(map[string]interface{}{
		"threat_class": class,
		"verdict":      verdict,
		"status":       result.Status,
	}).Info("threat processed")
	return out
}

func policyIDs(policies []models.Policy) []string {
	ids := make([]string, 0, len(policies))
	for _, p := range policies {
		ids = append(ids, p.PolicyID)
	}
	return ids
}

// orderedControls flattens policy controls with the highest-severity policy
// first, preserving each policy's own control order. The leading control is
// the one the dispatcher records as the action to enforce.
func orderedControls(policies []models.Policy) []string {
	sorted := make([]models.Policy, len(policies))
	copy(sorted, policies)
	sort.SliceStable(sorted, func(i, j int) bool {
		return decision.Rank(sorted[i].Severity) > decision.Rank(sorted[j].Severity)
	})

	var controls []string
	for _, p := range sorted {
		controls = append(controls, p.ControlList()...)
	}
	return controls
}
