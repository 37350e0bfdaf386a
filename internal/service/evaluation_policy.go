package service

import (
	"encoding/json"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

// DefaultEvaluationReason is used when a delivery is accepted without an
// explicit policy.
const DefaultEvaluationReason = "Succesful"

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// EvaluationPolicyOptions configures an EvaluationPolicy.
type EvaluationPolicyOptions struct {
	// Expression is evaluated against {"job": ..., "deliverable": ...}. An
	// empty expression accepts every delivery.
	Expression string
	Evaluator  JMESPathEvaluator // Optional: defaults to go-jmespath
}

// EvaluationPolicy decides whether a delivery is accepted.
type EvaluationPolicy struct {
	expr string
	jems JMESPathEvaluator
}

// NewEvaluationPolicy compiles the configured expression.
func NewEvaluationPolicy(opts EvaluationPolicyOptions) (*EvaluationPolicy, error) {
	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}
	expr := strings.TrimSpace(opts.Expression)
	if err := jems.Validate(expr); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "invalid evaluation expression %q", expr)
	}
	return &EvaluationPolicy{expr: expr, jems: jems}, nil
}

// Decide returns whether job's deliverable is accepted and the reason to
// sign with.
func (p *EvaluationPolicy) Decide(job *model.Job) (bool, string, error) {
	if p == nil || p.expr == "" {
		return true, DefaultEvaluationReason, nil
	}
	doc, err := evaluationDocument(job)
	if err != nil {
		return false, "", err
	}
	out, err := p.jems.Evaluate(p.expr, doc)
	if err != nil {
		return false, "", fmt.Errorf("evaluate %q: %w", p.expr, err)
	}
	if truthy(out) {
		return true, DefaultEvaluationReason, nil
	}
	return false, fmt.Sprintf("Deliverable does not satisfy %s", p.expr), nil
}

// evaluationDocument renders the job as plain JSON values. A deliverable
// that is itself JSON is decoded so expressions can reach into it.
func evaluationDocument(job *model.Job) (map[string]any, error) {
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job %d: %w", job.ID, err)
	}
	var jobDoc any
	if err := json.Unmarshal(raw, &jobDoc); err != nil {
		return nil, fmt.Errorf("decode job %d: %w", job.ID, err)
	}
	var deliverable any
	if content, ok := job.Deliverable(); ok {
		if err := json.Unmarshal([]byte(content), &deliverable); err != nil {
			deliverable = content
		}
	}
	return map[string]any{"job": jobDoc, "deliverable": deliverable}, nil
}

// truthy follows JMESPath truthiness.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
