package validation

import "github.com/aeci-mmu/fieldforms/internal/domain/entity"

// Policy decides which findings stop a save
type Policy struct {
	// AllowErrors lets ERROR findings through. CRITICAL findings always block.
	AllowErrors bool
}

// SubmitPolicy blocks on ERROR and CRITICAL
var SubmitPolicy = Policy{}

// DraftPolicy only blocks on CRITICAL
var DraftPolicy = Policy{AllowErrors: true}

// Result is the outcome of one validation run: Valid when it carries no
// findings, Invalid otherwise.
type Result struct {
	findings []entity.ValidationFinding
}

// NewResult wraps a list of findings
func NewResult(findings []entity.ValidationFinding) Result {
	return Result{findings: findings}
}

// IsValid reports whether no findings were produced
func (r Result) IsValid() bool {
	return len(r.findings) == 0
}

// Findings returns a copy of the findings in the order they were produced
func (r Result) Findings() []entity.ValidationFinding {
	out := make([]entity.ValidationFinding, len(r.findings))
	copy(out, r.findings)
	return out
}

// Count returns how many findings have the given severity
func (r Result) Count(severity entity.Severity) int {
	n := 0
	for _, f := range r.findings {
		if f.Severity == severity {
			n++
		}
	}
	return n
}

// HasCritical reports whether any finding is CRITICAL
func (r Result) HasCritical() bool {
	return r.Count(entity.SeverityCritical) > 0
}

// Blocks reports whether the result stops a save under the given policy
func (r Result) Blocks(policy Policy) bool {
	if r.HasCritical() {
		return true
	}
	return !policy.AllowErrors && r.Count(entity.SeverityError) > 0
}

// Merge appends more findings, returning a new result
func (r Result) Merge(more []entity.ValidationFinding) Result {
	out := make([]entity.ValidationFinding, 0, len(r.findings)+len(more))
	out = append(out, r.findings...)
	out = append(out, more...)
	return Result{findings: out}
}
