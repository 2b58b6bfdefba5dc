// internal/models/verdict.go
package models

type Verdict string

const (
	VerdictAllow Verdict = "ALLOW"
	VerdictWarn  Verdict = "WARN"
	VerdictBlock Verdict = "BLOCK"
)

// SafetyVerdict is the outcome of a policy evaluation.
type SafetyVerdict struct {
	Verdict             Verdict  `json:"verdict"`
	Reason              string   `json:"reason,omitempty"`
	ViolatedPolicies    []string `json:"violatedPolicies,omitempty"`
	AlternativeGuidance string   `json:"alternativeGuidance,omitempty"`
}

func (v *SafetyVerdict) Blocked() bool { return v != nil && v.Verdict == VerdictBlock }

// IntentResult is the outcome of intent classification.
type IntentResult struct {
	PrimaryIntent      string                 `json:"primaryIntent"`
	Confidence         float64                `json:"confidence"`
	AlternativeIntents []string               `json:"alternativeIntents,omitempty"`
	ExtractedSlots     map[string]interface{} `json:"extractedSlots,omitempty"`
}
