package models

// Registration statuses for a single rule.
const (
	RegistrationRegistered = "registered"
	RegistrationSkipped    = "skipped" // failed structural pre-flight
	RegistrationFailed     = "failed"  // engine rejected the plugin
)

// RegistrationOutcome is the result of attempting one rule.
type RegistrationOutcome struct {
	SemanticType string `json:"semantic_type" yaml:"semantic_type"`
	Status       string `json:"status" yaml:"status"`
	Reason       string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// RegistrationReport aggregates per-rule outcomes of a batch.
type RegistrationReport struct {
	Registered int                   `json:"registered" yaml:"registered"`
	Skipped    int                   `json:"skipped" yaml:"skipped"`
	Failed     int                   `json:"failed" yaml:"failed"`
	Outcomes   []RegistrationOutcome `json:"outcomes" yaml:"outcomes"`
}

// Add records an outcome and updates the counters.
func (r *RegistrationReport) Add(o RegistrationOutcome) {
	switch o.Status {
	case RegistrationRegistered:
		r.Registered++
	case RegistrationSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}
