package entity

// Severity classifies a validation finding
type Severity string

// Severity constants, from advisory to safety-blocking
const (
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// IsBlocking reports whether findings of this severity stop a submission
func (s Severity) IsBlocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// ValidationFinding is one validation result item
type ValidationFinding struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}
