package model

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`           // Signal classification
	Severity    SignalSeverity         `json:"severity"`       // info, warning, critical
	Description string                 `json:"description"`    // Human-readable description
	Data        map[string]interface{} `json:"data,omitempty"` // Formula inputs
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalSuspiciousLanguage SignalType = "suspicious_language" // Denylist, caps and punctuation hits
	SignalSourceReliability  SignalType = "source_reliability"  // Allowlisted sources ratio
	SignalCommunity          SignalType = "community"           // Aggregate of community votes
	SignalOverall            SignalType = "overall"             // Weighted combination
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
