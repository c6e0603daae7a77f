package model

// Status is the four-way verdict for a claim
type Status string

const (
	StatusVerified   Status = "verified"
	StatusFalse      Status = "false"
	StatusUnverified Status = "unverified"
	StatusDisputed   Status = "disputed"
)

// Valid reports whether s is one of the four verdicts
func (s Status) Valid() bool {
	switch s {
	case StatusVerified, StatusFalse, StatusUnverified, StatusDisputed:
		return true
	}
	return false
}

// Result is the outcome of one evaluation (FactCheckResult).
// These five fields are exactly what gets persisted for re-display.
type Result struct {
	Score      float64  `json:"score" firestore:"score"`           // 0-1, higher = more credible
	Status     Status   `json:"status" firestore:"status"`         // Pure function of Score
	Confidence float64  `json:"confidence" firestore:"confidence"` // Distance from neutral plus source bonus
	Sources    []string `json:"sources" firestore:"sources"`       // Echo of the input sources
	Reasoning  []string `json:"reasoning" firestore:"reasoning"`   // Signals that fired, fixed order
}

// Breakdown exposes the three sub-scores that produced a Result
type Breakdown struct {
	Suspicion         float64 `json:"suspicion"`
	SourceReliability float64 `json:"source_reliability"`
	Community         float64 `json:"community"`
	Overall           float64 `json:"overall"`
}

// Evaluation wraps a Result with the diagnostic data behind it.
// Only Result is persisted; the rest is recomputed on demand.
type Evaluation struct {
	Claim     string    `json:"claim"`
	Result    Result    `json:"result"`
	Breakdown Breakdown `json:"breakdown"`
	Keywords  []string  `json:"keywords,omitempty"`
	Signals   []Signal  `json:"signals,omitempty"`
}
