package model

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sqids/sqids-go"
)

// Record is a persisted fact check (FactCheckRecord). It is created once per
// submission; Result may be recomputed and Votes change over its life.
// Records are never deleted.
type Record struct {
	ID          string       `json:"id" firestore:"id"`
	Claim       string       `json:"claim" firestore:"claim"`
	Sources     []string     `json:"sources" firestore:"sources"`
	Keywords    []string     `json:"keywords,omitempty" firestore:"keywords,omitempty"` // Inert metadata
	Result      Result       `json:"result" firestore:"result"`
	SubmittedBy string       `json:"submitted_by" firestore:"submitted_by"`
	SourceInfo  []SourceInfo `json:"source_info,omitempty" firestore:"source_info,omitempty"` // Display only
	ReportCount int          `json:"report_count" firestore:"report_count"`
	CreatedAt   time.Time    `json:"created_at" firestore:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" firestore:"updated_at"`

	// Votes is filled on read from the vote ledger, never stored on the record itself
	Votes []CommunityVote `json:"community_votes,omitempty" firestore:"-"`
}

var (
	recordIDs     *sqids.Sqids
	recordCounter atomic.Uint64
)

func init() {
	s, err := sqids.New(sqids.Options{MinLength: 10})
	if err != nil {
		panic(fmt.Sprintf("init record id encoder: %v", err))
	}
	recordIDs = s
}

// NewRecordID returns a short, shareable record identifier
func NewRecordID() string {
	id, err := recordIDs.Encode([]uint64{uint64(time.Now().UnixNano()), recordCounter.Add(1)})
	if err != nil {
		// Encode only fails on blocklist exhaustion; fall back to the raw timestamp
		return fmt.Sprintf("r%d", time.Now().UnixNano())
	}
	return id
}

// ListOptions filters record listings
type ListOptions struct {
	Query string // Case-insensitive substring of claim or any source
	Limit int
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Normalize applies the default and maximum limits
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	return o
}
