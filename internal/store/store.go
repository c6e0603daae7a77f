// Package store defines persistence for fact-check records and the community
// vote ledger. Backends live in the memory, sqlite and firestore subpackages.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/safeprotest/factcheck/internal/model"
)

// ErrNotFound is returned for an unknown record id
var ErrNotFound = errors.New("record not found")

// RecordStore persists fact-check records
type RecordStore interface {
	// CreateRecord stores a new record. ID, CreatedAt and UpdatedAt are
	// assigned when empty.
	CreateRecord(ctx context.Context, rec *model.Record) error

	// GetRecord returns a record without its votes
	GetRecord(ctx context.Context, id string) (*model.Record, error)

	// FindByClaim returns the ids of records whose claim text is byte-identical
	FindByClaim(ctx context.Context, claim string) ([]string, error)

	// ListRecords returns records newest first, filtered by opts.Query
	ListRecords(ctx context.Context, opts model.ListOptions) ([]model.Record, error)

	// UpdateResult replaces the persisted result of a record
	UpdateResult(ctx context.Context, id string, result model.Result) error
}

// Ledger is the community vote ledger. At most one vote exists per
// (record, voter); a second vote from the same voter overwrites the first.
type Ledger interface {
	// UpsertVote inserts or overwrites the voter's vote on a record atomically
	UpsertVote(ctx context.Context, recordID, voterID string, vote model.VoteValue, evidence string) (*model.CommunityVote, error)

	// ListVotes returns every vote on a record, oldest first
	ListVotes(ctx context.Context, recordID string) ([]model.CommunityVote, error)
}

// Store combines records and the vote ledger on one backend
type Store interface {
	RecordStore
	Ledger
	Close() error
}

// MatchesQuery reports whether a record matches a case-insensitive substring
// query on its claim or any source. An empty query matches everything.
func MatchesQuery(rec *model.Record, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(rec.Claim), q) {
		return true
	}
	for _, s := range rec.Sources {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}
