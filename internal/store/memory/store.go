// Package memory provides an in-process store, used by tests and by the CLI
// when no persistent backend is configured.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safeprotest/factcheck/internal/model"
	"github.com/safeprotest/factcheck/internal/store"
)

type voteKey struct {
	recordID string
	voterID  string
}

// Store is a mutex-guarded in-memory store
type Store struct {
	mu      sync.RWMutex
	records map[string]*model.Record
	order   []string // insertion order
	votes   map[voteKey]*model.CommunityVote

	// Now is the clock used for timestamps
	Now func() time.Time
}

// Ensure Store implements the interface
var _ store.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		records: make(map[string]*model.Record),
		votes:   make(map[voteKey]*model.CommunityVote),
		Now:     time.Now,
	}
}

// CreateRecord stores a copy of rec
func (s *Store) CreateRecord(ctx context.Context, rec *model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = model.NewRecordID()
	}
	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("record %s already exists", rec.ID)
	}

	now := s.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	stored := cloneRecord(rec)
	stored.Votes = nil
	s.records[rec.ID] = stored
	s.order = append(s.order, rec.ID)
	return nil
}

// GetRecord returns a copy of the record
func (s *Store) GetRecord(ctx context.Context, id string) (*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("get record %s: %w", id, store.ErrNotFound)
	}
	return cloneRecord(rec), nil
}

// FindByClaim returns ids of records with an identical claim
func (s *Store) FindByClaim(ctx context.Context, claim string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, id := range s.order {
		if s.records[id].Claim == claim {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ListRecords returns matching records newest first
func (s *Store) ListRecords(ctx context.Context, opts model.ListOptions) ([]model.Record, error) {
	opts = opts.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Record{}
	for i := len(s.order) - 1; i >= 0; i-- {
		rec := s.records[s.order[i]]
		if store.MatchesQuery(rec, opts.Query) {
			out = append(out, *cloneRecord(rec))
		}
	}

	// Ties on created_at keep newest-inserted first
	slices.SortStableFunc(out, func(a, b model.Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// UpdateResult replaces the stored result
func (s *Store) UpdateResult(ctx context.Context, id string, result model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("update result %s: %w", id, store.ErrNotFound)
	}
	rec.Result = cloneResult(result)
	rec.UpdatedAt = s.Now().UTC()
	return nil
}

// UpsertVote inserts or overwrites a vote keyed by (record, voter)
func (s *Store) UpsertVote(ctx context.Context, recordID, voterID string, vote model.VoteValue, evidence string) (*model.CommunityVote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[recordID]; !ok {
		return nil, fmt.Errorf("upsert vote on %s: %w", recordID, store.ErrNotFound)
	}

	key := voteKey{recordID: recordID, voterID: voterID}
	now := s.Now().UTC()

	if existing, ok := s.votes[key]; ok {
		existing.Vote = vote
		existing.Evidence = evidence
		existing.Timestamp = now
		v := *existing
		return &v, nil
	}

	v := &model.CommunityVote{
		ID:        uuid.NewString(),
		RecordID:  recordID,
		VoterID:   voterID,
		Vote:      vote,
		Evidence:  evidence,
		Timestamp: now,
	}
	s.votes[key] = v
	out := *v
	return &out, nil
}

// ListVotes returns the votes on a record, oldest first
func (s *Store) ListVotes(ctx context.Context, recordID string) ([]model.CommunityVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.records[recordID]; !ok {
		return nil, fmt.Errorf("list votes on %s: %w", recordID, store.ErrNotFound)
	}

	votes := []model.CommunityVote{}
	for key, v := range s.votes {
		if key.recordID == recordID {
			votes = append(votes, *v)
		}
	}
	slices.SortFunc(votes, func(a, b model.CommunityVote) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.VoterID, b.VoterID)
	})
	return votes, nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

func cloneRecord(rec *model.Record) *model.Record {
	out := *rec
	out.Sources = slices.Clone(rec.Sources)
	out.Keywords = slices.Clone(rec.Keywords)
	out.SourceInfo = slices.Clone(rec.SourceInfo)
	out.Result = cloneResult(rec.Result)
	out.Votes = slices.Clone(rec.Votes)
	return &out
}

func cloneResult(r model.Result) model.Result {
	r.Sources = slices.Clone(r.Sources)
	r.Reasoning = slices.Clone(r.Reasoning)
	return r
}
