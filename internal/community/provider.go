// Package community turns recorded votes into a community trust score
package community

import (
	"context"
	"fmt"

	"github.com/safeprotest/factcheck/internal/model"
	"github.com/safeprotest/factcheck/internal/store"
)

// NeutralScore is returned when nobody has voted
const NeutralScore = 0.5

// voteWeight maps each vote onto [0,1]
var voteWeight = map[model.VoteValue]float64{
	model.VoteTrue:     1,
	model.VoteDisputed: 0.5,
	model.VoteFalse:    0,
}

// Key identifies the claim a community score is requested for
type Key struct {
	RecordID string
	Claim    string
}

// RecordKey addresses the votes of one submitted record
func RecordKey(id string) Key {
	return Key{RecordID: id}
}

// TextKey addresses ad-hoc claim text: the votes of every record whose claim
// is byte-identical are pooled
func TextKey(claim string) Key {
	return Key{Claim: claim}
}

// String is used as the memo key
func (k Key) String() string {
	if k.RecordID != "" {
		return "record:" + k.RecordID
	}
	return "text:" + k.Claim
}

// Provider returns the community score for a claim in [0,1]
type Provider interface {
	Score(ctx context.Context, key Key) (float64, error)
}

// LedgerProvider reads scores from the vote ledger
type LedgerProvider struct {
	records store.RecordStore
	ledger  store.Ledger
}

// NewLedgerProvider creates a provider over a store
func NewLedgerProvider(records store.RecordStore, ledger store.Ledger) *LedgerProvider {
	return &LedgerProvider{records: records, ledger: ledger}
}

// Score aggregates votes for the key. An unknown record or unseen claim text
// has no votes and scores NeutralScore.
func (p *LedgerProvider) Score(ctx context.Context, key Key) (float64, error) {
	votes, err := p.Votes(ctx, key)
	if err != nil {
		return 0, err
	}
	return Aggregate(votes), nil
}

// Votes returns the votes behind a key, one per voter
func (p *LedgerProvider) Votes(ctx context.Context, key Key) ([]model.CommunityVote, error) {
	if key.RecordID != "" {
		votes, err := p.ledger.ListVotes(ctx, key.RecordID)
		if err != nil {
			return nil, fmt.Errorf("list votes: %w", err)
		}
		return votes, nil
	}

	ids, err := p.records.FindByClaim(ctx, key.Claim)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}

	// Newest vote wins when a voter voted on several copies of the claim
	latest := make(map[string]model.CommunityVote)
	var order []string
	for _, id := range ids {
		votes, err := p.ledger.ListVotes(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("list votes: %w", err)
		}
		for _, v := range votes {
			prev, seen := latest[v.VoterID]
			if !seen {
				order = append(order, v.VoterID)
			}
			if !seen || v.Timestamp.After(prev.Timestamp) {
				latest[v.VoterID] = v
			}
		}
	}

	out := make([]model.CommunityVote, 0, len(order))
	for _, voter := range order {
		out = append(out, latest[voter])
	}
	return out, nil
}

// Aggregate is the mean vote weight, or NeutralScore with no votes
func Aggregate(votes []model.CommunityVote) float64 {
	total := 0.0
	counted := 0
	for _, v := range votes {
		w, ok := voteWeight[v.Vote]
		if !ok {
			continue
		}
		total += w
		counted++
	}
	if counted == 0 {
		return NeutralScore
	}
	return total / float64(counted)
}

// Static always returns the same score
type Static float64

// Score returns s
func (s Static) Score(ctx context.Context, key Key) (float64, error) {
	return float64(s), nil
}
