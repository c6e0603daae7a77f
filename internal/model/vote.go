package model

import (
	"fmt"
	"time"
)

// VoteValue is a voter's stance on a record. It is deliberately a separate
// type from Status: three values, not four.
type VoteValue string

const (
	VoteTrue     VoteValue = "true"
	VoteFalse    VoteValue = "false"
	VoteDisputed VoteValue = "disputed"
)

// voteDisplay maps votes onto verdicts for unified display only
var voteDisplay = map[VoteValue]Status{
	VoteTrue:     StatusVerified,
	VoteFalse:    StatusFalse,
	VoteDisputed: StatusDisputed,
}

// ParseVote validates raw input. Anything outside {true, false, disputed}
// is rejected with ErrInvalidVote, including case or whitespace variants.
func ParseVote(raw string) (VoteValue, error) {
	v := VoteValue(raw)
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidVote, raw)
	}
	return v, nil
}

// Valid reports whether v is a known vote value
func (v VoteValue) Valid() bool {
	_, ok := voteDisplay[v]
	return ok
}

// DisplayStatus returns the verdict a vote is shown as
func (v VoteValue) DisplayStatus() Status {
	return voteDisplay[v]
}

// CommunityVote is one user's stance on a persisted record
type CommunityVote struct {
	ID        string    `json:"id" firestore:"id"`
	RecordID  string    `json:"record_id" firestore:"record_id"`
	VoterID   string    `json:"voter_id" firestore:"voter_id"`
	Vote      VoteValue `json:"vote" firestore:"vote"`
	Evidence  string    `json:"evidence,omitempty" firestore:"evidence,omitempty"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

// Tally counts votes per value
type Tally struct {
	True     int `json:"true"`
	False    int `json:"false"`
	Disputed int `json:"disputed"`
}

// TallyVotes counts the given votes
func TallyVotes(votes []CommunityVote) Tally {
	var t Tally
	for _, v := range votes {
		switch v.Vote {
		case VoteTrue:
			t.True++
		case VoteFalse:
			t.False++
		case VoteDisputed:
			t.Disputed++
		}
	}
	return t
}

// Total returns the number of counted votes
func (t Tally) Total() int {
	return t.True + t.False + t.Disputed
}
