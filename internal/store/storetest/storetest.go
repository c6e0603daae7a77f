// Package storetest holds behaviour tests shared by every store backend
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeprotest/factcheck/internal/model"
	"github.com/safeprotest/factcheck/internal/store"
)

// Factory returns a fresh, empty store. The store is closed by the suite.
type Factory func(t *testing.T) store.Store

// Run executes the shared suite against a backend
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("ReportCount", func(t *testing.T) { testReportCount(t, newStore(t)) })
	t.Run("GetUnknown", func(t *testing.T) { testGetUnknown(t, newStore(t)) })
	t.Run("FindByClaim", func(t *testing.T) { testFindByClaim(t, newStore(t)) })
	t.Run("ListNewestFirst", func(t *testing.T) { testListNewestFirst(t, newStore(t)) })
	t.Run("ListQuery", func(t *testing.T) { testListQuery(t, newStore(t)) })
	t.Run("UpdateResult", func(t *testing.T) { testUpdateResult(t, newStore(t)) })
	t.Run("UpsertReplaces", func(t *testing.T) { testUpsertReplaces(t, newStore(t)) })
	t.Run("VoteUnknownRecord", func(t *testing.T) { testVoteUnknownRecord(t, newStore(t)) })
	t.Run("ConcurrentDistinctVoters", func(t *testing.T) { testConcurrentDistinctVoters(t, newStore(t)) })
	t.Run("VotesPerRecord", func(t *testing.T) { testVotesPerRecord(t, newStore(t)) })
}

// NewRecord builds a record with a persisted result
func NewRecord(claim string, sources ...string) *model.Record {
	return &model.Record{
		Claim:       claim,
		Sources:     sources,
		Keywords:    []string{"test"},
		SubmittedBy: "tester",
		Result: model.Result{
			Score:      0.6,
			Status:     model.StatusUnverified,
			Confidence: 0.4,
			Sources:    sources,
			Reasoning:  []string{"Backed by reliable and credible sources"},
		},
	}
}

func mustCreate(t *testing.T, s store.Store, rec *model.Record) *model.Record {
	t.Helper()
	require.NoError(t, s.CreateRecord(context.Background(), rec))
	require.NotEmpty(t, rec.ID)
	return rec
}

func testCreateAndGet(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	rec := mustCreate(t, s, NewRecord("Road closed on Main St", "reuters.com"))
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "Road closed on Main St", got.Claim)
	assert.Equal(t, []string{"reuters.com"}, got.Sources)
	assert.Equal(t, "tester", got.SubmittedBy)
	assert.Equal(t, model.StatusUnverified, got.Result.Status)
	assert.InDelta(t, 0.6, got.Result.Score, 1e-9)
	assert.Equal(t, []string{"Backed by reliable and credible sources"}, got.Result.Reasoning)
	assert.Zero(t, got.ReportCount)
	assert.Empty(t, got.Votes)
}

func testReportCount(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	rec := NewRecord("Kettling at the bridge")
	rec.ReportCount = 3
	mustCreate(t, s, rec)

	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ReportCount)

	list, err := s.ListRecords(ctx, model.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].ReportCount)
}

func testGetUnknown(t *testing.T, s store.Store) {
	defer s.Close()

	_, err := s.GetRecord(context.Background(), "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func testFindByClaim(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	a := mustCreate(t, s, NewRecord("Bridge closed"))
	b := mustCreate(t, s, NewRecord("Bridge closed"))
	mustCreate(t, s, NewRecord("bridge closed")) // case differs

	ids, err := s.FindByClaim(ctx, "Bridge closed")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	ids, err = s.FindByClaim(ctx, "nothing like this")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func testListNewestFirst(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := NewRecord(fmt.Sprintf("claim %d", i))
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		mustCreate(t, s, rec)
	}

	recs, err := s.ListRecords(ctx, model.ListOptions{Limit: 3})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "claim 4", recs[0].Claim)
	assert.Equal(t, "claim 3", recs[1].Claim)
	assert.Equal(t, "claim 2", recs[2].Claim)

	recs, err = s.ListRecords(ctx, model.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, recs, 5)
}

func testListQuery(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	mustCreate(t, s, NewRecord("Police kettling at City Hall", "twitter.com/someone"))
	mustCreate(t, s, NewRecord("March rerouted", "BBC live blog"))
	mustCreate(t, s, NewRecord("Water station moved"))

	recs, err := s.ListRecords(ctx, model.ListOptions{Query: "city hall"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Police kettling at City Hall", recs[0].Claim)

	recs, err = s.ListRecords(ctx, model.ListOptions{Query: "bbc"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "March rerouted", recs[0].Claim)

	recs, err = s.ListRecords(ctx, model.ListOptions{Query: "no match"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func testUpdateResult(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	rec := mustCreate(t, s, NewRecord("Road closed"))

	updated := model.Result{
		Score:      0.2,
		Status:     model.StatusFalse,
		Confidence: 0.6,
		Sources:    []string{},
		Reasoning:  []string{"Low community trust rating"},
	}
	require.NoError(t, s.UpdateResult(ctx, rec.ID, updated))

	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFalse, got.Result.Status)
	assert.InDelta(t, 0.2, got.Result.Score, 1e-9)
	assert.Equal(t, []string{"Low community trust rating"}, got.Result.Reasoning)

	err = s.UpdateResult(ctx, "missing", updated)
	assert.True(t, errors.Is(err, store.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func testUpsertReplaces(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	rec := mustCreate(t, s, NewRecord("Road closed"))

	first, err := s.UpsertVote(ctx, rec.ID, "alice", model.VoteTrue, "saw it")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	time.Sleep(5 * time.Millisecond)

	second, err := s.UpsertVote(ctx, rec.ID, "alice", model.VoteFalse, "reopened")
	require.NoError(t, err)

	votes, err := s.ListVotes(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, model.VoteFalse, votes[0].Vote)
	assert.Equal(t, "reopened", votes[0].Evidence)
	assert.Equal(t, "alice", votes[0].VoterID)
	assert.Equal(t, rec.ID, votes[0].RecordID)
	assert.False(t, votes[0].Timestamp.Before(first.Timestamp))
	assert.True(t, second.Timestamp.Equal(votes[0].Timestamp))
}

func testVoteUnknownRecord(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	_, err := s.UpsertVote(ctx, "missing", "alice", model.VoteTrue, "")
	assert.True(t, errors.Is(err, store.ErrNotFound), "expected ErrNotFound, got %v", err)

	_, err = s.ListVotes(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func testConcurrentDistinctVoters(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	rec := mustCreate(t, s, NewRecord("Road closed"))

	const voters = 20
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpsertVote(ctx, rec.ID, fmt.Sprintf("voter-%02d", i), model.VoteDisputed, "")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	votes, err := s.ListVotes(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, votes, voters)
}

func testVotesPerRecord(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	a := mustCreate(t, s, NewRecord("Road closed"))
	b := mustCreate(t, s, NewRecord("Road open"))

	_, err := s.UpsertVote(ctx, a.ID, "alice", model.VoteTrue, "")
	require.NoError(t, err)
	_, err = s.UpsertVote(ctx, b.ID, "alice", model.VoteFalse, "")
	require.NoError(t, err)

	votes, err := s.ListVotes(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, model.VoteTrue, votes[0].Vote)

	empty := mustCreate(t, s, NewRecord("No votes yet"))
	votes, err = s.ListVotes(ctx, empty.ID)
	require.NoError(t, err)
	assert.NotNil(t, votes)
	assert.Empty(t, votes)
}
