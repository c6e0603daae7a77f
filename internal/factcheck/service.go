// Package factcheck is the service layer: it validates input, looks up the
// community score, runs the scorer and persists records and votes.
package factcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/safeprotest/factcheck/internal/community"
	"github.com/safeprotest/factcheck/internal/events"
	"github.com/safeprotest/factcheck/internal/extract"
	"github.com/safeprotest/factcheck/internal/model"
	"github.com/safeprotest/factcheck/internal/score"
	"github.com/safeprotest/factcheck/internal/store"
)

// DefaultMaxClaimLength caps claim text, in runes
const DefaultMaxClaimLength = 10000

// SourceInspector previews submitted sources for display
type SourceInspector interface {
	Inspect(ctx context.Context, sources []string) []model.SourceInfo
}

// SubmitRequest is a claim submitted for persistence
type SubmitRequest struct {
	Claim       string
	Sources     []string
	SubmittedBy string
}

// Service coordinates scoring and persistence
type Service struct {
	store     store.Store
	scorer    *score.Scorer
	community community.Provider
	publisher events.Publisher
	inspector SourceInspector
	logger    *slog.Logger

	maxClaimLength int
	recheckOnVote  bool

	// rechecks of one record run one at a time so the last write reflects
	// every vote stored before it started
	rechecks *keyedMutex
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithPublisher sets where vote events go
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithInspector enables source previews on submission
func WithInspector(i SourceInspector) Option {
	return func(s *Service) { s.inspector = i }
}

// WithMaxClaimLength overrides the claim length cap; n <= 0 keeps the default
func WithMaxClaimLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxClaimLength = n
		}
	}
}

// WithRecheckOnVote recomputes a record's result after each vote
func WithRecheckOnVote(enabled bool) Option {
	return func(s *Service) { s.recheckOnVote = enabled }
}

// WithCommunity replaces the ledger-backed community provider
func WithCommunity(p community.Provider) Option {
	return func(s *Service) { s.community = p }
}

// New creates a service over st
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:          st,
		scorer:         score.NewScorer(),
		community:      community.NewLedgerProvider(st, st),
		publisher:      events.Nop{},
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxClaimLength: DefaultMaxClaimLength,
		recheckOnVote:  true,
		rechecks:       newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithProvider returns a shallow copy that reads community scores from p.
// Batch runs use it to share one request-scoped memo.
func (s *Service) WithProvider(p community.Provider) *Service {
	cp := *s
	cp.community = p
	return &cp
}

// Evaluate scores ad-hoc claim text. The community score pools votes on
// every record with the same claim text. Nothing is persisted.
func (s *Service) Evaluate(ctx context.Context, claim string, sources []string) (*model.Evaluation, error) {
	if err := s.validateClaim(claim); err != nil {
		return nil, err
	}

	communityScore, err := s.community.Score(ctx, community.TextKey(claim))
	if err != nil {
		return nil, fmt.Errorf("community score: %w", err)
	}

	eval := s.scorer.Score(claim, sources, communityScore)
	s.logger.Debug("evaluated claim",
		"status", eval.Result.Status,
		"score", eval.Result.Score,
		"community", communityScore,
		"sources", len(eval.Result.Sources))
	return &eval, nil
}

// EvaluateRecord scores a stored record against its own votes
func (s *Service) EvaluateRecord(ctx context.Context, id string) (*model.Record, *model.Evaluation, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	communityScore, err := s.community.Score(ctx, community.RecordKey(id))
	if err != nil {
		return nil, nil, fmt.Errorf("community score: %w", err)
	}

	eval := s.scorer.Score(rec.Claim, rec.Sources, communityScore)
	return rec, &eval, nil
}

// Submit evaluates a claim and stores it as a new record
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*model.Record, *model.Evaluation, error) {
	eval, err := s.Evaluate(ctx, req.Claim, req.Sources)
	if err != nil {
		return nil, nil, err
	}

	rec := &model.Record{
		Claim:       req.Claim,
		Sources:     eval.Result.Sources,
		Keywords:    extract.ExtractKeywords(req.Claim),
		Result:      eval.Result,
		SubmittedBy: req.SubmittedBy,
	}
	if s.inspector != nil && len(rec.Sources) > 0 {
		rec.SourceInfo = s.inspector.Inspect(ctx, rec.Sources)
	}

	if err := s.store.CreateRecord(ctx, rec); err != nil {
		return nil, nil, fmt.Errorf("store record: %w", err)
	}

	s.logger.Info("fact check submitted",
		"record_id", rec.ID,
		"status", rec.Result.Status,
		"submitted_by", rec.SubmittedBy)
	return rec, eval, nil
}

// RecordVote validates and upserts a vote. The stored vote is authoritative;
// event publishing and the follow-up recheck are best effort.
func (s *Service) RecordVote(ctx context.Context, recordID, voterID, vote, evidence string) (*model.CommunityVote, error) {
	voterID = strings.TrimSpace(voterID)
	if voterID == "" {
		return nil, model.ErrMissingVoter
	}
	value, err := model.ParseVote(vote)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.UpsertVote(ctx, recordID, voterID, value, evidence)
	if err != nil {
		return nil, err
	}

	s.logger.Info("vote recorded", "record_id", recordID, "voter_id", voterID, "vote", value)

	ev := events.VoteRecorded{
		RecordID:  recordID,
		VoterID:   voterID,
		Vote:      value,
		Timestamp: saved.Timestamp,
	}
	if err := s.publisher.PublishVote(ctx, ev); err != nil {
		s.logger.Warn("publish vote event failed", "record_id", recordID, "error", err)
	}

	if s.recheckOnVote {
		if _, err := s.Recheck(ctx, recordID); err != nil {
			s.logger.Warn("recheck after vote failed", "record_id", recordID, "error", err)
		}
	}

	return saved, nil
}

// ListVotes returns the votes on a record
func (s *Service) ListVotes(ctx context.Context, recordID string) ([]model.CommunityVote, error) {
	return s.store.ListVotes(ctx, recordID)
}

// Recheck recomputes and persists a record's result from its current votes.
// Rechecks of the same record are serialized within this process.
func (s *Service) Recheck(ctx context.Context, id string) (*model.Record, error) {
	unlock := s.rechecks.Lock(id)
	defer unlock()

	rec, eval, err := s.EvaluateRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := rec.Result.Status
	if err := s.store.UpdateResult(ctx, id, eval.Result); err != nil {
		return nil, fmt.Errorf("update result: %w", err)
	}
	rec.Result = eval.Result

	if previous != eval.Result.Status {
		s.logger.Info("verdict changed", "record_id", id, "from", previous, "to", eval.Result.Status)
	}
	return rec, nil
}

// Get returns a record with its votes
func (s *Service) Get(ctx context.Context, id string) (*model.Record, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	votes, err := s.store.ListVotes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	rec.Votes = votes
	return rec, nil
}

// List returns records newest first
func (s *Service) List(ctx context.Context, opts model.ListOptions) ([]model.Record, error) {
	return s.store.ListRecords(ctx, opts)
}

func (s *Service) validateClaim(claim string) error {
	if strings.TrimSpace(claim) == "" {
		return model.ErrEmptyClaim
	}
	if n := utf8.RuneCountInString(claim); n > s.maxClaimLength {
		return fmt.Errorf("%w: %d characters, limit %d", model.ErrClaimTooLong, n, s.maxClaimLength)
	}
	return nil
}
