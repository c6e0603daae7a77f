// Package firestore implements the record store and vote ledger on Cloud
// Firestore. Records live at {collection}/{id}; votes live in a per-record
// subcollection keyed by voter, so one voter has at most one vote document.
package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/safeprotest/factcheck/internal/model"
	"github.com/safeprotest/factcheck/internal/store"
)

const (
	// DefaultCollection is the top-level record collection
	DefaultCollection = "fact-checks"

	votesCollection = "votes"

	// searchWindow bounds how many recent records a text query scans
	searchWindow = 500
)

// recordDoc is the stored form of a record. ClaimHash keeps equality lookups
// under the index size limit for long claims.
type recordDoc struct {
	ID          string             `firestore:"id"`
	Claim       string             `firestore:"claim"`
	ClaimHash   string             `firestore:"claim_hash"`
	Sources     []string           `firestore:"sources"`
	Keywords    []string           `firestore:"keywords"`
	Result      model.Result       `firestore:"result"`
	SubmittedBy string             `firestore:"submitted_by"`
	SourceInfo  []model.SourceInfo `firestore:"source_info,omitempty"`
	ReportCount int                `firestore:"report_count"`
	CreatedAt   time.Time          `firestore:"created_at"`
	UpdatedAt   time.Time          `firestore:"updated_at"`
}

// Store is a Firestore-backed store
type Store struct {
	client     *firestore.Client
	collection string

	// Now is the clock used for timestamps
	Now func() time.Time
}

// Ensure Store implements the interface
var _ store.Store = (*Store)(nil)

// NewStore connects to Firestore. An empty credentials file falls back to
// application default credentials (or FIRESTORE_EMULATOR_HOST).
func NewStore(ctx context.Context, projectID, credentialsFile, collection string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	return NewStoreWithClient(client, collection), nil
}

// NewStoreWithClient wraps an existing client
func NewStoreWithClient(client *firestore.Client, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		client:     client,
		collection: collection,
		Now:        time.Now,
	}
}

// Close closes the client
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) records() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

func (s *Store) votes(recordID string) *firestore.CollectionRef {
	return s.records().Doc(recordID).Collection(votesCollection)
}

// CreateRecord creates the record document; an existing id is an error
func (s *Store) CreateRecord(ctx context.Context, rec *model.Record) error {
	if rec.ID == "" {
		rec.ID = model.NewRecordID()
	}
	now := s.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	if _, err := s.records().Doc(rec.ID).Create(ctx, toDoc(rec)); err != nil {
		return fmt.Errorf("create record %s: %w", rec.ID, err)
	}
	return nil
}

// GetRecord returns a record without votes
func (s *Store) GetRecord(ctx context.Context, id string) (*model.Record, error) {
	ds, err := s.records().Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, translate(err))
	}
	return decodeRecord(ds)
}

// FindByClaim returns ids of records with a byte-identical claim
func (s *Store) FindByClaim(ctx context.Context, claim string) ([]string, error) {
	docs, err := s.records().
		Where("claim_hash", "==", claimHash(claim)).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("find by claim: %w", err)
	}

	var ids []string
	for _, ds := range docs {
		rec, err := decodeRecord(ds)
		if err != nil {
			return nil, err
		}
		if rec.Claim == claim {
			ids = append(ids, rec.ID)
		}
	}
	return ids, nil
}

// ListRecords returns records newest first. Firestore has no substring
// operator, so a text query filters the newest searchWindow records.
func (s *Store) ListRecords(ctx context.Context, opts model.ListOptions) ([]model.Record, error) {
	opts = opts.Normalize()

	q := s.records().OrderBy("created_at", firestore.Desc)
	if opts.Query == "" {
		q = q.Limit(opts.Limit)
	} else {
		q = q.Limit(searchWindow)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := []model.Record{}
	for len(out) < opts.Limit {
		ds, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}

		rec, err := decodeRecord(ds)
		if err != nil {
			return nil, err
		}
		if store.MatchesQuery(rec, opts.Query) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// UpdateResult replaces the stored result
func (s *Store) UpdateResult(ctx context.Context, id string, result model.Result) error {
	_, err := s.records().Doc(id).Update(ctx, []firestore.Update{
		{Path: "result", Value: result},
		{Path: "updated_at", Value: s.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("update result %s: %w", id, translate(err))
	}
	return nil
}

// UpsertVote writes the voter's vote document inside a transaction. The
// document id is derived from the voter id, which makes the write an upsert.
func (s *Store) UpsertVote(ctx context.Context, recordID, voterID string, vote model.VoteValue, evidence string) (*model.CommunityVote, error) {
	recordRef := s.records().Doc(recordID)
	voteRef := s.votes(recordID).Doc(voteDocID(voterID))

	var saved model.CommunityVote
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(recordRef); err != nil {
			return translate(err)
		}

		id := uuid.NewString()
		existing, err := tx.Get(voteRef)
		switch {
		case err == nil:
			var prev model.CommunityVote
			if err := existing.DataTo(&prev); err != nil {
				return fmt.Errorf("decode vote: %w", err)
			}
			if prev.ID != "" {
				id = prev.ID
			}
		case status.Code(err) != codes.NotFound:
			return err
		}

		saved = model.CommunityVote{
			ID:        id,
			RecordID:  recordID,
			VoterID:   voterID,
			Vote:      vote,
			Evidence:  evidence,
			Timestamp: s.Now().UTC(),
		}
		return tx.Set(voteRef, saved)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert vote on %s: %w", recordID, err)
	}
	return &saved, nil
}

// ListVotes returns votes on a record, oldest first
func (s *Store) ListVotes(ctx context.Context, recordID string) ([]model.CommunityVote, error) {
	if _, err := s.records().Doc(recordID).Get(ctx); err != nil {
		return nil, fmt.Errorf("list votes on %s: %w", recordID, translate(err))
	}

	docs, err := s.votes(recordID).OrderBy("timestamp", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list votes on %s: %w", recordID, err)
	}

	votes := make([]model.CommunityVote, 0, len(docs))
	for _, ds := range docs {
		var v model.CommunityVote
		if err := ds.DataTo(&v); err != nil {
			return nil, fmt.Errorf("decode vote %s: %w", ds.Ref.ID, err)
		}
		v.Timestamp = v.Timestamp.UTC()
		votes = append(votes, v)
	}
	return votes, nil
}

// translate maps a gRPC NotFound onto store.ErrNotFound
func translate(err error) error {
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	return err
}

// voteDocID makes a voter id safe as a document id
func voteDocID(voterID string) string {
	return "voter-" + url.PathEscape(voterID)
}

func claimHash(claim string) string {
	sum := sha256.Sum256([]byte(claim))
	return hex.EncodeToString(sum[:])
}

func toDoc(rec *model.Record) *recordDoc {
	return &recordDoc{
		ID:          rec.ID,
		Claim:       rec.Claim,
		ClaimHash:   claimHash(rec.Claim),
		Sources:     nonNil(rec.Sources),
		Keywords:    nonNil(rec.Keywords),
		Result:      rec.Result,
		SubmittedBy: rec.SubmittedBy,
		SourceInfo:  rec.SourceInfo,
		ReportCount: rec.ReportCount,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func decodeRecord(ds *firestore.DocumentSnapshot) (*model.Record, error) {
	var doc recordDoc
	if err := ds.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", ds.Ref.ID, err)
	}

	return &model.Record{
		ID:          doc.ID,
		Claim:       doc.Claim,
		Sources:     nonNil(doc.Sources),
		Keywords:    nonNil(doc.Keywords),
		Result:      doc.Result,
		SubmittedBy: doc.SubmittedBy,
		SourceInfo:  doc.SourceInfo,
		ReportCount: doc.ReportCount,
		CreatedAt:   doc.CreatedAt.UTC(),
		UpdatedAt:   doc.UpdatedAt.UTC(),
	}, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
