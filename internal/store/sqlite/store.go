// Package sqlite implements the record store and vote ledger on SQLite
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/safeprotest/factcheck/internal/model"
	"github.com/safeprotest/factcheck/internal/store"
	"github.com/safeprotest/factcheck/internal/store/sqlite/migrations"
)

// Store is a SQLite-backed store
type Store struct {
	db   *sql.DB
	path string

	// Now is the clock used for timestamps
	Now func() time.Time
}

// Ensure Store implements the interface
var _ store.Store = (*Store)(nil)

// NewStore opens (and migrates) the database in dataDir.
// If dataDir is empty, defaults to ~/.factcheck/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".factcheck", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "factcheck.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writer at a time; busy_timeout covers other processes
	db.SetMaxOpenConns(1)

	s := &Store{
		db:   db,
		path: dbPath,
		Now:  time.Now,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return s, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", version, time.Now().Unix()); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Records ====================

const recordColumns = `id, claim, sources, keywords, score, status, confidence,
	result_sources, reasoning, submitted_by, source_info, report_count, created_at, updated_at`

// CreateRecord inserts a new record
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

	sourceInfo, err := json.Marshal(orEmpty(rec.SourceInfo))
	if err != nil {
		return fmt.Errorf("marshal source info: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fact_checks (`+recordColumns+`, search_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Claim, encodeStrings(rec.Sources), encodeStrings(rec.Keywords),
		rec.Result.Score, string(rec.Result.Status), rec.Result.Confidence,
		encodeStrings(rec.Result.Sources), encodeStrings(rec.Result.Reasoning),
		rec.SubmittedBy, string(sourceInfo), rec.ReportCount,
		rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(),
		searchText(rec))
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// GetRecord returns a record without votes
func (s *Store) GetRecord(ctx context.Context, id string) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM fact_checks WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get record %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	return rec, nil
}

// FindByClaim returns ids of records with a byte-identical claim
func (s *Store) FindByClaim(ctx context.Context, claim string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM fact_checks WHERE claim = ? ORDER BY created_at`, claim)
	if err != nil {
		return nil, fmt.Errorf("find by claim: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan record id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListRecords returns matching records newest first
func (s *Store) ListRecords(ctx context.Context, opts model.ListOptions) ([]model.Record, error) {
	opts = opts.Normalize()
	q := strings.ToLower(strings.TrimSpace(opts.Query))

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM fact_checks
		WHERE ? = '' OR instr(search_text, ?) > 0
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, q, q, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := []model.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// UpdateResult replaces the stored result
func (s *Store) UpdateResult(ctx context.Context, id string, result model.Result) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE fact_checks
		SET score = ?, status = ?, confidence = ?, result_sources = ?, reasoning = ?, updated_at = ?
		WHERE id = ?
	`, result.Score, string(result.Status), result.Confidence,
		encodeStrings(result.Sources), encodeStrings(result.Reasoning),
		s.Now().UTC().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("update result %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update result %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update result %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ==================== Vote ledger ====================

// UpsertVote inserts or overwrites the voter's vote in one transaction
func (s *Store) UpsertVote(ctx context.Context, recordID, voterID string, vote model.VoteValue, evidence string) (*model.CommunityVote, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := recordExists(ctx, tx, recordID); err != nil {
		return nil, fmt.Errorf("upsert vote on %s: %w", recordID, err)
	}

	now := s.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO community_votes (id, record_id, voter_id, vote, evidence, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_id, voter_id) DO UPDATE SET
			vote = excluded.vote,
			evidence = excluded.evidence,
			timestamp = excluded.timestamp
	`, uuid.NewString(), recordID, voterID, string(vote), evidence, now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("upsert vote: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, record_id, voter_id, vote, evidence, timestamp
		FROM community_votes WHERE record_id = ? AND voter_id = ?
	`, recordID, voterID)
	v, err := scanVote(row)
	if err != nil {
		return nil, fmt.Errorf("read back vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit vote: %w", err)
	}
	return v, nil
}

// ListVotes returns votes on a record, oldest first
func (s *Store) ListVotes(ctx context.Context, recordID string) ([]model.CommunityVote, error) {
	if err := recordExists(ctx, s.db, recordID); err != nil {
		return nil, fmt.Errorf("list votes on %s: %w", recordID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_id, voter_id, vote, evidence, timestamp
		FROM community_votes WHERE record_id = ?
		ORDER BY timestamp, voter_id
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	votes := []model.CommunityVote{}
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes = append(votes, *v)
	}
	return votes, rows.Err()
}

// ==================== Helpers ====================

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func recordExists(ctx context.Context, q queryer, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM fact_checks WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func scanRecord(row scanner) (*model.Record, error) {
	var rec model.Record
	var status string
	var sources, keywords, resultSources, reasoning, sourceInfo string
	var createdAt, updatedAt int64

	err := row.Scan(&rec.ID, &rec.Claim, &sources, &keywords,
		&rec.Result.Score, &status, &rec.Result.Confidence,
		&resultSources, &reasoning, &rec.SubmittedBy, &sourceInfo,
		&rec.ReportCount, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec.Result.Status = model.Status(status)
	rec.Sources = decodeStrings(sources)
	rec.Keywords = decodeStrings(keywords)
	rec.Result.Sources = decodeStrings(resultSources)
	rec.Result.Reasoning = decodeStrings(reasoning)
	if err := json.Unmarshal([]byte(sourceInfo), &rec.SourceInfo); err != nil {
		return nil, fmt.Errorf("unmarshal source info: %w", err)
	}
	if len(rec.SourceInfo) == 0 {
		rec.SourceInfo = nil
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return &rec, nil
}

func scanVote(row scanner) (*model.CommunityVote, error) {
	var (
		v    model.CommunityVote
		vote string
		ts   int64
	)
	if err := row.Scan(&v.ID, &v.RecordID, &v.VoterID, &vote, &v.Evidence, &ts); err != nil {
		return nil, err
	}
	v.Vote = model.VoteValue(vote)
	v.Timestamp = time.Unix(0, ts).UTC()
	return &v, nil
}

// searchText is the lower-cased claim and sources matched by list queries
func searchText(rec *model.Record) string {
	parts := append([]string{rec.Claim}, rec.Sources...)
	return strings.ToLower(strings.Join(parts, "\n"))
}

func encodeStrings(values []string) string {
	data, err := json.Marshal(orEmpty(values))
	if err != nil {
		// []string always marshals
		return "[]"
	}
	return string(data)
}

func decodeStrings(data string) []string {
	out := []string{}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return []string{}
	}
	return out
}

func orEmpty[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
