// Package store persists curated relationships in SQLite, keyed by
// claim_uid. Uses the ncruces/go-sqlite3 database/sql driver.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/ppiankov/kgcurator/internal/model"
	"github.com/ppiankov/kgcurator/internal/score"
)

// ErrNotFound is returned when no relationship has the claim_uid
var ErrNotFound = errors.New("relationship not found")

// SQLiteStore is the persisted relationship sink. Safe for concurrent use.
type SQLiteStore struct {
	mu  sync.RWMutex
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS relationships (
    claim_uid TEXT PRIMARY KEY,
    candidate_uid TEXT NOT NULL,
    source TEXT NOT NULL,
    predicate TEXT NOT NULL,
    target TEXT NOT NULL,
    source_type TEXT,
    target_type TEXT,
    doc_id TEXT,
    evidence TEXT,
    flags TEXT NOT NULL DEFAULT '[]',
    metadata TEXT,
    text_confidence REAL NOT NULL,
    knowledge_plausibility REAL NOT NULL,
    pattern_prior REAL NOT NULL,
    signals_conflict INTEGER NOT NULL DEFAULT 0,
    conflict_explanation TEXT,
    suggested_correction TEXT,
    p_true REAL NOT NULL,
    evidence_status TEXT NOT NULL,
    claim_type TEXT,
    config_version TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_relationships_doc ON relationships(doc_id);
CREATE INDEX IF NOT EXISTS idx_relationships_predicate ON relationships(predicate);
CREATE INDEX IF NOT EXISTS idx_relationships_candidate ON relationships(candidate_uid);
`

const columns = `claim_uid, candidate_uid, source, predicate, target, source_type, target_type,
	evidence, flags, metadata, text_confidence, knowledge_plausibility, pattern_prior,
	signals_conflict, conflict_explanation, suggested_correction, p_true,
	evidence_status, claim_type, created_at, updated_at`

// Open opens (or creates) the store at path. Use ":memory:" for a
// throwaway database.
func Open(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Upsert inserts or replaces relationships by claim_uid in one
// transaction. created_at of an existing row is preserved.
func (s *SQLiteStore) Upsert(ctx context.Context, configVersion string, rels []model.Relationship) error {
	if len(rels) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO relationships (claim_uid, candidate_uid, source, predicate, target,
			source_type, target_type, doc_id, evidence, flags, metadata,
			text_confidence, knowledge_plausibility, pattern_prior, signals_conflict,
			conflict_explanation, suggested_correction, p_true, evidence_status,
			claim_type, config_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_uid) DO UPDATE SET
			candidate_uid = excluded.candidate_uid,
			source = excluded.source,
			predicate = excluded.predicate,
			target = excluded.target,
			source_type = excluded.source_type,
			target_type = excluded.target_type,
			doc_id = excluded.doc_id,
			evidence = excluded.evidence,
			flags = excluded.flags,
			metadata = excluded.metadata,
			text_confidence = excluded.text_confidence,
			knowledge_plausibility = excluded.knowledge_plausibility,
			pattern_prior = excluded.pattern_prior,
			signals_conflict = excluded.signals_conflict,
			conflict_explanation = excluded.conflict_explanation,
			suggested_correction = excluded.suggested_correction,
			p_true = excluded.p_true,
			evidence_status = excluded.evidence_status,
			claim_type = excluded.claim_type,
			config_version = excluded.config_version,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := s.now().UnixMilli()
	for _, rel := range rels {
		if rel.ClaimUID == "" {
			return fmt.Errorf("upsert %s: empty claim_uid", rel.CandidateUID)
		}
		evidence, err := json.Marshal(rel.Evidence)
		if err != nil {
			return fmt.Errorf("marshal evidence: %w", err)
		}
		flags, err := json.Marshal(rel.Flags.Sorted())
		if err != nil {
			return fmt.Errorf("marshal flags: %w", err)
		}
		metadata, err := json.Marshal(rel.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}

		var docID sql.NullString
		if rel.Evidence != nil {
			docID = sql.NullString{String: rel.Evidence.DocID, Valid: true}
		}

		createdAt := now
		if !rel.CreatedAt.IsZero() {
			createdAt = rel.CreatedAt.UnixMilli()
		}

		_, err = stmt.ExecContext(ctx,
			rel.ClaimUID, rel.CandidateUID, rel.Source, rel.Predicate, rel.Target,
			nullable(rel.SourceType), nullable(rel.TargetType), docID,
			string(evidence), string(flags), string(metadata),
			rel.TextConfidence, rel.KnowledgePlausibility, rel.PatternPrior, rel.SignalsConflict,
			rel.ConflictExplanation, rel.SuggestedCorrection, rel.PTrue,
			string(rel.EvidenceStatus), string(rel.ClaimType), configVersion,
			createdAt, now,
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", rel.ClaimUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Get retrieves one relationship by claim_uid
func (s *SQLiteStore) Get(ctx context.Context, claimUID string) (model.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM relationships WHERE claim_uid = ?`, claimUID)
	rel, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Relationship{}, fmt.Errorf("%s: %w", claimUID, ErrNotFound)
	}
	return rel, err
}

// ListByDoc returns the relationships grounded in a document, ordered by
// evidence position
func (s *SQLiteStore) ListByDoc(ctx context.Context, docID string) ([]model.Relationship, error) {
	return s.list(ctx, `SELECT `+columns+` FROM relationships WHERE doc_id = ?
		ORDER BY json_extract(evidence, '$.start_char'), claim_uid`, docID)
}

// List returns every stored relationship ordered by claim_uid
func (s *SQLiteStore) List(ctx context.Context) ([]model.Relationship, error) {
	return s.list(ctx, `SELECT `+columns+` FROM relationships ORDER BY claim_uid`)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]model.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Relationship
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// MarkStatus updates the evidence status of one relationship, adding or
// clearing STALE_EVIDENCE to match
func (s *SQLiteStore) MarkStatus(ctx context.Context, claimUID string, status model.EvidenceStatus) error {
	rel, err := s.Get(ctx, claimUID)
	if err != nil {
		return err
	}

	if status == model.EvidenceStale {
		rel.Flags[model.FlagStaleEvidence] = true
	} else {
		delete(rel.Flags, model.FlagStaleEvidence)
	}
	flags, err := json.Marshal(rel.Flags.Sorted())
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE relationships SET evidence_status = ?, flags = ?, updated_at = ? WHERE claim_uid = ?`,
		string(status), string(flags), s.now().UnixMilli(), claimUID)
	if err != nil {
		return fmt.Errorf("mark %s: %w", claimUID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", claimUID, ErrNotFound)
	}
	return nil
}

// PredicateCounts counts stored relationships per predicate. A
// relationship counts as accepted when its p_true is at least acceptAt
// and its evidence is fresh.
func (s *SQLiteStore) PredicateCounts(ctx context.Context, acceptAt float64) (map[string]score.PredicateStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT predicate, COUNT(*),
			SUM(CASE WHEN p_true >= ? AND evidence_status = ? THEN 1 ELSE 0 END)
		FROM relationships GROUP BY predicate ORDER BY predicate
	`, acceptAt, string(model.EvidenceFresh))
	if err != nil {
		return nil, fmt.Errorf("count predicates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]score.PredicateStats)
	for rows.Next() {
		var predicate string
		var st score.PredicateStats
		if err := rows.Scan(&predicate, &st.Total, &st.Accepted); err != nil {
			return nil, fmt.Errorf("scan predicate count: %w", err)
		}
		out[predicate] = st
	}
	return out, rows.Err()
}

// Count returns the number of stored relationships
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM relationships`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRelationship(row scanner) (model.Relationship, error) {
	var (
		rel                     model.Relationship
		sourceType, targetType  sql.NullString
		evidence, flags, meta   sql.NullString
		explanation, correction sql.NullString
		status, claimType       sql.NullString
		createdAt, updatedAt    int64
	)

	err := row.Scan(
		&rel.ClaimUID, &rel.CandidateUID, &rel.Source, &rel.Predicate, &rel.Target,
		&sourceType, &targetType, &evidence, &flags, &meta,
		&rel.TextConfidence, &rel.KnowledgePlausibility, &rel.PatternPrior,
		&rel.SignalsConflict, &explanation, &correction, &rel.PTrue,
		&status, &claimType, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Relationship{}, err
	}

	if sourceType.Valid {
		rel.SourceType = model.StringPtr(sourceType.String)
	}
	if targetType.Valid {
		rel.TargetType = model.StringPtr(targetType.String)
	}
	if evidence.Valid && evidence.String != "null" {
		if err := json.Unmarshal([]byte(evidence.String), &rel.Evidence); err != nil {
			return model.Relationship{}, fmt.Errorf("decode evidence of %s: %w", rel.ClaimUID, err)
		}
	}

	rel.Flags = model.Flags{}
	if flags.Valid {
		var list []model.Flag
		if err := json.Unmarshal([]byte(flags.String), &list); err != nil {
			return model.Relationship{}, fmt.Errorf("decode flags of %s: %w", rel.ClaimUID, err)
		}
		for _, f := range list {
			rel.Flags[f] = true
		}
	}
	if meta.Valid && meta.String != "null" {
		if err := json.Unmarshal([]byte(meta.String), &rel.Metadata); err != nil {
			rel.Metadata = nil
		}
	}

	rel.ConflictExplanation = explanation.String
	rel.SuggestedCorrection = correction.String
	rel.EvidenceStatus = model.EvidenceStatus(status.String)
	rel.ClaimType = model.ClaimType(claimType.String)
	rel.CreatedAt = time.UnixMilli(createdAt).UTC()
	rel.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return rel, nil
}

func nullable(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
