package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/strokelab/rallylens/internal/domain/model"
	"github.com/strokelab/rallylens/pkg/metrics"
)

// SQLiteStore persists analysis records in a single SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the results database and applies
// migrations. The path ":memory:" yields an ephemeral store.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// The driver serializes access per connection; a single connection
	// avoids table-lock races between workers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) applyMigrations(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS analyses (
    analysis_id    TEXT PRIMARY KEY,
    video_id       TEXT NOT NULL,
    user_id        TEXT NOT NULL,
    video_ref      TEXT NOT NULL,
    skill_level    TEXT NOT NULL,
    analysis_type  TEXT NOT NULL,
    status         TEXT NOT NULL,
    failure_reason TEXT,
    result_json    BLOB,
    submitted_at   TEXT NOT NULL,
    completed_at   TEXT
);
CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_analyses_video_user ON analyses(video_id, user_id);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Create registers a pending submission.
func (s *SQLiteStore) Create(ctx context.Context, req model.AnalysisRequest) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (
            analysis_id, video_id, user_id, video_ref,
            skill_level, analysis_type, status, submitted_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.AnalysisID,
		req.VideoID,
		req.UserID,
		req.VideoRef,
		string(req.SkillLevel),
		string(req.AnalysisType),
		string(model.StatusPending),
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, req.AnalysisID)
		}
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// MarkRunning transitions a submission to running.
func (s *SQLiteStore) MarkRunning(ctx context.Context, analysisID string) error {
	return s.setStatus(ctx, analysisID, model.StatusRunning, "", nil)
}

// SaveResult stores the completed result payload.
func (s *SQLiteStore) SaveResult(ctx context.Context, analysisID string, result *model.AnalysisResult) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositorySaveLatency(float64(time.Since(start).Milliseconds()))
	}()

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses
            SET status = ?, result_json = ?, failure_reason = NULL, completed_at = ?
          WHERE analysis_id = ?`,
		string(model.StatusCompleted), payload, now, analysisID,
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, analysisID)
	}

	metrics.UpdateResultsStored(s.Count(ctx))
	return nil
}

// MarkFailed transitions the record to failed with a reason label.
func (s *SQLiteStore) MarkFailed(ctx context.Context, analysisID string, reason string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.setStatus(ctx, analysisID, model.StatusFailed, reason, &now)
}

func (s *SQLiteStore) setStatus(ctx context.Context, analysisID string, status model.AnalysisStatus, reason string, completedAt *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses
            SET status = ?, failure_reason = ?, completed_at = ?
          WHERE analysis_id = ?`,
		string(status), nullableString(reason), completedAt, analysisID,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, analysisID)
	}
	return nil
}

// Delete removes a record.
func (s *SQLiteStore) Delete(ctx context.Context, analysisID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE analysis_id = ?`, analysisID); err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	return nil
}

// Get returns the record for an analysis id.
func (s *SQLiteStore) Get(ctx context.Context, analysisID string) (model.AnalysisRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	row := s.db.QueryRowContext(ctx,
		`SELECT video_id, user_id, video_ref, skill_level, analysis_type,
                status, failure_reason, result_json, submitted_at, completed_at
           FROM analyses WHERE analysis_id = ?`,
		analysisID,
	)

	var (
		rec         model.AnalysisRecord
		skill       string
		atype       string
		status      string
		reason      sql.NullString
		payload     []byte
		submittedAt string
		completedAt sql.NullString
	)
	err := row.Scan(
		&rec.Request.VideoID, &rec.Request.UserID, &rec.Request.VideoRef,
		&skill, &atype, &status, &reason, &payload, &submittedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AnalysisRecord{}, fmt.Errorf("%w: %s", ErrNotFound, analysisID)
	}
	if err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("query analysis: %w", err)
	}

	rec.Request.AnalysisID = analysisID
	rec.Request.SkillLevel = model.SkillLevel(skill)
	rec.Request.AnalysisType = model.AnalysisType(atype)
	rec.Status = model.AnalysisStatus(status)
	rec.FailureReason = reason.String

	if ts, perr := time.Parse(time.RFC3339Nano, submittedAt); perr == nil {
		rec.SubmittedAt = ts
	}
	if completedAt.Valid {
		if ts, perr := time.Parse(time.RFC3339Nano, completedAt.String); perr == nil {
			rec.CompletedAt = &ts
		}
	}

	if len(payload) > 0 {
		var result model.AnalysisResult
		if uerr := json.Unmarshal(payload, &result); uerr != nil {
			return model.AnalysisRecord{}, fmt.Errorf("decode result: %w", uerr)
		}
		rec.Result = &result
	}

	return rec, nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
