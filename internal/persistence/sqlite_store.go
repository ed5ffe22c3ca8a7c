package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore persists runs and their diagnostic side channel.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename
// (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs
		(id, corpus_dir, target_lang, status, done, total, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CorpusDir, run.TargetLanguage, string(run.Status),
		run.Done, run.Total, run.Error, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, id string, status RunStatus, done, total int, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs
		SET status = ?, done = ?, total = ?, error = ?, updated_at = ?
		WHERE id = ?`,
		string(status), done, total, errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, corpus_dir, target_lang, status, done, total, error, created_at, updated_at
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, corpus_dir, target_lang, status, done, total, error, created_at, updated_at
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var status string
	if err := row.Scan(&run.ID, &run.CorpusDir, &run.TargetLanguage, &status,
		&run.Done, &run.Total, &run.Error, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	return &run, nil
}

func (s *SQLiteStore) AddBatchFailure(ctx context.Context, f *BatchFailure) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO batch_failures
		(run_id, chunk_file, start_index, end_index, cause, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.RunID, f.ChunkFile, f.StartIndex, f.EndIndex, f.Cause, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert batch failure: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListBatchFailures(ctx context.Context, runID string) ([]*BatchFailure, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, chunk_file, start_index, end_index, cause, created_at
		FROM batch_failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list batch failures: %w", err)
	}
	defer rows.Close()

	var failures []*BatchFailure
	for rows.Next() {
		var f BatchFailure
		if err := rows.Scan(&f.ID, &f.RunID, &f.ChunkFile, &f.StartIndex, &f.EndIndex, &f.Cause, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch failure: %w", err)
		}
		failures = append(failures, &f)
	}
	return failures, rows.Err()
}

func (s *SQLiteStore) AddFidelityChecks(ctx context.Context, checks []*FidelityCheck) error {
	if len(checks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	now := time.Now().UTC()
	for _, c := range checks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO fidelity_checks
			(run_id, chunk_file, global_index, back_text, score, low_confidence, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.RunID, c.ChunkFile, c.GlobalIndex, c.BackText, c.Score, c.LowConfidence, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert fidelity check: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListFidelityChecks(ctx context.Context, runID string, lowOnly bool) ([]*FidelityCheck, error) {
	query := `SELECT id, run_id, chunk_file, global_index, back_text, score, low_confidence, created_at
		FROM fidelity_checks WHERE run_id = ?`
	if lowOnly {
		query += ` AND low_confidence = 1`
	}
	query += ` ORDER BY global_index`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list fidelity checks: %w", err)
	}
	defer rows.Close()

	var checks []*FidelityCheck
	for rows.Next() {
		var c FidelityCheck
		if err := rows.Scan(&c.ID, &c.RunID, &c.ChunkFile, &c.GlobalIndex, &c.BackText, &c.Score, &c.LowConfidence, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fidelity check: %w", err)
		}
		checks = append(checks, &c)
	}
	return checks, rows.Err()
}
