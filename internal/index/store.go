// Package index persists labeled requirement collections in SQLite so that
// past runs can be queried by issue, design document or label.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/reqtrace/internal/models"
)

var (
	// ErrNoRuns is returned when the index holds no runs.
	ErrNoRuns = errors.New("index contains no runs")

	// ErrUnlabeled is returned when saving groups that were never labeled.
	ErrUnlabeled = errors.New("requirement groups are not labeled")
)

// Run describes one stored collection.
type Run struct {
	ID           string
	CreatedAt    time.Time
	Directories  []string
	Requirements int
	Groups       int
}

// Store manages the SQLite requirement index
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewStore opens (creating if needed) the index at dbPath and applies migrations.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every pooled connection to :memory: would see its own empty database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun stores every requirement of a labeled collection under a new run ID.
func (s *Store) SaveRun(ctx context.Context, groups *models.Groups, directories []string) (string, error) {
	if groups == nil || !groups.Frozen() {
		return "", ErrUnlabeled
	}

	dirsJSON, err := json.Marshal(directories)
	if err != nil {
		return "", fmt.Errorf("marshal directories: %w", err)
	}

	runID := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, directories, requirement_count, group_count) VALUES (?, ?, ?, ?, ?)`,
		runID, s.now().UTC(), string(dirsJSON), groups.Count(), groups.Len()); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	reqStmt, err := tx.PrepareContext(ctx, `INSERT INTO requirements
		(run_id, label, grp, group_index, item_index, name, path, filename, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare requirement insert: %w", err)
	}
	defer reqStmt.Close()

	designStmt, err := tx.PrepareContext(ctx, `INSERT INTO requirement_design (run_id, label, position, token) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare design insert: %w", err)
	}
	defer designStmt.Close()

	issueStmt, err := tx.PrepareContext(ctx, `INSERT INTO requirement_issues (run_id, label, position, token) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare issue insert: %w", err)
	}
	defer issueStmt.Close()

	for gi, group := range groups.Groups() {
		for ii, req := range group.Requirements {
			if _, err := reqStmt.ExecContext(ctx, runID, req.Label, group.Name, gi+1, ii+1,
				req.Name, req.Path, req.Filename, req.Text); err != nil {
				return "", fmt.Errorf("insert requirement %s: %w", req.Label, err)
			}
			for pos, token := range req.Design {
				if _, err := designStmt.ExecContext(ctx, runID, req.Label, pos, token); err != nil {
					return "", fmt.Errorf("insert design for %s: %w", req.Label, err)
				}
			}
			for pos, token := range req.Issues {
				if _, err := issueStmt.ExecContext(ctx, runID, req.Label, pos, token); err != nil {
					return "", fmt.Errorf("insert issue for %s: %w", req.Label, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// LatestRun returns the most recently saved run, or ErrNoRuns.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return runs[0], nil
}

// GetRun returns the run with the given ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, created_at, directories, requirement_count, group_count
		FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return run, err
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT id, created_at, directories, requirement_count, group_count FROM runs ORDER BY seq DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and all of its requirements.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"requirement_design", "requirement_issues", "requirements", "runs"} {
		col := "run_id"
		if table == "runs" {
			col = "id"
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, table, col), runID); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// ByIssue returns the requirements of runID that reference issue.
func (s *Store) ByIssue(ctx context.Context, runID, issue string) ([]*models.Requirement, error) {
	return s.queryRequirements(ctx, runID,
		`label IN (SELECT label FROM requirement_issues WHERE run_id = ? AND token = ?)`, runID, issue)
}

// ByDesign returns the requirements of runID that reference a design document.
func (s *Store) ByDesign(ctx context.Context, runID, design string) ([]*models.Requirement, error) {
	return s.queryRequirements(ctx, runID,
		`label IN (SELECT label FROM requirement_design WHERE run_id = ? AND token = ?)`, runID, design)
}

// ByLabel returns the requirement of runID with the given label, if any.
func (s *Store) ByLabel(ctx context.Context, runID, label string) ([]*models.Requirement, error) {
	return s.queryRequirements(ctx, runID, `label = ?`, label)
}

// LoadGroups rebuilds the labeled groups of a stored run.
func (s *Store) LoadGroups(ctx context.Context, runID string) (*models.Groups, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT grp, label, name, path, filename, text FROM requirements
		WHERE run_id = ? ORDER BY group_index, item_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query requirements: %w", err)
	}

	groups := models.NewGroups()
	var reqs []*models.Requirement
	for rows.Next() {
		var grp string
		req := &models.Requirement{}
		if err := rows.Scan(&grp, &req.Label, &req.Name, &req.Path, &req.Filename, &req.Text); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		if err := groups.Append(grp, req); err != nil {
			rows.Close()
			return nil, err
		}
		reqs = append(reqs, req)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate requirements: %w", err)
	}

	if err := s.fillTokens(ctx, runID, reqs); err != nil {
		return nil, err
	}
	groups.AssignLabels()
	return groups, nil
}

func (s *Store) queryRequirements(ctx context.Context, runID, where string, args ...interface{}) ([]*models.Requirement, error) {
	query := `SELECT label, name, path, filename, text FROM requirements
		WHERE run_id = ? AND ` + where + ` ORDER BY group_index, item_index`

	rows, err := s.db.QueryContext(ctx, query, append([]interface{}{runID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query requirements: %w", err)
	}

	var reqs []*models.Requirement
	for rows.Next() {
		req := &models.Requirement{}
		if err := rows.Scan(&req.Label, &req.Name, &req.Path, &req.Filename, &req.Text); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		reqs = append(reqs, req)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate requirements: %w", err)
	}

	if err := s.fillTokens(ctx, runID, reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// fillTokens loads design and issue tokens for reqs in stored order.
func (s *Store) fillTokens(ctx context.Context, runID string, reqs []*models.Requirement) error {
	for _, req := range reqs {
		design, err := s.tokens(ctx, "requirement_design", runID, req.Label)
		if err != nil {
			return err
		}
		issues, err := s.tokens(ctx, "requirement_issues", runID, req.Label)
		if err != nil {
			return err
		}
		req.Design = design
		req.Issues = issues
	}
	return nil
}

func (s *Store) tokens(ctx context.Context, table, runID, label string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token FROM `+table+` WHERE run_id = ? AND label = ? ORDER BY position`, runID, label)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run      Run
		dirsJSON string
	)
	if err := row.Scan(&run.ID, &run.CreatedAt, &dirsJSON, &run.Requirements, &run.Groups); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(dirsJSON), &run.Directories); err != nil {
		return nil, fmt.Errorf("unmarshal run directories: %w", err)
	}
	return &run, nil
}
