package main

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// auditLog records every commit-gate decision in a local sqlite database so
// an interrupted batch can be audited afterwards. The wiki itself is the
// source of truth; this is operator bookkeeping only.
type auditLog struct {
	mu    sync.Mutex
	db    *sql.DB
	runID string
}

func initAuditDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS commits (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL,
		page       TEXT NOT NULL,
		comment    TEXT DEFAULT '',
		outcome    TEXT NOT NULL,
		mode       TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_commits_run ON commits(run_id);
	CREATE INDEX IF NOT EXISTS idx_commits_page ON commits(page);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}

func newAuditLog(db *sql.DB) *auditLog {
	return &auditLog{
		db:    db,
		runID: time.Now().Format("20060102-150405"),
	}
}

func (a *auditLog) record(page, comment string, outcome commitOutcome, mode commitMode) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.db.Exec(
		`INSERT INTO commits (run_id, page, comment, outcome, mode) VALUES (?, ?, ?, ?, ?)`,
		a.runID, page, comment, outcome.String(), mode.String(),
	)
	return err
}

// AuditEntry is one recorded commit decision.
type AuditEntry struct {
	RunID     string
	Page      string
	Comment   string
	Outcome   string
	Mode      string
	CreatedAt time.Time
}

// GetRunEntries returns every decision of one run, oldest first.
func GetRunEntries(db *sql.DB, runID string) ([]AuditEntry, error) {
	rows, err := db.Query(
		`SELECT run_id, page, comment, outcome, mode, created_at
		 FROM commits WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.RunID, &e.Page, &e.Comment, &e.Outcome, &e.Mode, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountWrites returns how many pages a run actually wrote, for the run
// summary.
func CountWrites(db *sql.DB, runID string) (int, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM commits WHERE run_id = ? AND outcome = 'written'`,
		runID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting writes: %w", err)
	}
	return count, nil
}
