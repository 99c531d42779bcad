package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/solverlog"
)

//go:embed schema.sql
var schemaSQL string

// Message kinds stored in the catalog.
const (
	KindWarning = "warning"
	KindError   = "error"
)

// catalog indexes ingested runs in SQLite so they can be listed and
// reassembled without scanning run directories.
type catalog struct {
	db *sql.DB
}

func openCatalog(path string) (*catalog, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if err := execWithRetry(db, p, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &catalog{db: db}, nil
}

// execWithRetry backs off on "database is locked" while another process
// initializes the same file.
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

func (c *catalog) close() error {
	return c.db.Close()
}

func (c *catalog) insert(ctx context.Context, meta *RunMetadata, run *solverlog.LogRun) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, ingested_at, increments, converged, iterations, warnings, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Source, meta.IngestedAt, meta.Increments, meta.Converged,
		meta.Iterations, len(meta.Warnings), len(meta.Errors))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for k := 0; k < run.NumConverged(); k++ {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO increments (run_id, ordinal, position, number, time, cut_back, load_case, num_iters)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			meta.ID, k, run.IncPosition[k], run.IncNumber[k], run.IncTime[k],
			run.IncCutBack[k], run.IncLoadCase[k], run.IncNumIters[k])
		if err != nil {
			return fmt.Errorf("insert increment %d: %w", k, err)
		}
	}

	if err := insertMessages(ctx, tx, meta.ID, KindWarning, meta.Warnings); err != nil {
		return err
	}
	if err := insertMessages(ctx, tx, meta.ID, KindError, meta.Errors); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMessages(ctx context.Context, tx *sql.Tx, runID, kind string, msgs []damask.Message) error {
	for i, m := range msgs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (run_id, kind, seq, code, message) VALUES (?, ?, ?, ?, ?)`,
			runID, kind, i, m.Code, m.Message)
		if err != nil {
			return fmt.Errorf("insert %s %d: %w", kind, i, err)
		}
	}
	return nil
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID         string
	Source     string
	IngestedAt time.Time
	Increments int
	Converged  int
	Iterations int
	Warnings   int
	Errors     int
}

func (c *catalog) list(ctx context.Context) ([]RunSummary, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, source, ingested_at, increments, converged, iterations, warnings, errors
		FROM runs ORDER BY ingested_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Source, &r.IngestedAt, &r.Increments, &r.Converged,
			&r.Iterations, &r.Warnings, &r.Errors); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// IncrementRow is one converged increment of a stored run.
type IncrementRow struct {
	Position int
	Number   int
	Time     float64
	CutBack  float64
	LoadCase int
	NumIters int
}

func (c *catalog) increments(ctx context.Context, runID string) ([]IncrementRow, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT position, number, time, cut_back, load_case, num_iters
		FROM increments WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, fmt.Errorf("query increments: %w", err)
	}
	defer rows.Close()

	out := []IncrementRow{}
	for rows.Next() {
		var r IncrementRow
		if err := rows.Scan(&r.Position, &r.Number, &r.Time, &r.CutBack, &r.LoadCase, &r.NumIters); err != nil {
			return nil, fmt.Errorf("scan increment: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *catalog) messages(ctx context.Context, runID, kind string) ([]damask.Message, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT code, message FROM messages WHERE run_id = ? AND kind = ? ORDER BY seq`, runID, kind)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	out := []damask.Message{}
	for rows.Next() {
		var m damask.Message
		if err := rows.Scan(&m.Code, &m.Message); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// warningCounts aggregates warning codes across every stored run.
func (c *catalog) warningCounts(ctx context.Context) (map[int]int, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT code, COUNT(*) FROM messages WHERE kind = ? GROUP BY code`, KindWarning)
	if err != nil {
		return nil, fmt.Errorf("query warning counts: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var code, n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan warning count: %w", err)
		}
		out[code] = n
	}
	return out, rows.Err()
}

func (c *catalog) delete(ctx context.Context, runID string) (bool, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return false, fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
