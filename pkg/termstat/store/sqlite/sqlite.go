package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/cognicore/termstat/pkg/termstat/internalerr"
	"github.com/cognicore/termstat/pkg/termstat/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB

	// ulid.MonotonicEntropy is not safe for concurrent use
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Open opens a SQLite database with WAL mode enabled and initializes the
// schema.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	label TEXT,
	created_at TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT
);

CREATE TABLE IF NOT EXISTS term_rows (
	task_id TEXT NOT NULL,
	rank INTEGER NOT NULL,
	term TEXT NOT NULL,
	tf INTEGER NOT NULL,
	df INTEGER NOT NULL,
	idf REAL NOT NULL,
	sources TEXT NOT NULL,
	PRIMARY KEY(task_id, rank),
	FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// CreateTask allocates a new pending task and returns its identifier.
func (s *sqliteStore) CreateTask(ctx context.Context, label string) (string, error) {
	s.mu.Lock()
	id := ulid.MustNew(ulid.Now(), s.entropy).String()
	s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO tasks (id, label, created_at, status) VALUES (?, ?, ?, ?);
`, id, label, time.Now().UTC().Format(time.RFC3339), store.StatusPending)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetTask returns a task by identifier.
func (s *sqliteStore) GetTask(ctx context.Context, id string) (store.Task, bool, error) {
	var (
		task    store.Task
		created string
		errMsg  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, label, created_at, status, error FROM tasks WHERE id = ?;
`, id).Scan(&task.ID, &task.Label, &created, &task.Status, &errMsg)
	if err == sql.ErrNoRows {
		return store.Task{}, false, nil
	}
	if err != nil {
		return store.Task{}, false, err
	}

	if parsed, perr := time.Parse(time.RFC3339, created); perr == nil {
		task.CreatedAt = parsed
	}
	task.Error = errMsg.String
	return task, true, nil
}

// SetStatus moves a pending task to a terminal status. The guard on the
// current status makes the update atomic: racing writers cannot overwrite a
// terminal state.
func (s *sqliteStore) SetStatus(ctx context.Context, id string, status store.Status, errMsg string) error {
	if !status.Terminal() {
		return fmt.Errorf("cannot transition to %q: %w", status, internalerr.ErrInvalidInput)
	}

	var storedErr sql.NullString
	if status == store.StatusFailed {
		storedErr = sql.NullString{String: errMsg, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE tasks SET status = ?, error = ? WHERE id = ? AND status = ?;
`, status, storedErr, id, store.StatusPending)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var current store.Status
	err = s.db.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return internalerr.ErrNotFound
	}
	if err != nil {
		return err
	}
	return internalerr.ErrTaskFinished
}

// AppendRows persists ranked rows for a task, continuing the rank sequence
// from any previously stored rows.
func (s *sqliteStore) AppendRows(ctx context.Context, id string, rows []store.TermRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return internalerr.ErrNotFound
	}

	var base int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM term_rows WHERE task_id = ?`, id).Scan(&base); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO term_rows (task_id, rank, term, tf, df, idf, sources)
VALUES (?, ?, ?, ?, ?, ?, ?);
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		sourcesJSON, err := json.Marshal(row.Sources)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, id, base+i, row.Term, row.TF, row.DF, row.IDF, string(sourcesJSON)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// CountRows returns the number of stored rows for a task.
func (s *sqliteStore) CountRows(ctx context.Context, id string) (int, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, internalerr.ErrNotFound
	}

	var count int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM term_rows WHERE task_id = ?`, id).Scan(&count)
	return count, err
}

// GetRows returns a subsequence of a task's rows in rank order.
func (s *sqliteStore) GetRows(ctx context.Context, id string, offset, limit int) ([]store.TermRow, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, internalerr.ErrNotFound
	}

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT term, tf, df, idf, sources
FROM term_rows
WHERE task_id = ?
ORDER BY rank
LIMIT ? OFFSET ?;
`, id, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []store.TermRow
	for rows.Next() {
		var (
			row         store.TermRow
			sourcesJSON string
		)
		if err := rows.Scan(&row.Term, &row.TF, &row.DF, &row.IDF, &sourcesJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &row.Sources); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
