package memstore

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/termstat/pkg/termstat/internalerr"
	"github.com/cognicore/termstat/pkg/termstat/store"
)

// Store is an in-memory implementation of store.Store for tests and
// single-process use.
type Store struct {
	mu      sync.RWMutex
	entropy *ulid.MonotonicEntropy
	tasks   map[string]store.Task
	rows    map[string][]store.TermRow
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		entropy: ulid.Monotonic(rand.Reader, 0),
		tasks:   make(map[string]store.Task),
		rows:    make(map[string][]store.TermRow),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// CreateTask allocates a new pending task.
func (s *Store) CreateTask(ctx context.Context, label string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ulid.MustNew(ulid.Now(), s.entropy).String()
	s.tasks[id] = store.Task{
		ID:        id,
		Label:     label,
		CreatedAt: time.Now().UTC(),
		Status:    store.StatusPending,
	}
	return id, nil
}

// GetTask returns a task by identifier.
func (s *Store) GetTask(ctx context.Context, id string) (store.Task, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	return task, ok, nil
}

// SetStatus moves a pending task to a terminal status. Terminal tasks are
// never modified again.
func (s *Store) SetStatus(ctx context.Context, id string, status store.Status, errMsg string) error {
	if !status.Terminal() {
		return fmt.Errorf("cannot transition to %q: %w", status, internalerr.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return internalerr.ErrNotFound
	}
	if task.Status.Terminal() {
		return internalerr.ErrTaskFinished
	}

	task.Status = status
	if status == store.StatusFailed {
		task.Error = errMsg
	} else {
		task.Error = ""
	}
	s.tasks[id] = task
	return nil
}

// AppendRows persists ranked rows for a task in order.
func (s *Store) AppendRows(ctx context.Context, id string, rows []store.TermRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return internalerr.ErrNotFound
	}
	for _, row := range rows {
		s.rows[id] = append(s.rows[id], copyRow(row))
	}
	return nil
}

// CountRows returns the number of stored rows for a task.
func (s *Store) CountRows(ctx context.Context, id string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.tasks[id]; !ok {
		return 0, internalerr.ErrNotFound
	}
	return len(s.rows[id]), nil
}

// GetRows returns a subsequence of a task's rows in rank order.
func (s *Store) GetRows(ctx context.Context, id string, offset, limit int) ([]store.TermRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.tasks[id]; !ok {
		return nil, internalerr.ErrNotFound
	}

	all := s.rows[id]
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]store.TermRow, end-offset)
	for i, row := range all[offset:end] {
		out[i] = copyRow(row)
	}
	return out, nil
}

func copyRow(r store.TermRow) store.TermRow {
	sources := make([]store.Source, len(r.Sources))
	copy(sources, r.Sources)
	r.Sources = sources
	return r
}
