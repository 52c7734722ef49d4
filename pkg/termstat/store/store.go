package store

import (
	"context"
	"time"
)

// Status is the lifecycle state of an analysis task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is one submitted analysis request tracked from pending through a
// terminal status. Error is set only when Status is StatusFailed.
type Task struct {
	ID        string
	Label     string
	CreatedAt time.Time
	Status    Status
	Error     string
}

// Source attributes a term's occurrences to one document.
type Source struct {
	Document string `json:"document"`
	Count    int    `json:"count"`
}

// TermRow is one ranked term statistics row belonging to a task.
type TermRow struct {
	Term    string
	TF      int
	DF      int
	IDF     float64
	Sources []Source
}

// Store persists analysis tasks and their ranked term rows. Implementations
// must serialize concurrent writes to the same task and must not let a task
// leave a terminal status.
type Store interface {
	Close() error

	// CreateTask allocates a new pending task and returns its identifier.
	CreateTask(ctx context.Context, label string) (string, error)
	GetTask(ctx context.Context, id string) (Task, bool, error)
	// SetStatus moves a task to a terminal status. It fails with
	// internalerr.ErrTaskFinished when the task is already terminal.
	SetStatus(ctx context.Context, id string, status Status, errMsg string) error

	// AppendRows persists ranked rows for a task, preserving their order.
	AppendRows(ctx context.Context, id string, rows []TermRow) error
	CountRows(ctx context.Context, id string) (int, error)
	// GetRows returns a subsequence of a task's rows in rank order.
	GetRows(ctx context.Context, id string, offset, limit int) ([]TermRow, error)
}
