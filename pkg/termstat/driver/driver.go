// Package driver runs the scoring pipeline asynchronously per submitted
// task: it validates uploads, stages the raw bytes, schedules the run off
// the caller, and reconciles the terminal status into the store.
package driver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/cognicore/termstat/pkg/termstat/ingest"
	"github.com/cognicore/termstat/pkg/termstat/score"
	"github.com/cognicore/termstat/pkg/termstat/store"
)

// Upload is one raw document submitted for analysis.
type Upload struct {
	Filename string
	Data     []byte
}

// Limits bound what a single submission may contain.
type Limits struct {
	MaxFileBytes  int64
	MaxTotalBytes int64
	Extensions    []string
}

// DefaultLimits matches the transport contract: 5MB per file, 20MB per
// submission, text extensions only.
func DefaultLimits() Limits {
	return Limits{
		MaxFileBytes:  5 << 20,
		MaxTotalBytes: 20 << 20,
		Extensions:    []string{".txt", ".text"},
	}
}

// ValidationError rejects a submission synchronously, before any task is
// created.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Driver stages uploads and runs the scoring pipeline off the submitting
// call.
type Driver struct {
	store     store.Store
	scorer    *score.Scorer
	staging   *staging
	limits    Limits
	encodings []string
	sem       *semaphore.Weighted
	log       *logrus.Entry

	mu   sync.Mutex
	done map[string]chan struct{}
	wg   sync.WaitGroup
}

// Options configures a Driver.
type Options struct {
	Store      store.Store
	Scorer     *score.Scorer
	StagingDir string
	Limits     Limits
	// Encodings is the ordered decode attempt list; empty means
	// ingest.DefaultEncodings.
	Encodings []string
	// MaxConcurrentRuns caps tasks scoring at the same time; zero means 4.
	MaxConcurrentRuns int64
	Logger            *logrus.Logger
}

// New creates a Driver and ensures the staging directory exists.
func New(opts Options) (*Driver, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("driver: store is required")
	}

	scorer := opts.Scorer
	if scorer == nil {
		scorer = score.New(score.Options{})
	}

	limits := opts.Limits
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = DefaultLimits().MaxFileBytes
	}
	if limits.MaxTotalBytes <= 0 {
		limits.MaxTotalBytes = DefaultLimits().MaxTotalBytes
	}
	if len(limits.Extensions) == 0 {
		limits.Extensions = DefaultLimits().Extensions
	}

	maxRuns := opts.MaxConcurrentRuns
	if maxRuns <= 0 {
		maxRuns = 4
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	stg, err := newStaging(opts.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("driver: init staging: %w", err)
	}

	return &Driver{
		store:     opts.Store,
		scorer:    scorer,
		staging:   stg,
		limits:    limits,
		encodings: opts.Encodings,
		sem:       semaphore.NewWeighted(maxRuns),
		log:       logger.WithField("component", "driver"),
		done:      make(map[string]chan struct{}),
	}, nil
}

// Submit validates the uploads, records a pending task, stages the raw
// bytes, and schedules the analysis run. It never blocks on scoring; the
// returned identifier can be polled through the store.
func (d *Driver) Submit(ctx context.Context, uploads []Upload) (string, error) {
	if err := d.validate(uploads); err != nil {
		return "", err
	}

	names := make([]string, len(uploads))
	for i, u := range uploads {
		names[i] = u.Filename
	}

	id, err := d.store.CreateTask(ctx, strings.Join(names, ", "))
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}

	if err := d.staging.write(id, uploads); err != nil {
		d.staging.remove(id)
		if serr := d.store.SetStatus(ctx, id, store.StatusFailed, err.Error()); serr != nil {
			d.log.WithError(serr).WithField("task_id", id).Error("failed to record staging failure")
		}
		return "", fmt.Errorf("stage uploads: %w", err)
	}

	ch := make(chan struct{})
	d.mu.Lock()
	d.done[id] = ch
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(ch)
		d.run(context.Background(), id)
	}()

	d.log.WithFields(logrus.Fields{"task_id": id, "files": len(uploads)}).Info("task submitted")
	return id, nil
}

// Done returns a channel closed when the task reaches a terminal status, and
// whether the task is known to this driver instance.
func (d *Driver) Done(id string) (<-chan struct{}, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.done[id]
	return ch, ok
}

// Wait blocks until every in-flight task has finished. Used on shutdown.
func (d *Driver) Wait() {
	d.wg.Wait()
}

// run executes the scoring pipeline for one staged task and records the
// terminal status. Staged bytes are removed on every exit path.
func (d *Driver) run(ctx context.Context, id string) {
	defer func() {
		if err := d.staging.remove(id); err != nil {
			d.log.WithError(err).WithField("task_id", id).Warn("failed to remove staged files")
		}
	}()

	if err := d.sem.Acquire(ctx, 1); err != nil {
		d.fail(ctx, id, err)
		return
	}
	defer d.sem.Release(1)

	corpus, err := d.loadCorpus(id)
	if err != nil {
		d.fail(ctx, id, err)
		return
	}

	rows := d.scorer.ScoreCorpus(corpus)

	if err := d.store.AppendRows(ctx, id, convertRows(rows)); err != nil {
		d.fail(ctx, id, err)
		return
	}
	if err := d.store.SetStatus(ctx, id, store.StatusCompleted, ""); err != nil {
		d.log.WithError(err).WithField("task_id", id).Error("failed to mark task completed")
		return
	}

	d.log.WithFields(logrus.Fields{"task_id": id, "rows": len(rows)}).Info("task completed")
}

// fail records the error message verbatim as the task's terminal state.
func (d *Driver) fail(ctx context.Context, id string, cause error) {
	d.log.WithError(cause).WithField("task_id", id).Warn("task failed")
	if err := d.store.SetStatus(ctx, id, store.StatusFailed, cause.Error()); err != nil {
		d.log.WithError(err).WithField("task_id", id).Error("failed to mark task failed")
	}
}

// loadCorpus reads the staged files and decodes each into the corpus map.
func (d *Driver) loadCorpus(id string) (map[string]string, error) {
	files, err := d.staging.read(id)
	if err != nil {
		return nil, err
	}

	corpus := make(map[string]string, len(files))
	for name, data := range files {
		text, err := ingest.DecodeText(data, d.encodings)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		corpus[name] = text
	}
	return corpus, nil
}

func (d *Driver) validate(uploads []Upload) error {
	if len(uploads) == 0 {
		return &ValidationError{Reason: "no files provided"}
	}

	var total int64
	seen := make(map[string]struct{}, len(uploads))
	for _, u := range uploads {
		name := strings.TrimSpace(u.Filename)
		if name == "" {
			return &ValidationError{Reason: "file has an empty name"}
		}
		if !hasAllowedExtension(name, d.limits.Extensions) {
			return &ValidationError{Reason: fmt.Sprintf(
				"%s: only %s files are allowed", name, strings.Join(d.limits.Extensions, ", "))}
		}
		if _, dup := seen[name]; dup {
			return &ValidationError{Reason: fmt.Sprintf("duplicate file name %s", name)}
		}
		seen[name] = struct{}{}

		size := int64(len(u.Data))
		if size > d.limits.MaxFileBytes {
			return &ValidationError{Reason: fmt.Sprintf(
				"%s exceeds the %d byte file limit", name, d.limits.MaxFileBytes)}
		}
		total += size
	}
	if total > d.limits.MaxTotalBytes {
		return &ValidationError{Reason: fmt.Sprintf(
			"submission exceeds the %d byte total limit", d.limits.MaxTotalBytes)}
	}
	return nil
}

func hasAllowedExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func convertRows(rows []score.Row) []store.TermRow {
	out := make([]store.TermRow, len(rows))
	for i, row := range rows {
		sources := make([]store.Source, len(row.Sources))
		for j, src := range row.Sources {
			sources[j] = store.Source{Document: src.Document, Count: src.Count}
		}
		out[i] = store.TermRow{
			Term:    row.Term,
			TF:      row.TF,
			DF:      row.DF,
			IDF:     row.IDF,
			Sources: sources,
		}
	}
	return out
}
