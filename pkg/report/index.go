package report

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/devicelab-dev/cyrunner/pkg/logger"
)

// debounce is how long progress updates are batched before the index is
// rewritten.
const debounce = 100 * time.Millisecond

// IndexWriter provides thread-safe updates to the report index.
// Multiple test goroutines can update the index concurrently.
type IndexWriter struct {
	mu    sync.Mutex
	path  string
	index *Index

	// Debouncing for progress updates
	pending map[string]*TestUpdate
	timer   *time.Timer
	closed  bool
}

// NewIndexWriter creates a new IndexWriter.
func NewIndexWriter(outputDir string, index *Index) *IndexWriter {
	return &IndexWriter{
		path:    filepath.Join(outputDir, "report.json"),
		index:   index,
		pending: make(map[string]*TestUpdate),
	}
}

// Start marks the run as started.
func (w *IndexWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.index.Status = StatusRunning
	w.index.StartTime = now
	w.index.LastUpdated = now

	w.flushLocked()
}

// UpdateTest updates a test entry in the index.
// Terminal states flush immediately; progress updates are debounced.
func (w *IndexWriter) UpdateTest(testID string, update *TestUpdate) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if prev, ok := w.pending[testID]; ok {
		update = merge(prev, update)
	}
	w.pending[testID] = update

	if update.Status.IsTerminal() || w.closed {
		w.flushLocked()
		return
	}

	if w.timer == nil {
		w.timer = time.AfterFunc(debounce, w.flush)
	}
}

// merge keeps fields set by an earlier, not yet flushed update.
func merge(prev, next *TestUpdate) *TestUpdate {
	out := *next
	if out.StartTime == nil {
		out.StartTime = prev.StartTime
	}
	if out.EndTime == nil {
		out.EndTime = prev.EndTime
	}
	if out.Duration == nil {
		out.Duration = prev.Duration
	}
	if out.Error == nil {
		out.Error = prev.Error
	}
	return &out
}

// End marks the run as complete.
func (w *IndexWriter) End() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.applyPending()
	now := time.Now()
	w.index.EndTime = &now
	w.index.Status = w.computeRunStatus()

	w.flushLocked()
}

// Close flushes any pending updates. Later updates are written immediately.
func (w *IndexWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.flushLocked()
}

// GetIndex returns the current index (for reading).
func (w *IndexWriter) GetIndex() *Index {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index
}

func (w *IndexWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

// flushLocked applies pending updates and writes the index. w.mu is held.
func (w *IndexWriter) flushLocked() {
	w.applyPending()

	w.index.UpdateSeq++
	w.index.LastUpdated = time.Now()
	w.index.Summary = w.computeSummary()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	if err := atomicWriteJSON(w.path, w.index); err != nil {
		logger.Warn("write report index: %v", err)
	}
}

func (w *IndexWriter) applyPending() {
	for testID, update := range w.pending {
		w.applyUpdate(testID, update)
	}
	w.pending = make(map[string]*TestUpdate)
}

// applyUpdate applies a TestUpdate to the index.
func (w *IndexWriter) applyUpdate(testID string, update *TestUpdate) {
	for i := range w.index.Tests {
		if w.index.Tests[i].ID != testID {
			continue
		}
		t := &w.index.Tests[i]
		t.Status = update.Status
		if update.StartTime != nil {
			t.StartTime = update.StartTime
		}
		if update.EndTime != nil {
			t.EndTime = update.EndTime
		}
		if update.Duration != nil {
			t.Duration = update.Duration
		}
		t.Commands = update.Commands
		if update.Error != nil {
			t.Error = update.Error
		}
		t.UpdateSeq++
		now := time.Now()
		t.LastUpdated = &now
		return
	}
}

// computeSummary calculates summary from test statuses.
func (w *IndexWriter) computeSummary() Summary {
	var s Summary
	for _, t := range w.index.Tests {
		s.Total++
		switch t.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusErrored:
			s.Errored++
		case StatusSkipped:
			s.Skipped++
		case StatusRunning:
			s.Running++
		case StatusPending:
			s.Pending++
		}
	}
	return s
}

// computeRunStatus determines overall run status from tests. A run with an
// errored test is reported failed.
func (w *IndexWriter) computeRunStatus() Status {
	hasFailure := false
	allComplete := true

	for _, t := range w.index.Tests {
		if t.Status == StatusFailed || t.Status == StatusErrored {
			hasFailure = true
		}
		if !t.Status.IsTerminal() {
			allComplete = false
		}
	}

	if !allComplete {
		return StatusRunning
	}
	if hasFailure {
		return StatusFailed
	}
	return StatusPassed
}
