package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"calcscript/internal/core/ports"
	"calcscript/internal/data/history"
	"calcscript/internal/data/queue"
	"calcscript/internal/shared/observability"
)

const (
	defaultRecorderCapacity = 256
	recorderBatchSize       = 16
	recorderFlushInterval   = 100 * time.Millisecond
)

// Recorder writes run audit records in the background so a slow or locked
// history database never delays a run. When the buffer is full new records
// are dropped and counted.
type Recorder struct {
	sink  ports.RunRecorder
	queue *queue.MemoryQueue[history.Run]

	// retain > 0 prunes the store down to that many runs after each batch.
	retain int
	pruner interface {
		Prune(ctx context.Context, retain int) (int64, error)
	}

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func NewRecorder(sink ports.RunRecorder, capacity int) *Recorder {
	if capacity <= 0 {
		capacity = defaultRecorderCapacity
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder{
		sink:   sink,
		queue:  queue.NewMemoryQueue[history.Run](capacity),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go r.run(ctx)
	return r
}

// WithRetention makes the recorder prune the store after each batch when the
// sink supports it.
func (r *Recorder) WithRetention(retain int) *Recorder {
	if p, ok := r.sink.(interface {
		Prune(ctx context.Context, retain int) (int64, error)
	}); ok && retain > 0 {
		r.pruner = p
		r.retain = retain
	}
	return r
}

// Record queues run for writing. It never blocks.
func (r *Recorder) Record(run history.Run) {
	if r == nil {
		return
	}
	if r.queue.Enqueue(run) == queue.EnqueueDropped {
		observability.HistoryWritesTotal.WithLabelValues("dropped").Inc()
		slog.Warn("history buffer full, run not recorded", "run_id", run.ID)
	}
}

func (r *Recorder) run(ctx context.Context) {
	defer close(r.done)
	for {
		batch, err := r.queue.DequeueBatch(ctx, recorderBatchSize, recorderFlushInterval)
		if len(batch) > 0 {
			r.apply(batch)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return
		}
	}
}

func (r *Recorder) apply(batch []history.Run) {
	// Writes must survive shutdown, so they do not share the worker context.
	ctx := context.Background()
	for _, run := range batch {
		if _, err := r.sink.SaveRun(ctx, run); err != nil {
			observability.HistoryWritesTotal.WithLabelValues("error").Inc()
			slog.Warn("history write failed", "run_id", run.ID, "error", err)
			continue
		}
		observability.HistoryWritesTotal.WithLabelValues("ok").Inc()
	}
	if r.pruner != nil {
		if _, err := r.pruner.Prune(ctx, r.retain); err != nil {
			slog.Warn("history prune failed", "error", err)
		}
	}
}

// Close stops accepting records and waits until every queued record has been
// written or ctx expires.
func (r *Recorder) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.closeOnce.Do(func() { _ = r.queue.Close() })
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}
