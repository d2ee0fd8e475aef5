package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"nameres/internal/core/ports"
	"nameres/internal/data/history"
	"nameres/internal/data/queue"
	"nameres/internal/shared/observability"
)

const (
	historyQueueCapacity = 64
	historyBatchSize     = 8
	historyFlushInterval = 100 * time.Millisecond
)

// historyWriter saves runs off the resolve path. When the queue is full the
// run is written synchronously instead of being lost.
type historyWriter struct {
	store ports.HistoryStore
	queue *queue.MemoryQueue[history.Run]
	log   *slog.Logger
	done  chan struct{}
	// pending counts accepted runs not yet written.
	pending atomic.Int64
}

func newHistoryWriter(store ports.HistoryStore, log *slog.Logger) *historyWriter {
	return &historyWriter{
		store: store,
		queue: queue.NewMemoryQueue[history.Run](historyQueueCapacity),
		log:   log,
		done:  make(chan struct{}),
	}
}

func (w *historyWriter) start() {
	go w.run()
}

func (w *historyWriter) run() {
	defer close(w.done)
	ctx := context.Background()
	for {
		batch, err := w.queue.DequeueBatch(ctx, historyBatchSize, historyFlushInterval)
		for _, run := range batch {
			w.save(ctx, run)
			w.pending.Add(-1)
		}
		if errors.Is(err, io.EOF) {
			return
		}
	}
}

func (w *historyWriter) save(ctx context.Context, run history.Run) {
	if err := w.store.SaveRun(ctx, run); err != nil {
		observability.HistoryWritesTotal.WithLabelValues("error").Inc()
		w.log.Warn("history write failed", "run_id", run.ID, "crate", run.Crate, "error", err)
		return
	}
	observability.HistoryWritesTotal.WithLabelValues("ok").Inc()
}

func (w *historyWriter) enqueue(run history.Run) {
	w.pending.Add(1)
	if w.queue.Enqueue(run) == ports.EnqueueAccepted {
		return
	}
	w.pending.Add(-1)
	observability.HistoryWritesTotal.WithLabelValues("spilled").Inc()
	w.save(context.Background(), run)
}

// flush waits until every accepted run has been written or ctx is done.
func (w *historyWriter) flush(ctx context.Context) {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for w.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// stop closes the queue and waits for the worker to drain it.
func (w *historyWriter) stop(ctx context.Context) error {
	_ = w.queue.Close()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
