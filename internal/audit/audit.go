// Package audit provides a fire-and-forget audit log writer. Entries are
// queued to a background goroutine; a full queue drops the entry with a
// warning rather than slowing the operation being audited.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linguaflow/qa-pipeline/internal/model"
	"github.com/linguaflow/qa-pipeline/internal/resilience"
	"github.com/linguaflow/qa-pipeline/internal/store"
)

// DefaultQueueSize bounds the number of entries waiting to be written.
const DefaultQueueSize = 256

// Recorder accepts audit entries for asynchronous persistence. Callers
// treat recording as infallible; delivery is the recorder's problem.
type Recorder interface {
	Record(entry model.AuditEntry)
}

var _ Recorder = (*Writer)(nil)

const writeTimeout = 10 * time.Second

// Writer queues audit entries and persists them asynchronously with retry.
type Writer struct {
	store store.Store
	retry resilience.RetryConfig

	queue chan model.AuditEntry
	done  chan struct{}
	once  sync.Once
}

// NewWriter starts the background writer. Call Close to drain and stop it.
func NewWriter(s store.Store, queueSize int) *Writer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	retry := resilience.DefaultRetryConfig()
	retry.InitialBackoff = 50 * time.Millisecond
	// Audit writes are a best-effort sink; retry everything short of a
	// precondition failure.
	retry.ShouldRetry = func(err error) bool { return !resilience.IsNonRetriable(err) }
	retry.OnRetry = resilience.RetryLogger("audit", "write")

	w := &Writer{
		store: s,
		retry: retry,
		queue: make(chan model.AuditEntry, queueSize),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// Record queues an entry. It never blocks: when the queue is full the entry
// is dropped and logged.
func (w *Writer) Record(entry model.AuditEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	select {
	case w.queue <- entry:
	default:
		zap.L().Warn("audit queue full, entry dropped",
			zap.String("entity_type", entry.EntityType),
			zap.String("entity_id", entry.EntityID),
			zap.String("action", entry.Action),
		)
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for entry := range w.queue {
		w.write(entry)
	}
}

func (w *Writer) write(entry model.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := resilience.Do(ctx, w.retry, func(ctx context.Context) error {
		return w.store.WriteAuditLog(ctx, entry)
	})
	if err != nil {
		zap.L().Error("audit write failed",
			zap.String("entity_type", entry.EntityType),
			zap.String("entity_id", entry.EntityID),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

// Close stops accepting entries and blocks until the queue drains.
func (w *Writer) Close() {
	w.once.Do(func() { close(w.queue) })
	<-w.done
}
