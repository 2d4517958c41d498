package history

import (
	"context"
	"time"
)

const (
	// queueSize bounds the pending write queue. The feed goroutine must
	// never block on disk, so an incoming write is dropped when the
	// queue is full.
	queueSize = 256

	// writeTimeout bounds each insert so a wedged database cannot stall
	// the recorder loop indefinitely.
	writeTimeout = 5 * time.Second

	// pruneInterval is how often expired history is deleted.
	pruneInterval = time.Hour
)

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// pendingWrite is one state change queued for persistence.
type pendingWrite struct {
	entityID   string
	state      string
	attributes map[string]any
}

// Recorder persists entity state changes asynchronously. Enqueue never
// blocks; a dedicated goroutine drains the queue into the repository and
// prunes expired entries on an interval.
type Recorder struct {
	repo      *Repository
	retention time.Duration
	logger    Logger
	queue     chan pendingWrite
}

// NewRecorder creates a recorder writing through the given repository.
//
// Parameters:
//   - repo: Destination repository
//   - retention: How long history is kept before pruning
//
// Returns:
//   - *Recorder: Recorder ready for Run
func NewRecorder(repo *Repository, retention time.Duration) *Recorder {
	return &Recorder{
		repo:      repo,
		retention: retention,
		logger:    noopLogger{},
		queue:     make(chan pendingWrite, queueSize),
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Repository returns the repository the recorder writes through, for
// read-side consumers such as the history API.
func (r *Recorder) Repository() *Repository {
	return r.repo
}

// Enqueue queues a state change for persistence without blocking. When
// the queue is full the change is dropped and counted in logs; history
// is best-effort and must never stall the event feed.
func (r *Recorder) Enqueue(entityID, state string, attributes map[string]any) {
	select {
	case r.queue <- pendingWrite{entityID: entityID, state: state, attributes: attributes}:
	default:
		r.logger.Warn("history queue full, dropping state change", "entity_id", entityID)
	}
}

// Run drains the write queue until the context is cancelled.
//
// Parameters:
//   - ctx: Context controlling the recorder lifetime
func (r *Recorder) Run(ctx context.Context) {
	pruneTicker := time.NewTicker(pruneInterval)
	defer pruneTicker.Stop()

	r.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case write := <-r.queue:
			r.persist(ctx, write)
		case <-pruneTicker.C:
			r.prune(ctx)
		}
	}
}

// persist writes one queued change with a bounded timeout.
func (r *Recorder) persist(ctx context.Context, write pendingWrite) {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := r.repo.Record(writeCtx, write.entityID, write.state, write.attributes); err != nil {
		r.logger.Error("recording state change failed", "entity_id", write.entityID, "error", err)
	}
}

// prune deletes history past the retention window.
func (r *Recorder) prune(ctx context.Context) {
	if r.retention <= 0 {
		return
	}

	deleted, err := r.repo.Prune(ctx, r.retention)
	if err != nil {
		r.logger.Error("pruning state history failed", "error", err)
		return
	}
	if deleted > 0 {
		r.logger.Info("pruned state history", "deleted", deleted)
	}
}
