package batch

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"vigil/internal/logging"
	"vigil/internal/metrics"
)

// DefaultQuietPeriod is how long a project must stay quiet before its pending
// events flush as one batch.
const DefaultQuietPeriod = time.Second

// Options controls aggregator behavior. Zero values fall back to defaults.
type Options struct {
	QuietPeriod  time.Duration
	SummaryLimit int
	Logger       *logging.Logger
	Registry     *metrics.Registry
}

// Aggregator accumulates change events for one project and notifies its owner
// once the stream has settled. All methods are safe for concurrent use.
type Aggregator struct {
	projectID    string
	notify       func(projectID string)
	quietPeriod  time.Duration
	summaryLimit int
	logger       *logging.Logger
	registry     *metrics.Registry

	mu         sync.Mutex
	pending    []ChangeEvent
	timer      *time.Timer
	generation uint64
	disposed   bool
}

// NewAggregator creates an aggregator for a project. The notify callback is
// invoked once per settled batch with the project id; it must not block.
func NewAggregator(projectID string, notify func(projectID string), options Options) *Aggregator {
	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), logging.LevelInfo, nil)
	}
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}
	quietPeriod := options.QuietPeriod
	if quietPeriod <= 0 {
		quietPeriod = DefaultQuietPeriod
	}
	summaryLimit := options.SummaryLimit
	if summaryLimit <= 0 {
		summaryLimit = DefaultSummaryLimit
	}
	return &Aggregator{
		projectID:    projectID,
		notify:       notify,
		quietPeriod:  quietPeriod,
		summaryLimit: summaryLimit,
		logger:       logger.With(map[string]string{"project_id": projectID}),
		registry:     registry,
	}
}

// Ingest appends events to the pending buffer in call order and restarts the
// quiet-period timer. Events are never dropped here; cleanup happens at flush.
// After Dispose this is a no-op.
func (aggregator *Aggregator) Ingest(events ...ChangeEvent) {
	if aggregator == nil || len(events) == 0 {
		return
	}

	aggregator.mu.Lock()
	defer aggregator.mu.Unlock()
	if aggregator.disposed {
		return
	}

	aggregator.pending = append(aggregator.pending, events...)
	aggregator.registry.AddEventsIngested(len(events))

	aggregator.generation++
	generation := aggregator.generation
	if aggregator.timer != nil {
		aggregator.timer.Stop()
	}
	aggregator.timer = time.AfterFunc(aggregator.quietPeriod, func() {
		aggregator.onQuietPeriod(generation)
	})
}

// Dispose permanently deactivates the aggregator. Idempotent; a timer already
// queued to fire becomes a no-op.
func (aggregator *Aggregator) Dispose() {
	if aggregator == nil {
		return
	}
	aggregator.mu.Lock()
	defer aggregator.mu.Unlock()
	if aggregator.disposed {
		return
	}
	aggregator.disposed = true
	if aggregator.timer != nil {
		aggregator.timer.Stop()
		aggregator.timer = nil
	}
	aggregator.pending = nil
}

// Pending reports the number of buffered events. Diagnostics only.
func (aggregator *Aggregator) Pending() int {
	if aggregator == nil {
		return 0
	}
	aggregator.mu.Lock()
	defer aggregator.mu.Unlock()
	return len(aggregator.pending)
}

// onQuietPeriod runs when the quiet period elapses with no new ingest. The
// generation guard makes a timer that lost the race against a newer Ingest a
// no-op even if it was already queued when the timer was reset.
func (aggregator *Aggregator) onQuietPeriod(generation uint64) {
	defer func() {
		if recovered := recover(); recovered != nil {
			aggregator.registry.IncFlushFailures()
			aggregator.logger.Error("flush failed, batch abandoned", map[string]string{
				"error": fmt.Sprint(recovered),
			})
		}
	}()

	aggregator.mu.Lock()
	if aggregator.disposed || generation != aggregator.generation {
		aggregator.mu.Unlock()
		return
	}
	taken := aggregator.pending
	aggregator.pending = nil
	aggregator.timer = nil
	aggregator.mu.Unlock()

	if len(taken) == 0 {
		return
	}

	cleaned := CleanBatch(taken, aggregator.logger)
	aggregator.registry.AddEventsSuppressed(len(taken) - len(cleaned))
	if len(cleaned) == 0 {
		return
	}

	aggregator.logger.Debug("batch settled", map[string]string{
		"events":  strconv.Itoa(len(cleaned)),
		"summary": Summarize(cleaned, aggregator.summaryLimit),
	})
	aggregator.registry.IncBatchesFlushed()
	aggregator.registry.RecordProjectBatch(aggregator.projectID, len(cleaned))

	aggregator.mu.Lock()
	disposed := aggregator.disposed
	aggregator.mu.Unlock()
	if disposed || aggregator.notify == nil {
		return
	}
	aggregator.notify(aggregator.projectID)
}
