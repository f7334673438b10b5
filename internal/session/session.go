// Package session owns the per-project watch pipeline: one project watcher
// feeding one batch aggregator per descriptor, with settled-batch signals
// relayed to the coordinator and published on the local event bus.
package session

import (
	"context"
	"sync"
	"time"

	"vigil/internal/batch"
	"vigil/internal/descriptor"
	"vigil/internal/event"
	"vigil/internal/logging"
	"vigil/internal/metrics"
	"vigil/internal/watcher"
)

// Notification announces that a project's change stream has settled.
type Notification struct {
	ProjectID  string    `json:"project_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier delivers the batch-ready signal to the coordinator. Calls are
// fire-and-forget from the session's perspective; failures are logged, never
// retried here.
type Notifier interface {
	NotifyBatchReady(projectID string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(projectID string) error

func (f NotifierFunc) NotifyBatchReady(projectID string) error {
	return f(projectID)
}

// Options controls session behavior. Zero values fall back to defaults.
type Options struct {
	QuietPeriod  time.Duration
	SummaryLimit int
	MaxWatches   int
	Logger       *logging.Logger
	Registry     *metrics.Registry
}

// Session manages the watched projects of one agent.
type Session struct {
	options  Options
	notifier Notifier
	logger   *logging.Logger
	registry *metrics.Registry
	bus      *event.Bus[Notification]

	mu       sync.Mutex
	projects map[string]*projectState
	closed   bool
}

type projectState struct {
	desc       descriptor.Descriptor
	aggregator *batch.Aggregator
	watcher    *watcher.ProjectWatcher
}

// New creates a session tied to the context; cancelling the context closes
// the notification bus.
func New(ctx context.Context, notifier Notifier, options Options) *Session {
	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), logging.LevelInfo, nil)
	}
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}
	return &Session{
		options:  options,
		notifier: notifier,
		logger:   logger,
		registry: registry,
		bus: event.NewBus[Notification](ctx, event.BusOptions{
			Name:     "batch_notifications",
			Registry: registry,
		}),
		projects: make(map[string]*projectState),
	}
}

// Bus exposes the batch-ready notification stream.
func (session *Session) Bus() *event.Bus[Notification] {
	if session == nil {
		return nil
	}
	return session.bus
}

// Apply registers, replaces, or removes a project according to the record.
func (session *Session) Apply(record descriptor.Record) error {
	if session == nil {
		return nil
	}
	if record.Deleted {
		session.remove(descriptor.NewDeletionNotice(record))
		return nil
	}

	desc, err := descriptor.NewDescriptor(record)
	if err != nil {
		return err
	}
	// Stamp the moment watching logically begins so events from a stale
	// configuration can be told apart later.
	if desc.CreationTimeMS <= 0 {
		desc, err = desc.WithCreationTime(time.Now().UnixMilli())
		if err != nil {
			return err
		}
	}

	session.mu.Lock()
	if session.closed {
		session.mu.Unlock()
		return nil
	}
	existing := session.projects[desc.ProjectID]
	if existing != nil && existing.desc.WatchStateID == desc.WatchStateID && existing.desc.Root == desc.Root {
		session.mu.Unlock()
		return nil
	}
	session.mu.Unlock()

	aggregator := batch.NewAggregator(desc.ProjectID, session.batchReady, batch.Options{
		QuietPeriod:  session.options.QuietPeriod,
		SummaryLimit: session.options.SummaryLimit,
		Logger:       session.logger,
		Registry:     session.registry,
	})
	projectWatcher, err := watcher.NewProjectWatcher(desc, func(events ...batch.ChangeEvent) {
		aggregator.Ingest(events...)
	}, watcher.Options{
		Logger:     session.logger,
		Registry:   session.registry,
		MaxWatches: session.options.MaxWatches,
	})
	if err != nil {
		aggregator.Dispose()
		return err
	}

	session.mu.Lock()
	if session.closed {
		session.mu.Unlock()
		aggregator.Dispose()
		_ = projectWatcher.Close()
		return nil
	}
	previous := session.projects[desc.ProjectID]
	session.projects[desc.ProjectID] = &projectState{
		desc:       desc,
		aggregator: aggregator,
		watcher:    projectWatcher,
	}
	session.mu.Unlock()

	if previous != nil {
		previous.aggregator.Dispose()
		_ = previous.watcher.Close()
	}

	session.logger.Info("watching project", map[string]string{
		"project_id": desc.ProjectID,
		"root":       desc.Root,
	})
	return nil
}

func (session *Session) remove(notice descriptor.DeletionNotice) {
	if notice.ProjectID == "" {
		return
	}

	session.mu.Lock()
	state := session.projects[notice.ProjectID]
	delete(session.projects, notice.ProjectID)
	session.mu.Unlock()

	if state == nil {
		return
	}
	state.aggregator.Dispose()
	_ = state.watcher.Close()
	session.logger.Info("stopped watching project", map[string]string{
		"project_id": notice.ProjectID,
	})
}

// Projects lists the ids currently being watched.
func (session *Session) Projects() []string {
	if session == nil {
		return nil
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	ids := make([]string, 0, len(session.projects))
	for id := range session.projects {
		ids = append(ids, id)
	}
	return ids
}

// Close disposes every project pipeline. Idempotent.
func (session *Session) Close() {
	if session == nil {
		return
	}
	session.mu.Lock()
	if session.closed {
		session.mu.Unlock()
		return
	}
	session.closed = true
	projects := session.projects
	session.projects = make(map[string]*projectState)
	session.mu.Unlock()

	for _, state := range projects {
		state.aggregator.Dispose()
		_ = state.watcher.Close()
	}
	session.bus.Close()
}

// batchReady relays a settled batch: publish locally, then fire the
// coordinator call without waiting on it.
func (session *Session) batchReady(projectID string) {
	notification := Notification{
		ProjectID:  projectID,
		OccurredAt: time.Now().UTC(),
	}
	session.bus.Publish(notification)

	if session.notifier == nil {
		return
	}
	go func() {
		if err := session.notifier.NotifyBatchReady(projectID); err != nil {
			session.logger.Warn("batch-ready delivery failed", map[string]string{
				"project_id": projectID,
				"error":      err.Error(),
			})
		}
	}()
}
