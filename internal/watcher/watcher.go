package watcher

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"vigil/internal/batch"
	"vigil/internal/descriptor"
	"vigil/internal/logging"
	"vigil/internal/metrics"
)

// ProjectWatcher watches one descriptor's root tree and extra files, mapping
// raw OS notifications to change events for the sink.
type ProjectWatcher struct {
	desc       descriptor.Descriptor
	ignore     *descriptor.IgnoreMatcher
	watcher    *fsnotify.Watcher
	sink       Sink
	logger     *logging.Logger
	registry   *metrics.Registry
	maxWatches int
	clock      Clock

	mu      sync.Mutex
	watched map[string]struct{}
	done    chan struct{}
	closed  bool
}

// NewProjectWatcher registers watches for the descriptor and starts the event
// loop. The sink is called from the watcher goroutine and must not block.
func NewProjectWatcher(desc descriptor.Descriptor, sink Sink, options Options) (*ProjectWatcher, error) {
	ignore, err := descriptor.NewIgnoreMatcher(desc)
	if err != nil {
		return nil, err
	}

	source, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), logging.LevelInfo, nil)
	}
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}
	maxWatches := options.MaxWatches
	if maxWatches <= 0 {
		maxWatches = defaultMaxWatches
	}

	instance := &ProjectWatcher{
		desc:       desc,
		ignore:     ignore,
		watcher:    source,
		sink:       sink,
		logger:     logger.With(map[string]string{"project_id": desc.ProjectID}),
		registry:   registry,
		maxWatches: maxWatches,
		clock:      wallClock,
		watched:    make(map[string]struct{}),
		done:       make(chan struct{}),
	}

	if err := instance.addRecursiveWatches(filepath.FromSlash(desc.Root)); err != nil {
		_ = source.Close()
		return nil, err
	}
	for _, extra := range desc.ExtraFiles {
		if err := instance.addWatch(filepath.FromSlash(extra)); err != nil {
			instance.logWarn("extra file watch failed", map[string]string{
				"path":  extra,
				"error": err.Error(),
			})
		}
	}

	go instance.run()
	return instance, nil
}

// Close stops the watcher. Idempotent.
func (watcher *ProjectWatcher) Close() error {
	if watcher == nil {
		return nil
	}
	watcher.mu.Lock()
	if watcher.closed {
		watcher.mu.Unlock()
		return nil
	}
	watcher.closed = true
	watcher.mu.Unlock()

	close(watcher.done)
	return watcher.watcher.Close()
}

// ActiveWatches reports the number of registered OS watches.
func (watcher *ProjectWatcher) ActiveWatches() int {
	if watcher == nil {
		return 0
	}
	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	return len(watcher.watched)
}

func (watcher *ProjectWatcher) run() {
	for {
		select {
		case event, ok := <-watcher.watcher.Events:
			if !ok {
				return
			}
			watcher.handleEvent(event)
		case err, ok := <-watcher.watcher.Errors:
			if !ok {
				return
			}
			watcher.registry.IncWatchErrors()
			watcher.logWarn("watch mechanism error", map[string]string{
				"error": err.Error(),
			})
		case <-watcher.done:
			return
		}
	}
}

func (watcher *ProjectWatcher) handleEvent(event fsnotify.Event) {
	kind := mapOp(event.Op)
	if kind == batch.KindUnknown {
		return
	}

	relative, ok := watcher.relativePath(event.Name)
	if !ok {
		return
	}
	if watcher.ignore.Ignored(relative) {
		return
	}

	change := batch.ChangeEvent{
		Path:        relative,
		Kind:        kind,
		TimestampMS: watcher.clock(),
	}
	// Events stamped before watching logically began belong to a stale
	// configuration and are discarded.
	if watcher.desc.CreationTimeMS > 0 && change.TimestampMS < watcher.desc.CreationTimeMS {
		return
	}

	if kind == batch.KindCreate {
		watcher.maybeWatchNewDir(event.Name)
	}
	if kind == batch.KindDelete {
		watcher.forgetWatch(event.Name)
	}

	if watcher.sink != nil {
		watcher.sink(change)
	}
}

// relativePath converts an OS path to the project-relative slash form, with
// the root itself rendered as "/".
func (watcher *ProjectWatcher) relativePath(osPath string) (string, bool) {
	slashed := filepath.ToSlash(osPath)
	root := watcher.desc.Root
	if slashed == root {
		return "/", true
	}
	// A length-1 root already ends in the separator.
	if root == "/" && strings.HasPrefix(slashed, "/") {
		return slashed, true
	}
	if strings.HasPrefix(slashed, root+"/") {
		return slashed[len(root):], true
	}
	// Extra files live outside the root and keep their absolute form.
	for _, extra := range watcher.desc.ExtraFiles {
		if slashed == extra {
			return slashed, true
		}
	}
	return "", false
}

func (watcher *ProjectWatcher) logWarn(message string, fields map[string]string) {
	if watcher == nil || watcher.logger == nil {
		return
	}
	watcher.logger.Warn(message, fields)
}

func mapOp(op fsnotify.Op) batch.Kind {
	switch {
	case op.Has(fsnotify.Create):
		return batch.KindCreate
	case op.Has(fsnotify.Write):
		return batch.KindModify
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return batch.KindDelete
	default:
		return batch.KindUnknown
	}
}
