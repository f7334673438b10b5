package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Registry collects agent-wide counters for the watch pipeline.
type Registry struct {
	eventsIngested   atomic.Int64
	eventsSuppressed atomic.Int64
	batchesFlushed   atomic.Int64
	flushFailures    atomic.Int64
	watchErrors      atomic.Int64
	busDropped       atomic.Int64
	projects         sync.Map
}

type projectStats struct {
	events  atomic.Int64
	batches atomic.Int64
}

var Default = &Registry{}

func (r *Registry) AddEventsIngested(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.eventsIngested.Add(int64(count))
}

func (r *Registry) AddEventsSuppressed(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.eventsSuppressed.Add(int64(count))
}

func (r *Registry) IncBatchesFlushed() {
	if r == nil {
		return
	}
	r.batchesFlushed.Add(1)
}

func (r *Registry) IncFlushFailures() {
	if r == nil {
		return
	}
	r.flushFailures.Add(1)
}

func (r *Registry) IncWatchErrors() {
	if r == nil {
		return
	}
	r.watchErrors.Add(1)
}

func (r *Registry) IncBusDropped() {
	if r == nil {
		return
	}
	r.busDropped.Add(1)
}

// RecordProjectBatch attributes a flushed batch and its event count to a project.
func (r *Registry) RecordProjectBatch(projectID string, eventCount int) {
	if r == nil {
		return
	}
	if strings.TrimSpace(projectID) == "" {
		projectID = "unknown"
	}
	stats := r.projectStats(projectID)
	stats.batches.Add(1)
	stats.events.Add(int64(eventCount))
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}

	writeCounter(writer, "vigil_events_ingested_total", "Total change events ingested", r.eventsIngested.Load())
	writeCounter(writer, "vigil_events_suppressed_total", "Total duplicate events suppressed", r.eventsSuppressed.Load())
	writeCounter(writer, "vigil_batches_flushed_total", "Total settled batches flushed", r.batchesFlushed.Load())
	writeCounter(writer, "vigil_flush_failures_total", "Total flush cycles abandoned on error", r.flushFailures.Load())
	writeCounter(writer, "vigil_watch_errors_total", "Total watch mechanism errors", r.watchErrors.Load())
	writeCounter(writer, "vigil_bus_dropped_total", "Total notifications dropped by slow subscribers", r.busDropped.Load())

	names := r.projectNames()
	sort.Strings(names)

	writeHelp(writer, "vigil_project_batches_total", "Batches flushed per project")
	fmt.Fprintln(writer, "# TYPE vigil_project_batches_total counter")
	writeHelp(writer, "vigil_project_events_total", "Batched events per project")
	fmt.Fprintln(writer, "# TYPE vigil_project_events_total counter")

	for _, name := range names {
		stats := r.projectStats(name)
		label := formatLabel(name)
		fmt.Fprintf(writer, "vigil_project_batches_total{project=%s} %d\n", label, stats.batches.Load())
		fmt.Fprintf(writer, "vigil_project_events_total{project=%s} %d\n", label, stats.events.Load())
	}

	return nil
}

func (r *Registry) projectStats(projectID string) *projectStats {
	value, _ := r.projects.LoadOrStore(projectID, &projectStats{})
	return value.(*projectStats)
}

func (r *Registry) projectNames() []string {
	if r == nil {
		return nil
	}
	var names []string
	r.projects.Range(func(key, value interface{}) bool {
		if name, ok := key.(string); ok {
			names = append(names, name)
		}
		return true
	})
	return names
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func formatLabel(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("\"%s\"", escaped)
}
