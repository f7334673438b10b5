package batch

import (
	"sync"
	"testing"
	"time"

	"vigil/internal/metrics"
)

const testQuiet = 30 * time.Millisecond

type notifyRecorder struct {
	mu       sync.Mutex
	projects []string
	signal   chan string
}

func newNotifyRecorder() *notifyRecorder {
	return &notifyRecorder{signal: make(chan string, 16)}
}

func (recorder *notifyRecorder) notify(projectID string) {
	recorder.mu.Lock()
	recorder.projects = append(recorder.projects, projectID)
	recorder.mu.Unlock()
	recorder.signal <- projectID
}

func (recorder *notifyRecorder) count() int {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return len(recorder.projects)
}

func (recorder *notifyRecorder) wait(t *testing.T) string {
	t.Helper()
	select {
	case projectID := <-recorder.signal:
		return projectID
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for batch notification")
		return ""
	}
}

func (recorder *notifyRecorder) expectSilence(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case projectID := <-recorder.signal:
		t.Fatalf("unexpected notification for %q", projectID)
	case <-time.After(wait):
	}
}

func newTestAggregator(recorder *notifyRecorder) *Aggregator {
	return NewAggregator("demo", recorder.notify, Options{
		QuietPeriod: testQuiet,
		Logger:      discardLogger(),
		Registry:    &metrics.Registry{},
	})
}

func TestRapidIngestsFlushOnce(t *testing.T) {
	recorder := newNotifyRecorder()
	aggregator := newTestAggregator(recorder)
	defer aggregator.Dispose()

	for i := 0; i < 5; i++ {
		aggregator.Ingest(ChangeEvent{Path: "/a.go", Kind: KindModify, TimestampMS: int64(i)})
		time.Sleep(testQuiet / 5)
	}

	if projectID := recorder.wait(t); projectID != "demo" {
		t.Fatalf("expected project demo, got %q", projectID)
	}
	recorder.expectSilence(t, 3*testQuiet)
	if recorder.count() != 1 {
		t.Fatalf("expected exactly 1 flush, got %d", recorder.count())
	}
}

func TestTimerMeasuresFromLastIngest(t *testing.T) {
	recorder := newNotifyRecorder()
	aggregator := newTestAggregator(recorder)
	defer aggregator.Dispose()

	aggregator.Ingest(ChangeEvent{Path: "/a.go", Kind: KindModify, TimestampMS: 1})
	time.Sleep(2 * testQuiet / 3)
	start := time.Now()
	aggregator.Ingest(ChangeEvent{Path: "/b.go", Kind: KindModify, TimestampMS: 2})

	recorder.wait(t)
	if elapsed := time.Since(start); elapsed < testQuiet {
		t.Fatalf("flush fired %v after last ingest, want >= %v", elapsed, testQuiet)
	}
}

func TestSeparatedIngestsFlushIndependently(t *testing.T) {
	recorder := newNotifyRecorder()
	aggregator := newTestAggregator(recorder)
	defer aggregator.Dispose()

	aggregator.Ingest(ChangeEvent{Path: "/a.go", Kind: KindModify, TimestampMS: 1})
	recorder.wait(t)

	aggregator.Ingest(ChangeEvent{Path: "/b.go", Kind: KindModify, TimestampMS: 2})
	recorder.wait(t)

	if recorder.count() != 2 {
		t.Fatalf("expected 2 independent flushes, got %d", recorder.count())
	}
}

func TestDuplicateCreatesStillFlush(t *testing.T) {
	recorder := newNotifyRecorder()
	aggregator := newTestAggregator(recorder)
	defer aggregator.Dispose()

	// Both events dedupe down to one create, so a batch still flushes.
	aggregator.Ingest(
		ChangeEvent{Path: "/a.go", Kind: KindCreate, TimestampMS: 1},
		ChangeEvent{Path: "/a.go", Kind: KindCreate, TimestampMS: 2},
	)
	recorder.wait(t)
}

func TestDisposeBeforeIngestIsTerminal(t *testing.T) {
	recorder := newNotifyRecorder()
	aggregator := newTestAggregator(recorder)

	aggregator.Dispose()
	aggregator.Ingest(ChangeEvent{Path: "/a.go", Kind: KindModify, TimestampMS: 1})

	if aggregator.Pending() != 0 {
		t.Fatalf("expected empty buffer after disposed ingest, got %d", aggregator.Pending())
	}
	recorder.expectSilence(t, 3*testQuiet)
}

func TestDisposeBeforeExpirySuppressesNotification(t *testing.T) {
	recorder := newNotifyRecorder()
	aggregator := newTestAggregator(recorder)

	aggregator.Ingest(ChangeEvent{Path: "/a.go", Kind: KindModify, TimestampMS: 1})
	aggregator.Dispose()

	recorder.expectSilence(t, 3*testQuiet)
}

func TestDisposeIsIdempotent(t *testing.T) {
	recorder := newNotifyRecorder()
	aggregator := newTestAggregator(recorder)

	aggregator.Dispose()
	aggregator.Dispose()
	recorder.expectSilence(t, testQuiet)
}

func TestIngestDuringFlushStartsNextCycle(t *testing.T) {
	recorder := newNotifyRecorder()
	aggregator := newTestAggregator(recorder)
	defer aggregator.Dispose()

	aggregator.Ingest(ChangeEvent{Path: "/a.go", Kind: KindModify, TimestampMS: 1})
	recorder.wait(t)

	// The buffer was handed off; a new ingest must start a fresh cycle.
	aggregator.Ingest(ChangeEvent{Path: "/b.go", Kind: KindModify, TimestampMS: 2})
	recorder.wait(t)
	if recorder.count() != 2 {
		t.Fatalf("expected 2 flushes, got %d", recorder.count())
	}
}

func TestPanicInNotifyIsContained(t *testing.T) {
	registry := &metrics.Registry{}
	aggregator := NewAggregator("demo", func(string) {
		panic("notify exploded")
	}, Options{
		QuietPeriod: testQuiet,
		Logger:      discardLogger(),
		Registry:    registry,
	})
	defer aggregator.Dispose()

	aggregator.Ingest(ChangeEvent{Path: "/a.go", Kind: KindModify, TimestampMS: 1})
	time.Sleep(3 * testQuiet)

	// The aggregator must survive a failed flush and run the next cycle.
	aggregator.Ingest(ChangeEvent{Path: "/b.go", Kind: KindModify, TimestampMS: 2})
	time.Sleep(3 * testQuiet)

	if aggregator.Pending() != 0 {
		t.Fatalf("expected buffer handed off despite panics, got %d pending", aggregator.Pending())
	}
}

func TestConcurrentIngestIsSafe(t *testing.T) {
	recorder := newNotifyRecorder()
	aggregator := newTestAggregator(recorder)
	defer aggregator.Dispose()

	var group sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		group.Add(1)
		go func(worker int) {
			defer group.Done()
			for i := 0; i < 50; i++ {
				aggregator.Ingest(ChangeEvent{
					Path:        "/file.go",
					Kind:        KindModify,
					TimestampMS: int64(worker*100 + i),
				})
			}
		}(worker)
	}
	group.Wait()

	recorder.wait(t)
	recorder.expectSilence(t, 3*testQuiet)
	if recorder.count() != 1 {
		t.Fatalf("expected a single flush after concurrent ingests, got %d", recorder.count())
	}
}
