package batch

import (
	"fmt"
	"strings"
	"testing"
)

func TestSummarizeMarkersAndNames(t *testing.T) {
	events := []ChangeEvent{
		{Path: "/src/main.go", Kind: KindCreate},
		{Path: "/src/util.go", Kind: KindModify},
		{Path: "/src/old.go", Kind: KindDelete},
		{Path: "/", Kind: KindModify},
		{Path: "/weird.bin", Kind: KindUnknown},
	}

	summary := Summarize(events, DefaultSummaryLimit)
	want := "+main.go >util.go -old.go >/ ?weird.bin"
	if summary != want {
		t.Fatalf("expected %q, got %q", want, summary)
	}
}

func TestSummarizeTruncatesPastLimit(t *testing.T) {
	var events []ChangeEvent
	for i := 0; i < 100; i++ {
		events = append(events, ChangeEvent{
			Path: fmt.Sprintf("/src/some-generated-file-%03d.go", i),
			Kind: KindModify,
		})
	}

	limit := 64
	summary := Summarize(events, limit)
	if !strings.HasSuffix(summary, truncationMarker) {
		t.Fatalf("expected truncation marker suffix, got %q", summary)
	}
	// One entry may straddle the cap, plus the marker itself.
	maxLen := limit + len("/src/some-generated-file-000.go") + len(" "+truncationMarker) + 1
	if len(summary) > maxLen {
		t.Fatalf("summary too long: %d > %d", len(summary), maxLen)
	}
}

func TestSummarizeShortBatchNotTruncated(t *testing.T) {
	summary := Summarize([]ChangeEvent{{Path: "/a.go", Kind: KindCreate}}, 64)
	if strings.Contains(summary, truncationMarker) {
		t.Fatalf("unexpected truncation in %q", summary)
	}
}

func TestSummarizeEmptyBatch(t *testing.T) {
	if summary := Summarize(nil, 64); summary != "" {
		t.Fatalf("expected empty summary, got %q", summary)
	}
}
