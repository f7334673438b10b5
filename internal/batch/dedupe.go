package batch

import (
	"sort"

	"vigil/internal/logging"
)

// CleanBatch orders a taken buffer by timestamp ascending (stable on ties,
// so later per-path cleanup can rely on the most recent entry being last) and
// suppresses duplicate create and delete runs. The input is not modified.
func CleanBatch(events []ChangeEvent, logger *logging.Logger) []ChangeEvent {
	sorted := make([]ChangeEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimestampMS < sorted[j].TimestampMS
	})

	cleaned := SuppressDuplicates(sorted, KindCreate, logger)
	return SuppressDuplicates(cleaned, KindDelete, logger)
}

// SuppressDuplicates removes repeated events of one kind per path from a
// timestamp-sorted sequence. Only the first of a run survives; an event of a
// differing kind on the same path resets that path's run. Modify events are
// never deduplicated: asking for it is logged and the input returned as-is.
func SuppressDuplicates(events []ChangeEvent, kind Kind, logger *logging.Logger) []ChangeEvent {
	if kind == KindModify {
		logger.Warn("modify events are never deduplicated", map[string]string{
			"requested_kind": kind.String(),
		})
		return events
	}

	active := make(map[string]struct{})
	cleaned := make([]ChangeEvent, 0, len(events))
	for _, event := range events {
		if event.Kind == kind {
			if _, seen := active[event.Path]; seen {
				continue
			}
			active[event.Path] = struct{}{}
		} else {
			delete(active, event.Path)
		}
		cleaned = append(cleaned, event)
	}
	return cleaned
}
