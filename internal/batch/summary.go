package batch

import "strings"

// DefaultSummaryLimit caps the diagnostic batch summary length.
const DefaultSummaryLimit = 256

const truncationMarker = "..."

// Summarize renders a bounded human-readable view of a cleaned batch: one
// marker character per event (+ create, > modify, - delete, ? unknown)
// followed by the base filename, the project root rendered as "/". Once the
// text exceeds the limit it is cut off with a truncation marker.
func Summarize(events []ChangeEvent, limit int) string {
	if limit <= 0 {
		limit = DefaultSummaryLimit
	}

	builder := strings.Builder{}
	for _, event := range events {
		if builder.Len() > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteByte(event.Kind.marker())
		builder.WriteString(baseName(event.Path))
		if builder.Len() > limit {
			builder.WriteByte(' ')
			builder.WriteString(truncationMarker)
			break
		}
	}
	return builder.String()
}
