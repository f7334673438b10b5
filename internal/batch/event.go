package batch

import (
	"path"
	"time"
)

// Kind is the type of filesystem change carried by a ChangeEvent.
type Kind int

const (
	KindUnknown Kind = iota
	KindCreate
	KindModify
	KindDelete
)

func (kind Kind) String() string {
	switch kind {
	case KindCreate:
		return "create"
	case KindModify:
		return "modify"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

func (kind Kind) marker() byte {
	switch kind {
	case KindCreate:
		return '+'
	case KindModify:
		return '>'
	case KindDelete:
		return '-'
	default:
		return '?'
	}
}

// ChangeEvent is a single filesystem notification. Path is project-relative,
// absolute, forward-slash separated. TimestampMS orders events within a batch
// and makes no wall-clock correctness promise beyond that.
type ChangeEvent struct {
	Path        string
	Kind        Kind
	TimestampMS int64
}

// NewChangeEvent stamps a change with the current wall clock.
func NewChangeEvent(eventPath string, kind Kind) ChangeEvent {
	return ChangeEvent{
		Path:        eventPath,
		Kind:        kind,
		TimestampMS: time.Now().UnixMilli(),
	}
}

func baseName(eventPath string) string {
	if eventPath == "" || eventPath == "/" {
		return "/"
	}
	return path.Base(eventPath)
}
