package watcher

import (
	"errors"
	"time"

	"vigil/internal/batch"
	"vigil/internal/logging"
	"vigil/internal/metrics"
)

const defaultMaxWatches = 4096

var ErrMaxWatchesExceeded = errors.New("max watches exceeded")

// Sink receives filtered, project-relative change events.
type Sink func(events ...batch.ChangeEvent)

// Options controls project watcher behavior.
type Options struct {
	Logger     *logging.Logger
	Registry   *metrics.Registry
	MaxWatches int
}

// Clock returns epoch milliseconds; overridable in tests.
type Clock func() int64

func wallClock() int64 {
	return time.Now().UnixMilli()
}
