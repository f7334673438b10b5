// Package batch turns a raw per-file change stream into settled, cleaned
// batches. An Aggregator buffers events for one project and flushes after a
// quiet period with no new ingests; flushing sorts by timestamp, suppresses
// duplicate create/delete noise, and signals the owner that the project has
// changes ready.
package batch
