// Package watcher adapts OS filesystem notifications into the project-relative
// change events the batching pipeline consumes. One ProjectWatcher covers one
// descriptor: the root tree recursively plus any referenced extra files, with
// the descriptor's ignore filters applied before events reach the sink.
package watcher
