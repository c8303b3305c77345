// Package rebuild drives a collection rebuild: every metadata record is
// parsed, its traits are resolved against the layer index and the layers are
// composited into "<output>/<token id>.<ext>".
//
// # Runs
//
// Driver.Run validates the environment first (Preflight). Missing inputs, an
// unwritable output directory or a manifest category without a directory
// fail the run before any token is touched. After that, failures are per
// token and recorded in the Summary:
//
//   - success: every trait resolved, image written
//   - partial: some traits unresolved, image written from the rest
//   - failed:  nothing written (parse, no traits, nothing resolved, decode or write error)
//   - skipped: output exists and SkipExisting is set
//
// # Concurrency
//
// Tokens are rendered by a bounded pool of workers. A single collector
// goroutine owns the Summary and notifies observers synchronously, then
// frees the worker slot. Cancellation is checked before each token is
// dispatched, so with one worker a Cancel from an observer stops the run at
// the next token boundary.
//
// # Observers
//
// Progress is reported as RunStarted, TokenDone and RunFinished events.
// LogObserver logs them through zap; Async decouples slow consumers.
package rebuild
