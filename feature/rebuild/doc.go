// Package rebuild exposes collection rebuilds as a long-running service.
//
// The Service allows one run at a time ("already in progress" otherwise),
// tracks progress as a Snapshot fed by driver events and can stop a run
// between tokens. Around it:
//
//   - Handler: HTTP routes under /rebuild (start, stop, status, resolve,
//     layers, runs)
//   - History: finished runs and token outcomes persisted with GORM
//   - BucketPublisher: uploads images and summaries to S3/MinIO
//   - Watcher/Follow: re-render a token when its metadata file changes
package rebuild
