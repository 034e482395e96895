// Package pebblestore wraps a Pebble database with a durability policy and
// small helpers used by the embedded work queue.
//
// The wrapper centralizes the fsync decision: FsyncModeAlways syncs the WAL
// on every committed batch, FsyncModeInterval allows Pebble to group-commit
// within a window, and FsyncModeNever leaves syncing to Pebble's own
// policies.
package pebblestore
