// Package embedded implements a durable, Pebble-backed work queue with
// lease-based delivery, satisfying the queue.Client contract for
// single-binary deployments and pipeline tests.
//
// Each task is delivered to at most one holder at a time: a reservation
// writes a lease with an expiry, and only Ack removes the task for good.
// A task whose lease expires without an Ack is reclaimed and becomes
// reservable again, which is what makes worker crashes safe.
//
// # Keyspace
//
// All keys are prefixed with wq/{name}/:
//
//	meta                          - last assigned sequence
//	msg/{seq}                     - CRC-framed task payload
//	ready/{seq}                   - availability index (FIFO by seq)
//	lease/{seq}                   - active lease (expires_ms)
//	lease_idx/{expires_ms}/{seq}  - lease expiry index for reclaim scans
//
// # Lifecycle
//
//  1. Enqueue: msg written, ready index entry added
//  2. Reserve: ready entry removed, lease + expiry index written
//  3. Ack: lease, expiry index and msg deleted
//  4. Release: lease removed, task returned to ready immediately
//  5. Expiry: reclaim moves the task back to ready (inline on Reserve,
//     or via the optional background sweeper)
//
// Delivery is at-least-once; consumers must be idempotent.
package embedded
