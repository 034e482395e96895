package embedded

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for queue data structures
const (
	prefixMsg      = "msg/"       // Task payload records
	prefixReady    = "ready/"     // Availability index
	prefixLease    = "lease/"     // Active leases
	prefixLeaseIdx = "lease_idx/" // Lease expiry index
)

// queuePrefix returns the base prefix for a queue.
// Format: wq/{name}/
func queuePrefix(name string) string {
	return fmt.Sprintf("wq/%s/", name)
}

// metaKey returns the metadata key holding the last assigned sequence.
func metaKey(name string) []byte {
	return []byte(queuePrefix(name) + "meta")
}

// msgKey returns the task payload key.
// Format: wq/{name}/msg/{seq}
func msgKey(name string, seq uint64) []byte {
	prefix := queuePrefix(name) + prefixMsg
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], seq)
	return key
}

// readyKey returns the availability index key.
// Format: wq/{name}/ready/{seq}
// Lower sequences sort first, giving FIFO delivery.
func readyKey(name string, seq uint64) []byte {
	prefix := queuePrefix(name) + prefixReady
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], seq)
	return key
}

// leaseKey returns the lease key.
// Format: wq/{name}/lease/{seq}
func leaseKey(name string, seq uint64) []byte {
	prefix := queuePrefix(name) + prefixLease
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], seq)
	return key
}

// leaseIdxKey returns the lease expiry index key.
// Format: wq/{name}/lease_idx/{expires_ms}/{seq}
func leaseIdxKey(name string, expiresMs uint64, seq uint64) []byte {
	prefix := queuePrefix(name) + prefixLeaseIdx
	key := make([]byte, len(prefix)+8+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], expiresMs)
	binary.BigEndian.PutUint64(key[len(prefix)+8:], seq)
	return key
}

// readyPrefix returns the prefix for availability scanning.
func readyPrefix(name string) []byte {
	return []byte(queuePrefix(name) + prefixReady)
}

// leaseIdxPrefix returns the prefix for lease expiry scanning.
func leaseIdxPrefix(name string) []byte {
	return []byte(queuePrefix(name) + prefixLeaseIdx)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix)+1)
	copy(end, prefix)
	end[len(prefix)] = 0xFF
	return end
}
