// Package util contains internal helpers shared by the Fair Group and Fair
// Queue: cache-line padding for atomics that many shards hammer
// concurrently.
package util

import (
	"sync/atomic"
	"unsafe"
)

// CacheLineSize is a reasonable default for most modern CPUs. The runtime's
// internal cache-line constant is unexported; 64 works well in practice.
const CacheLineSize = 64

// CacheLinePad separates hot fields into distinct cache lines to reduce
// false sharing. Place between groups of hot fields.
type CacheLinePad struct{ _ [CacheLineSize]byte }

// PaddedAtomicUint64 is an atomic uint64 padded to exactly one cache line.
// The Fair Group's three rovers (capacityTail, capacityHead, capacityCeil)
// are each written by whichever shard currently owns a dispatch; padding
// keeps one shard's grab from invalidating another shard's replenish read.
type PaddedAtomicUint64 struct {
	atomic.Uint64
	_ [CacheLineSize - 8]byte // 8 = size of uint64; pad to 64 bytes
}

// ---- Compile-time size check (fails to compile if larger than one cache line) ----

var _ [CacheLineSize - int(unsafe.Sizeof(PaddedAtomicUint64{}))]byte
