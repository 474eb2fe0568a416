// Package mempool provides memory pooling utilities.
//
// This package is internal and not part of the public API.
//
// The buffer pool provides reusable byte slices for the scratch buffers
// used while encoding keys and values, and for the value blobs handed
// out by the engine. Buffers are bucketed by power-of-four capacity.
package mempool

import "sync"

// Pool manages reusable byte slices of various sizes.
type Pool struct {
	// Size buckets: 256B, 1KB, 4KB, 16KB, 64KB, 256KB, 1MB
	pools [7]sync.Pool
}

// BucketSizes defines the buffer size buckets.
var BucketSizes = [7]int{
	256,         // 256 bytes
	1024,        // 1KB
	4 * 1024,    // 4KB
	16 * 1024,   // 16KB
	64 * 1024,   // 64KB
	256 * 1024,  // 256KB
	1024 * 1024, // 1MB
}

// NewPool creates a new Pool.
func NewPool() *Pool {
	bp := &Pool{}
	for i := range bp.pools {
		size := BucketSizes[i]
		bp.pools[i] = sync.Pool{
			New: func() any {
				buf := make([]byte, 0, size)
				return &buf
			},
		}
	}
	return bp
}

// Get retrieves a byte slice with length 0 and at least the specified capacity.
func (bp *Pool) Get(minSize int) []byte {
	bucket := bp.getBucket(minSize)
	if bucket < 0 {
		// Too large for pool
		return make([]byte, 0, minSize)
	}

	bufPtr, ok := bp.pools[bucket].Get().(*[]byte)
	if !ok || cap(*bufPtr) < minSize {
		return make([]byte, 0, BucketSizes[bucket])
	}
	buf := *bufPtr
	return buf[:0]
}

// Alloc retrieves a byte slice of exactly length n.
func (bp *Pool) Alloc(n int) []byte {
	return bp.Get(n)[:n]
}

// Clone returns a pooled copy of src.
func (bp *Pool) Clone(src []byte) []byte {
	dst := bp.Alloc(len(src))
	copy(dst, src)
	return dst
}

// Put returns a byte slice to the pool.
// The slice lands in the largest bucket its capacity fully covers.
func (bp *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	bucket := bp.putBucket(cap(buf))
	if bucket < 0 || cap(buf) > BucketSizes[len(BucketSizes)-1]*2 {
		// Too small or too large - don't pool
		return
	}

	buf = buf[:0]
	bp.pools[bucket].Put(&buf)
}

func (bp *Pool) getBucket(size int) int {
	for i, bucketSize := range BucketSizes {
		if size <= bucketSize {
			return i
		}
	}
	return -1
}

func (bp *Pool) putBucket(capacity int) int {
	for i := len(BucketSizes) - 1; i >= 0; i-- {
		if capacity >= BucketSizes[i] {
			return i
		}
	}
	return -1
}

// GlobalPool is the default global buffer pool.
var GlobalPool = NewPool()
