package mempool

// pool_test.go tests the buffer pool implementation.

import "testing"

func TestPoolBasic(t *testing.T) {
	pool := NewPool()

	// Get various sizes
	sizes := []int{100, 500, 2000, 10000, 50000}
	for _, size := range sizes {
		buf := pool.Get(size)
		if cap(buf) < size {
			t.Errorf("expected cap >= %d, got %d", size, cap(buf))
		}
		if len(buf) != 0 {
			t.Errorf("expected len 0, got %d", len(buf))
		}
		pool.Put(buf)
	}
}

func TestPoolBuckets(t *testing.T) {
	pool := NewPool()

	// Get a 1KB buffer
	buf1 := pool.Get(1000)
	if cap(buf1) < 1000 {
		t.Errorf("expected cap >= 1000, got %d", cap(buf1))
	}

	// Use and return it
	buf1 = append(buf1, make([]byte, 500)...)
	pool.Put(buf1)

	// Get another - should be from pool (capacity >= requested)
	buf2 := pool.Get(800)
	if cap(buf2) < 800 {
		t.Errorf("expected cap >= 800, got %d", cap(buf2))
	}
	pool.Put(buf2)
}

func TestPoolOversized(t *testing.T) {
	pool := NewPool()

	// Request very large buffer (larger than any bucket)
	buf := pool.Get(4 * 1024 * 1024) // 4MB
	if cap(buf) < 4*1024*1024 {
		t.Errorf("expected cap >= 4MB, got %d", cap(buf))
	}

	// Should not panic on put
	pool.Put(buf)
}

func TestPoolUndersizedPutNotReused(t *testing.T) {
	pool := NewPool()

	// A 300-byte buffer must never satisfy a later 1000-byte request.
	pool.Put(make([]byte, 0, 300))
	for range 8 {
		buf := pool.Get(1000)
		if cap(buf) < 1000 {
			t.Fatalf("expected cap >= 1000, got %d", cap(buf))
		}
	}

	// Too small for any bucket; should not panic.
	pool.Put(make([]byte, 0, 10))
}

func TestPoolAllocAndClone(t *testing.T) {
	pool := NewPool()

	buf := pool.Alloc(4096)
	if len(buf) != 4096 {
		t.Errorf("expected len 4096, got %d", len(buf))
	}
	pool.Put(buf)

	src := []byte("val0000000001")
	dst := pool.Clone(src)
	if string(dst) != string(src) {
		t.Errorf("Clone = %q, want %q", dst, src)
	}
	src[0] = 'X'
	if dst[0] != 'v' {
		t.Error("Clone should not alias its source")
	}
	pool.Put(dst)
}

func TestPoolNilPut(t *testing.T) {
	pool := NewPool()

	// Should not panic
	pool.Put(nil)
}

func BenchmarkPoolGet(b *testing.B) {
	pool := NewPool()

	for b.Loop() {
		buf := pool.Get(1024)
		pool.Put(buf)
	}
}

func BenchmarkPoolGetParallel(b *testing.B) {
	pool := NewPool()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := pool.Get(1024)
			pool.Put(buf)
		}
	})
}

func BenchmarkMakeSlice(b *testing.B) {
	for b.Loop() {
		buf := make([]byte, 0, 1024)
		_ = buf
	}
}
