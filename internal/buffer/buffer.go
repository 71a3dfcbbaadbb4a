// package buffer provides some audio buffer primitives.
package buffer

import (
	"math"
	"sync/atomic"
)

// Ring keeps the most recent samples written to it. One goroutine may Write
// while others Read; neither side blocks or allocates, and readers may see a
// block that is partway through being written.
type Ring struct {
	buf    []atomic.Uint32
	writep atomic.Uint64
}

// NewRing allocates a new ring buffer holding the given number of samples.
func NewRing(size int) *Ring {
	if size <= 0 {
		panic("buffer: ring size must be positive")
	}
	return &Ring{
		buf: make([]atomic.Uint32, size),
	}
}

// Len is the number of samples the ring holds.
func (r *Ring) Len() int { return len(r.buf) }

// Write appends samples, overwriting the oldest ones. Only one goroutine
// should write.
func (r *Ring) Write(in []float32) {
	w := r.writep.Load()
	n := uint64(len(r.buf))
	if len(in) > len(r.buf) {
		// only the tail would survive anyway.
		skip := len(in) - len(r.buf)
		in = in[skip:]
		w += uint64(skip)
	}
	for i, s := range in {
		r.buf[(w+uint64(i))%n].Store(math.Float32bits(s))
	}
	r.writep.Store(w + uint64(len(in)))
}

// Written is the total number of samples ever written.
func (r *Ring) Written() uint64 { return r.writep.Load() }

// Read fills out with the most recent samples, oldest first. Samples that
// were never written read as zero. If out is longer than the ring, the
// excess at the start is zeroed.
func (r *Ring) Read(out []float32) {
	w := r.writep.Load()
	n := uint64(len(r.buf))
	for i := range out {
		back := uint64(len(out) - i) // how far behind the write head
		if back > w || back > n {
			out[i] = 0
			continue
		}
		out[i] = math.Float32frombits(r.buf[(w-back)%n].Load())
	}
}
