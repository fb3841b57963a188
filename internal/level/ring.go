package level

import "sync"

// Ring buffers decoded PCM16 audio as bias-128 unsigned bytes and serves
// fixed-size analysis windows. Writers and the analysis tick run on
// different goroutines.
type Ring struct {
	mu     sync.Mutex
	buf    []byte
	w      int
	filled int
}

// NewRing creates a ring holding windowSize samples
func NewRing(windowSize int) *Ring {
	return &Ring{buf: make([]byte, windowSize)}
}

// WriteInt16 folds signed 16-bit samples into the ring, keeping only the
// most significant byte of each sample rebased around 128.
func (r *Ring) WriteInt16(samples []int16) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range samples {
		r.buf[r.w] = byte(int(s>>8) + 128)
		r.w = (r.w + 1) % len(r.buf)
	}
	r.filled += len(samples)
	if r.filled > len(r.buf) {
		r.filled = len(r.buf)
	}
}

// Window copies the newest full window into dst and reports whether the
// ring has seen enough samples to fill one. dst must be the ring's size.
func (r *Ring) Window(dst []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.filled < len(r.buf) || len(dst) != len(r.buf) {
		return false
	}
	// oldest sample sits at the write cursor
	n := copy(dst, r.buf[r.w:])
	copy(dst[n:], r.buf[:r.w])
	return true
}

// Size returns the window size in samples
func (r *Ring) Size() int {
	return len(r.buf)
}
