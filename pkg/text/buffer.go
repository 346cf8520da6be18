package text

// RewriteBuffer is a growable output byte sequence.
//
// Capacity at least doubles whenever a write would not fit, so extending the
// buffer costs amortized O(1) per byte and needs O(log n) reallocations.
type RewriteBuffer struct {
	buf   []byte
	grows int
}

// NewRewriteBuffer allocates a buffer with the given initial capacity. Zero is allowed.
func NewRewriteBuffer(capacity int) *RewriteBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &RewriteBuffer{buf: make([]byte, 0, capacity)}
}

// Len returns the number of bytes written so far
func (b *RewriteBuffer) Len() int {
	return len(b.buf)
}

// Cap returns the number of bytes allocated
func (b *RewriteBuffer) Cap() int {
	return cap(b.buf)
}

// Grows returns how many reallocations the buffer has performed
func (b *RewriteBuffer) Grows() int {
	return b.grows
}

// EnsureCapacity grows the buffer until it can hold required bytes.
// Written bytes keep their offsets.
func (b *RewriteBuffer) EnsureCapacity(required int) {
	if required <= cap(b.buf) {
		return
	}
	next := cap(b.buf)
	for next < required {
		next = max(1, next*2)
	}
	grown := make([]byte, len(b.buf), next)
	copy(grown, b.buf)
	b.buf = grown
	b.grows++
}

// Append copies p to the end of the buffer
func (b *RewriteBuffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.EnsureCapacity(len(b.buf) + len(p))
	b.buf = append(b.buf, p...)
}

// AppendString copies the UTF-8 bytes of s to the end of the buffer
func (b *RewriteBuffer) AppendString(s string) {
	if len(s) == 0 {
		return
	}
	b.EnsureCapacity(len(b.buf) + len(s))
	b.buf = append(b.buf, s...)
}

// Final hands off the written prefix. The buffer must not be used afterwards.
func (b *RewriteBuffer) Final() []byte {
	out := b.buf[:len(b.buf):len(b.buf)]
	b.buf = nil
	return out
}
