// Package segbuf implements a segment-linked byte queue.
//
// A Buffer is a FIFO queue of byte slices ("segments"). Write copies the
// caller's data into a new owned segment and appends it to the queue;
// Read drains bytes starting at the head segment, advancing or dropping
// segments as they're exhausted. Segments are never split or shifted
// across each other, only trimmed from the front as they're read, which
// is what lets the pipe hold its lock across a Write/Read call without
// turning it into a per-byte critical section.
package segbuf

// element is a single link in the segment queue.
type element struct {
	buf  []byte
	next *element
}

// Buffer is an unbounded FIFO queue of byte segments. The zero value is an
// empty, ready-to-use Buffer. A Buffer is not safe for concurrent use; the
// caller (flowpipe's pipeState) supplies its own synchronization.
type Buffer struct {
	head *element // next bytes to be read
	tail *element // last segment appended
	size int
}

// Len reports the total number of buffered bytes across all segments.
func (b *Buffer) Len() int {
	return b.size
}

// Write copies p into a new owned segment and appends it, returning
// len(p). The caller's slice is never retained, so it's safe to reuse or
// mutate p immediately after Write returns.
func (b *Buffer) Write(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	e := &element{buf: append([]byte(nil), p...)}
	if b.tail == nil {
		b.head, b.tail = e, e
	} else {
		b.tail.next = e
		b.tail = e
	}
	b.size += len(p)
	return len(p)
}

// Read copies up to len(p) buffered bytes into p, draining and freeing
// segments as they're exhausted, and returns the number of bytes copied.
// It never reads more than Len() bytes and never blocks.
func (b *Buffer) Read(p []byte) int {
	n := 0
	for n < len(p) && b.head != nil {
		copied := copy(p[n:], b.head.buf)
		n += copied
		b.size -= copied

		if copied == len(b.head.buf) {
			b.head = b.head.next
			if b.head == nil {
				b.tail = nil
			}
		} else {
			b.head.buf = b.head.buf[copied:]
		}
	}
	return n
}

// Clear discards all buffered segments.
func (b *Buffer) Clear() {
	b.head = nil
	b.tail = nil
	b.size = 0
}
