package stream

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Buffer is the append-only byte sequence accumulated from a streaming
// download. It only ever grows until the session ends; readers obtained via
// NewReader observe the same underlying data, so a reader positioned at the
// frontier sees later appends instead of EOF. That is what lets playback
// start from a partial download and keep going while the rest arrives.
//
// Read blocks at the frontier until more data is appended, the buffer is
// marked complete (EOF), or the buffer is closed.
type Buffer struct {
	mu       sync.Mutex
	data     []byte
	complete bool
	closed   bool
	frontier chan struct{} // closed and replaced on every append/state change
}

func NewBuffer() *Buffer {
	return &Buffer{frontier: make(chan struct{})}
}

// Append adds bytes to the end of the buffer and wakes blocked readers.
// Appends after Close or Complete are dropped.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.complete {
		return
	}
	b.data = append(b.data, p...)
	b.wake()
}

// Len returns the number of bytes received so far.
func (b *Buffer) Len() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.data))
}

// Complete marks the buffer as fully downloaded. Readers at the frontier
// return io.EOF from then on.
func (b *Buffer) Complete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.complete || b.closed {
		return
	}
	b.complete = true
	b.wake()
}

// Close releases the buffer. Blocked readers are woken and fail with
// io.ErrClosedPipe. Close is idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.data = nil
	b.wake()
	return nil
}

// wake releases all frontier waiters. Caller must hold b.mu.
func (b *Buffer) wake() {
	close(b.frontier)
	b.frontier = make(chan struct{})
}

// NewReader returns an independent read cursor over the live buffer.
func (b *Buffer) NewReader() *BufferReader {
	return &BufferReader{buf: b, done: make(chan struct{})}
}

// BufferReader is a blocking io.ReadSeeker/io.ReaderAt view over a Buffer.
// Multiple readers may exist; each keeps its own position. Close wakes a
// Read parked at the frontier; the reader's lock is never held across the
// wait, so Close and Seek stay responsive while a Read blocks.
type BufferReader struct {
	buf  *Buffer
	done chan struct{} // closed by Close, wakes frontier waits

	mu     sync.Mutex
	pos    int64
	closed bool
}

var _ io.ReadSeekCloser = (*BufferReader)(nil)
var _ io.ReaderAt = (*BufferReader)(nil)

func (r *BufferReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	pos := r.pos
	r.mu.Unlock()

	n, err := r.buf.readAt(p, pos, r.done)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	r.pos = pos + int64(n)
	r.mu.Unlock()
	return n, err
}

func (r *BufferReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	r.mu.Unlock()
	return r.buf.readAt(p, off, nil)
}

// Seek repositions the cursor. SeekEnd is relative to the bytes received so
// far, which equals the final size once the download has completed.
func (r *BufferReader) Seek(offset int64, whence int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, io.ErrClosedPipe
	}
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = r.pos
	case io.SeekEnd:
		base = r.buf.Len()
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	next := base + offset
	if next < 0 {
		return 0, errors.New("negative position")
	}
	r.pos = next
	return next, nil
}

// Close detaches this reader, waking a Read parked at the frontier. The
// underlying buffer is not affected. Idempotent.
func (r *BufferReader) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.done)
	}
	r.mu.Unlock()
	return nil
}

// readAt copies bytes at off. With a non-nil done channel it waits at the
// frontier for more data, aborting when done closes; with nil it returns
// io.EOF short reads immediately.
func (b *Buffer) readAt(p []byte, off int64, done <-chan struct{}) (int, error) {
	for {
		if done != nil {
			select {
			case <-done:
				return 0, io.ErrClosedPipe
			default:
			}
		}
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return 0, io.ErrClosedPipe
		}
		if off < int64(len(b.data)) {
			n := copy(p, b.data[off:])
			b.mu.Unlock()
			return n, nil
		}
		if b.complete {
			b.mu.Unlock()
			return 0, io.EOF
		}
		if done == nil {
			b.mu.Unlock()
			return 0, io.EOF
		}
		wait := b.frontier
		b.mu.Unlock()
		select {
		case <-wait:
		case <-done:
			return 0, io.ErrClosedPipe
		}
	}
}
