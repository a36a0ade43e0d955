package grib1

import (
	"fmt"
	"io"
)

const readChunk = 64 * 1024

// byteCursor is a forward-only view over an io.Reader. It buffers on demand,
// tracks the absolute offset of the current position, and never seeks
// backward. A cursor is owned by exactly one in-flight search.
type byteCursor struct {
	src io.Reader
	buf []byte
	r   int   // index of the current position within buf
	off int64 // absolute offset of buf[r]
	eof bool
}

func newByteCursor(src io.Reader) *byteCursor {
	return &byteCursor{src: src}
}

// offset returns the absolute stream offset of the current position.
func (c *byteCursor) offset() int64 { return c.off }

// buffered returns the number of bytes available without touching the source.
func (c *byteCursor) buffered() int { return len(c.buf) - c.r }

// ensure guarantees at least n bytes are buffered at the current position,
// pulling from the source as needed. Returns io.EOF if the source is
// exhausted first; other source errors pass through unchanged.
func (c *byteCursor) ensure(n int) error {
	for c.buffered() < n {
		if c.eof {
			return io.EOF
		}
		if err := c.fill(); err != nil {
			return err
		}
	}
	return nil
}

// fill reads one chunk from the source into the buffer, compacting consumed
// bytes first so the buffer does not grow without bound across messages.
func (c *byteCursor) fill() error {
	if c.r > 0 && c.r == len(c.buf) {
		c.buf = c.buf[:0]
		c.r = 0
	} else if c.r >= readChunk {
		n := copy(c.buf, c.buf[c.r:])
		c.buf = c.buf[:n]
		c.r = 0
	}
	start := len(c.buf)
	c.buf = append(c.buf, make([]byte, readChunk)...)
	n, err := c.src.Read(c.buf[start:])
	c.buf = c.buf[:start+n]
	if err == io.EOF {
		c.eof = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("grib1: reading source at offset %d: %w", c.off+int64(c.buffered()), err)
	}
	if n == 0 {
		// Read returned (0, nil); try again on the next ensure iteration.
		return nil
	}
	return nil
}

// peek returns a view of the next n bytes without advancing. The view is
// valid only until the next advance or ensure. Callers must ensure(n) first.
func (c *byteCursor) peek(n int) []byte {
	return c.buf[c.r : c.r+n]
}

// window returns a view of everything currently buffered at the position.
func (c *byteCursor) window() []byte {
	return c.buf[c.r:]
}

// advance moves the position n bytes forward within the buffered region.
func (c *byteCursor) advance(n int) {
	if n > c.buffered() {
		panic(fmt.Sprintf("grib1: advance(%d) beyond buffered %d", n, c.buffered()))
	}
	c.r += n
	c.off += int64(n)
}
