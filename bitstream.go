package grib1

import "fmt"

// bitReader reads unsigned integers of arbitrary bit width from a byte
// slice. Bits are consumed MSB-first within each byte (big-endian bit
// order). limit bounds the readable bits so that pad bits declared unused by
// the BDS header can never be consumed as data.
type bitReader struct {
	buf   []byte
	pos   int // current bit position
	limit int // total readable bits
}

func newBitReader(b []byte, limit int) *bitReader {
	if max := len(b) * 8; limit < 0 || limit > max {
		limit = max
	}
	return &bitReader{buf: b, limit: limit}
}

// read reads n bits (0 ≤ n ≤ 32) and returns them as a uint32. Reading past
// the limit returns an error; library code never panics on untrusted input.
func (r *bitReader) read(n int) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	end := r.pos + n
	if end > r.limit {
		return 0, fmt.Errorf("read of %d bits at bit %d exceeds %d available", n, r.pos, r.limit)
	}
	// Fast path: byte-aligned whole bytes.
	if r.pos%8 == 0 && n%8 == 0 {
		var v uint32
		for off := r.pos / 8; off < end/8; off++ {
			v = v<<8 | uint32(r.buf[off])
		}
		r.pos = end
		return v, nil
	}
	var v uint32
	for i := r.pos; i < end; i++ {
		bit := (r.buf[i/8] >> (7 - i%8)) & 1
		v = v<<1 | uint32(bit)
	}
	r.pos = end
	return v, nil
}
