package grib1

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	sigGRIB    = []byte("GRIB")
	terminator = []byte("7777")
)

const (
	// minMessageLen: 8-byte indicator + 28-byte PDS + 4-byte terminator.
	minMessageLen = 8 + pdsMinLen + 4

	// maxEdition2Skip caps how much of a foreign edition-2 message we are
	// willing to buffer just to hop over it.
	maxEdition2Skip = 64 << 20 // 64 MB
)

// Stats counts what the scanner saw while walking a stream.
type Stats struct {
	Messages int // valid edition-1 messages returned
	Skipped  int // messages skipped for a non-1 edition byte
	Resyncs  int // framing failures recovered by resuming one byte forward
}

// scanner locates GRIB1 messages in the cursor's stream. It tolerates
// arbitrary garbage between messages but is strict about everything between
// a signature and its declared terminator.
type scanner struct {
	cur   *byteCursor
	stats Stats
}

// next returns the next valid edition-1 message as a view into the cursor's
// buffer, plus the absolute offset of its "GRIB" signature. The view stays
// valid until the cursor advances. A (nil, 0, nil) return means the stream
// ended cleanly with no further signature. The cursor is left positioned at
// the start of the returned message; the caller advances past it.
func (s *scanner) next() ([]byte, int64, error) {
	for {
		found, err := s.seekSignature()
		if err != nil {
			return nil, 0, err
		}
		if !found {
			return nil, 0, nil
		}
		start := s.cur.offset()

		if err := s.cur.ensure(8); err != nil {
			return nil, 0, eofErr(err, "indicator section at offset %d", start)
		}
		hdr := s.cur.peek(8)
		total, err := checkIndicator(hdr)
		if errors.Is(err, ErrUnsupportedEdition) {
			// Skip the foreign message wholesale when we can; otherwise fall
			// back to resuming the signature search just past "GRIB".
			s.stats.Skipped++
			if hdr[7] == 2 && s.skipEdition2() {
				continue
			}
			s.cur.advance(len(sigGRIB))
			continue
		}
		if err != nil {
			s.stats.Resyncs++
			s.cur.advance(1)
			continue
		}

		if err := s.cur.ensure(total); err != nil {
			return nil, 0, eofErr(err, "message at offset %d declares %d bytes", start, total)
		}
		msg := s.cur.peek(total)
		if checkTerminator(msg) != nil {
			// Terminator not found exactly at start+total: the length field
			// is not trustworthy, so resume the search one byte forward.
			s.stats.Resyncs++
			s.cur.advance(1)
			continue
		}
		s.stats.Messages++
		return msg, start, nil
	}
}

// seekSignature advances the cursor to the next "GRIB" signature, skipping
// any leading garbage. Returns false on clean end of stream. The offset
// strictly increases every iteration, so the loop terminates on any input.
func (s *scanner) seekSignature() (bool, error) {
	for {
		if err := s.cur.ensure(len(sigGRIB)); err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, err
		}
		w := s.cur.window()
		if i := bytes.Index(w, sigGRIB); i >= 0 {
			s.cur.advance(i)
			return true, nil
		}
		// Keep the last 3 bytes in case a signature straddles the boundary.
		s.cur.advance(len(w) - (len(sigGRIB) - 1))
	}
}

// skipEdition2 hops over a GRIB edition-2 message using its 8-byte total
// length (bytes 8–15 of the indicator). Reports whether the skip succeeded;
// on failure the cursor is untouched and the caller resynchronizes instead.
func (s *scanner) skipEdition2() bool {
	if s.cur.ensure(16) != nil {
		return false
	}
	total := binary.BigEndian.Uint64(s.cur.peek(16)[8:16])
	if total < 16 || total > maxEdition2Skip {
		return false
	}
	if s.cur.ensure(int(total)) != nil {
		return false
	}
	s.cur.advance(int(total))
	return true
}

// eofErr maps the cursor's io.EOF into ErrUnexpectedEOF with context; other
// source errors pass through unchanged.
func eofErr(err error, format string, args ...any) error {
	if err == io.EOF {
		return fmt.Errorf("%w: %s", ErrUnexpectedEOF, fmt.Sprintf(format, args...))
	}
	return err
}

// checkIndicator validates an 8-byte indicator section and returns the
// declared total message length (3-byte big-endian, octets 5–7).
func checkIndicator(hdr []byte) (int, error) {
	if len(hdr) < 8 {
		return 0, fmt.Errorf("%w: indicator needs 8 bytes, have %d", ErrMalformedMessage, len(hdr))
	}
	if !bytes.Equal(hdr[:4], sigGRIB) {
		return 0, fmt.Errorf("%w: missing GRIB signature: %q", ErrMalformedMessage, hdr[:4])
	}
	total := int(hdr[4])<<16 | int(hdr[5])<<8 | int(hdr[6])
	if hdr[7] != 1 {
		return total, fmt.Errorf("%w: edition %d", ErrUnsupportedEdition, hdr[7])
	}
	if total < minMessageLen {
		return total, fmt.Errorf("%w: declared length %d below minimum %d", ErrMalformedMessage, total, minMessageLen)
	}
	return total, nil
}

// checkTerminator verifies the final 4 bytes of a message equal "7777".
func checkTerminator(msg []byte) error {
	if len(msg) < 4 || !bytes.Equal(msg[len(msg)-4:], terminator) {
		return fmt.Errorf("%w: want %q at end of %d-byte message", ErrInvalidTerminator, terminator, len(msg))
	}
	return nil
}
