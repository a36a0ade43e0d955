package grib1

import (
	"fmt"
	"io"
)

// Mode selects what Search produces for each matching message.
type Mode int

const (
	// Decode parses all sections and unpacks the grid values.
	Decode Mode = iota
	// ExtractRaw captures the original byte span unmodified.
	ExtractRaw
)

// Criterion is one (parameter, level) pair to search for. A message matches
// when its PDS parameter and primary level value both equal the criterion's.
type Criterion struct {
	Parameter uint8
	Level     uint16
}

// Result is one match. Exactly one of Field or Raw is populated depending on
// the search mode, unless Err records why this particular message could not
// be decoded — a per-message failure never aborts the search.
type Result struct {
	Offset    int64 // absolute offset of the message's "GRIB" signature
	Criterion Criterion
	PDS       PDS
	GDS       *GDS   // Decode mode, when the message carries one
	Field     *Field // Decode mode
	Raw       []byte // ExtractRaw mode: byte-identical copy of the message
	Err       error
}

// Reader searches a GRIB1 byte stream. It reads the source strictly
// forward; one Reader serves one search at a time.
type Reader struct {
	cur *byteCursor
	scn scanner
}

// NewReader returns a Reader consuming src sequentially.
func NewReader(src io.Reader) *Reader {
	cur := newByteCursor(src)
	return &Reader{cur: cur, scn: scanner{cur: cur}}
}

// Stats reports scan counters accumulated so far.
func (r *Reader) Stats() Stats { return r.scn.stats }

// Search scans the stream to completion and returns every match in stream
// order. Each criterion is evaluated independently, so duplicate criteria
// yield duplicate results. Framing failures are recovered by the scanner and
// never surface here; a mid-message end of stream or a source read error
// terminates the search, returning the results collected up to that point
// alongside the error.
func (r *Reader) Search(criteria []Criterion, mode Mode) ([]Result, error) {
	var results []Result
	for {
		msg, off, err := r.scn.next()
		if err != nil {
			return results, err
		}
		if msg == nil {
			return results, nil
		}

		// Cheap path: only the PDS is needed to test the criteria.
		pds, pdsLen, err := parsePDS(msg[8 : len(msg)-4])
		if err != nil {
			r.cur.advance(len(msg))
			continue
		}
		for _, c := range criteria {
			if pds.Parameter != c.Parameter || pds.Level != c.Level {
				continue
			}
			res := Result{Offset: off, Criterion: c, PDS: pds}
			switch mode {
			case ExtractRaw:
				res.Raw = append([]byte(nil), msg...)
			case Decode:
				res.GDS, res.Field, res.Err = decodeSections(msg, &pds, pdsLen)
			}
			results = append(results, res)
		}
		r.cur.advance(len(msg))
	}
}

// Extract returns the raw bytes of every matching message concatenated in
// stream order — itself a valid GRIB1 stream holding only the matches. A
// message matching several criteria is included once.
func (r *Reader) Extract(criteria []Criterion) ([]byte, error) {
	results, err := r.Search(criteria, ExtractRaw)
	var out []byte
	last := int64(-1)
	for _, res := range results {
		if res.Offset == last {
			continue
		}
		out = append(out, res.Raw...)
		last = res.Offset
	}
	return out, err
}

// decodeSections parses the optional GDS and BMS and unpacks the BDS of one
// matched message. msg is the whole message including indicator and
// terminator; pdsLen is the PDS length already parsed.
func decodeSections(msg []byte, pds *PDS, pdsLen int) (*GDS, *Field, error) {
	body := msg[:len(msg)-4] // sections end where the terminator starts
	off := 8 + pdsLen

	var gds *GDS
	if pds.HasGDS() {
		g, n, err := parseGDS(body[off:])
		if err != nil {
			return nil, nil, fmt.Errorf("GDS: %w", err)
		}
		gds = &g
		off += n
	}
	if gds == nil {
		// The grid is implied by the catalog id; nothing here can realize it.
		return nil, nil, fmt.Errorf("%w: grid %d implied by catalog id, no GDS present", ErrUnsupportedGridType, pds.GridID)
	}
	if gds.Grid == nil {
		return gds, nil, fmt.Errorf("%w: code %d", ErrUnsupportedGridType, gds.Type)
	}
	points := gds.Grid.Points()

	var bms *BMS
	if pds.HasBMS() {
		m, n, err := parseBMS(body[off:])
		if err != nil {
			return gds, nil, fmt.Errorf("BMS: %w", err)
		}
		if got := m.BitCount(); got != points {
			return gds, nil, fmt.Errorf("%w: bitmap covers %d points, grid has %d", ErrBitmapLengthMismatch, got, points)
		}
		bms = &m
		off += n
	}

	bds, err := parseBDS(body[off:])
	if err != nil {
		return gds, nil, fmt.Errorf("BDS: %w", err)
	}
	vals, err := bds.unpack(points, bms, pds.DecimalScale)
	if err != nil {
		return gds, nil, err
	}
	return gds, &Field{Grid: *gds.Grid, Vals: vals}, nil
}
