package grib1

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Input sanity limits — all well above any real GRIB1 field.
const (
	// pdsMinLen is the mandatory PDS prefix; real sections may be longer
	// (center-specific extensions) and the extra octets are ignored.
	pdsMinLen = 28

	// gdsRotLLLen covers octets 1–42 of a rotated lat-lon GDS, through the
	// rotation angle.
	gdsRotLLLen = 42

	// bmsMinLen: 3-byte length + unused-bit count + 2-byte table reference.
	bmsMinLen = 6

	// maxGridDim caps Ni/Nj. Operational rotated lat-lon domains are a few
	// thousand points per axis at most.
	maxGridDim = 10000
)

// GridTypeRotatedLatLon is the only grid representation type this library
// can decode (GRIB1 code table 6).
const GridTypeRotatedLatLon = 10

// PDS is the Product Definition Section: what the field is, at which level,
// and for which reference time.
type PDS struct {
	TableVersion uint8
	Center       uint8
	Process      uint8
	GridID       uint8 // grid catalog id; the grid definition when no GDS is present
	Flags        uint8 // bit 0x80: GDS present, bit 0x40: BMS present
	Parameter    uint8
	LevelType    uint8
	Level        uint16 // single-level value, or top-of-layer bound for layer types
	LevelBottom  uint16 // bottom-of-layer bound; 0 for single-level types
	Layer        bool

	Century uint8
	Year    uint8 // of century, 1–100
	Month   uint8
	Day     uint8
	Hour    uint8
	Minute  uint8

	TimeUnit    uint8
	P1          uint8
	P2          uint8
	TimeRange   uint8
	AvgIncluded uint16
	AvgMissing  uint8
	SubCenter   uint8

	// DecimalScale is the sign-magnitude decoded factor D; decoded values
	// are divided by 10^D.
	DecimalScale int
}

// HasGDS reports whether a Grid Definition Section follows the PDS.
func (p *PDS) HasGDS() bool { return p.Flags&0x80 != 0 }

// HasBMS reports whether a Bitmap Section is present.
func (p *PDS) HasBMS() bool { return p.Flags&0x40 != 0 }

// RefTime returns the reference (analysis) time in UTC. GRIB1 encodes the
// year as 1–100 within a century, so 2001 is century 21, year 1.
func (p *PDS) RefTime() time.Time {
	year := (int(p.Century)-1)*100 + int(p.Year)
	return time.Date(year, time.Month(p.Month), int(p.Day),
		int(p.Hour), int(p.Minute), 0, 0, time.UTC)
}

// layerLevelTypes lists the GRIB1 level types (code table 3) whose octets
// 11–12 hold two 8-bit layer bounds instead of one 16-bit value. This is a
// fixed property of the level type, never inferred from section length.
var layerLevelTypes = map[uint8]bool{
	101: true, 104: true, 106: true, 108: true, 110: true, 112: true,
	114: true, 116: true, 120: true, 121: true, 128: true, 141: true,
}

// parsePDS decodes the Product Definition Section at the start of b and
// returns it with the number of bytes the section occupies.
func parsePDS(b []byte) (PDS, int, error) {
	if len(b) < pdsMinLen {
		return PDS{}, 0, fmt.Errorf("%w: PDS needs %d bytes, have %d", ErrMalformedMessage, pdsMinLen, len(b))
	}
	secLen := u24(b)
	if secLen < pdsMinLen || secLen > len(b) {
		return PDS{}, 0, fmt.Errorf("%w: PDS length %d outside [%d, %d]", ErrMalformedMessage, secLen, pdsMinLen, len(b))
	}

	p := PDS{
		TableVersion: b[3],
		Center:       b[4],
		Process:      b[5],
		GridID:       b[6],
		Flags:        b[7],
		Parameter:    b[8],
		LevelType:    b[9],
		Year:         b[12],
		Month:        b[13],
		Day:          b[14],
		Hour:         b[15],
		Minute:       b[16],
		TimeUnit:     b[17],
		P1:           b[18],
		P2:           b[19],
		TimeRange:    b[20],
		AvgIncluded:  binary.BigEndian.Uint16(b[21:23]),
		AvgMissing:   b[23],
		Century:      b[24],
		SubCenter:    b[25],
		DecimalScale: decodeScaleFactor(binary.BigEndian.Uint16(b[26:28])),
	}
	if layerLevelTypes[p.LevelType] {
		p.Layer = true
		p.Level = uint16(b[10])
		p.LevelBottom = uint16(b[11])
	} else {
		p.Level = binary.BigEndian.Uint16(b[10:12])
	}
	return p, secLen, nil
}

// GDS is the Grid Definition Section. Type carries the raw representation
// code; Grid is non-nil only for rotated latitude-longitude (type 10) —
// any other code is kept as-is and rejected only when decoding is requested.
type GDS struct {
	VerticalCoords uint8
	PVLocation     uint8
	Type           uint8
	Grid           *RotatedGrid
}

// parseGDS decodes the Grid Definition Section at the start of b and
// returns it with the number of bytes the section occupies.
func parseGDS(b []byte) (GDS, int, error) {
	if len(b) < 6 {
		return GDS{}, 0, fmt.Errorf("%w: GDS needs 6 bytes, have %d", ErrMalformedMessage, len(b))
	}
	secLen := u24(b)
	if secLen < 6 || secLen > len(b) {
		return GDS{}, 0, fmt.Errorf("%w: GDS length %d outside [6, %d]", ErrMalformedMessage, secLen, len(b))
	}
	g := GDS{
		VerticalCoords: b[3],
		PVLocation:     b[4],
		Type:           b[5],
	}
	if g.Type != GridTypeRotatedLatLon {
		return g, secLen, nil
	}
	if secLen < gdsRotLLLen {
		return GDS{}, 0, fmt.Errorf("%w: rotated lat-lon GDS needs %d bytes, have %d", ErrMalformedMessage, gdsRotLLLen, secLen)
	}

	ni := int(binary.BigEndian.Uint16(b[6:8]))
	nj := int(binary.BigEndian.Uint16(b[8:10]))
	if ni == 0xFFFF || nj == 0xFFFF {
		return GDS{}, 0, fmt.Errorf("%w: quasi-regular grid (Ni/Nj not given)", ErrUnsupportedGridType)
	}
	if ni < 1 || ni > maxGridDim || nj < 1 || nj > maxGridDim {
		return GDS{}, 0, fmt.Errorf("%w: grid dimensions %dx%d (max %d per axis)", ErrMalformedMessage, ni, nj, maxGridDim)
	}

	g.Grid = &RotatedGrid{
		Ni:       ni,
		Nj:       nj,
		Lat1:     milliDeg(s24(b[10:13])),
		Lon1:     milliDeg(s24(b[13:16])),
		ResFlags: b[16],
		Lat2:     milliDeg(s24(b[17:20])),
		Lon2:     milliDeg(s24(b[20:23])),
		Di:       increment(binary.BigEndian.Uint16(b[23:25])),
		Dj:       increment(binary.BigEndian.Uint16(b[25:27])),
		ScanMode: b[27],
		PoleLat:  milliDeg(s24(b[32:35])),
		PoleLon:  milliDeg(s24(b[35:38])),
		Angle:    ibmFloat32(b[38:42]),
	}
	return g, secLen, nil
}

// BMS is the Bitmap Section: one bit per grid point, MSB-first, set when the
// point carries an encoded value.
type BMS struct {
	UnusedBits uint8 // trailing pad bits in the final octet
	TableRef   uint16
	Bits       []byte
}

// BitCount returns the number of grid-point bits the bitmap covers.
func (m *BMS) BitCount() int {
	return len(m.Bits)*8 - int(m.UnusedBits)
}

// parseBMS decodes the Bitmap Section at the start of b and returns it with
// the number of bytes the section occupies. A non-zero table reference means
// the bitmap is predefined at the originating center rather than carried
// inline, which nothing here can resolve.
func parseBMS(b []byte) (BMS, int, error) {
	if len(b) < bmsMinLen {
		return BMS{}, 0, fmt.Errorf("%w: BMS needs %d bytes, have %d", ErrMalformedMessage, bmsMinLen, len(b))
	}
	secLen := u24(b)
	if secLen < bmsMinLen || secLen > len(b) {
		return BMS{}, 0, fmt.Errorf("%w: BMS length %d outside [%d, %d]", ErrMalformedMessage, secLen, bmsMinLen, len(b))
	}
	m := BMS{
		UnusedBits: b[3],
		TableRef:   binary.BigEndian.Uint16(b[4:6]),
		Bits:       b[6:secLen],
	}
	if m.UnusedBits > 7 {
		return BMS{}, 0, fmt.Errorf("%w: %d unused bits in final bitmap octet", ErrMalformedMessage, m.UnusedBits)
	}
	if m.TableRef != 0 {
		return BMS{}, 0, fmt.Errorf("%w: predefined bitmap %d not carried inline", ErrBitmapLengthMismatch, m.TableRef)
	}
	return m, secLen, nil
}

// decodeScaleFactor decodes a GRIB1 sign-magnitude 2-byte scale factor.
// MSB is the sign bit (1 = negative), remaining 15 bits are magnitude.
func decodeScaleFactor(raw uint16) int {
	magnitude := int(raw & 0x7FFF)
	if raw&0x8000 != 0 {
		return -magnitude
	}
	return magnitude
}

// s24 decodes a 3-byte big-endian sign-magnitude integer.
func s24(b []byte) int32 {
	v := int32(b[0]&0x7F)<<16 | int32(b[1])<<8 | int32(b[2])
	if b[0]&0x80 != 0 {
		return -v
	}
	return v
}

// u24 decodes a 3-byte big-endian unsigned integer (section lengths).
func u24(b []byte) int {
	return int(b[0])<<16 | int(b[1])<<8 | int(b[2])
}

// milliDeg converts a millidegree field to degrees.
func milliDeg(v int32) float64 { return float64(v) / 1000 }

// increment converts a 2-byte direction increment (millidegrees) to degrees;
// the all-ones pattern means "not given".
func increment(raw uint16) float64 {
	if raw == 0xFFFF {
		return math.NaN()
	}
	return float64(raw) / 1000
}

// ibmFloat32 decodes a 4-byte IBM single-precision float: sign bit, 7-bit
// exponent biased by 64 with base 16, 24-bit mantissa as a fraction in [0,1).
func ibmFloat32(b []byte) float64 {
	mant := float64(uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
	if mant == 0 {
		return 0
	}
	exp := int(b[0]&0x7F) - 64
	v := math.Ldexp(mant, -24) * math.Pow(16, float64(exp))
	if b[0]&0x80 != 0 {
		return -v
	}
	return v
}
