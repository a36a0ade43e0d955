package grib1

import (
	"fmt"
	"math"
)

// BDS flag bits, octet 4 high nibble.
const (
	bdsSphericalHarmonics = 0x80
	bdsComplexPacking     = 0x40
	bdsAdditionalFlags    = 0x10
)

// bdsMinLen: 3-byte length, flag octet, binary scale, reference value,
// bit-width octet.
const bdsMinLen = 11

// BDS is the Binary Data Section header plus its packed bit stream.
type BDS struct {
	Flags       uint8
	BinaryScale int     // E, sign-magnitude decoded
	Reference   float64 // R, converted from IBM single precision
	BitWidth    int     // bits per packed value, 0–32
	UnusedBits  int     // trailing pad bits of the final data octet

	packed []byte
}

// parseBDS decodes the Binary Data Section at the start of b. Only simple
// grid-point packing is supported; spherical harmonics and complex packing
// are rejected here so the failure names the message that carries them.
func parseBDS(b []byte) (BDS, error) {
	if len(b) < bdsMinLen {
		return BDS{}, fmt.Errorf("%w: BDS needs %d bytes, have %d", ErrMalformedMessage, bdsMinLen, len(b))
	}
	secLen := u24(b)
	if secLen < bdsMinLen || secLen > len(b) {
		return BDS{}, fmt.Errorf("%w: BDS length %d outside [%d, %d]", ErrMalformedMessage, secLen, bdsMinLen, len(b))
	}
	d := BDS{
		Flags:       b[3],
		BinaryScale: decodeScaleFactor(uint16(b[4])<<8 | uint16(b[5])),
		Reference:   ibmFloat32(b[6:10]),
		BitWidth:    int(b[10]),
		UnusedBits:  int(b[3] & 0x0F),
		packed:      b[11:secLen],
	}
	if d.Flags&bdsSphericalHarmonics != 0 {
		return BDS{}, fmt.Errorf("%w: spherical harmonic coefficients (flags 0x%02X)", ErrUnsupportedPacking, d.Flags)
	}
	if d.Flags&bdsComplexPacking != 0 {
		return BDS{}, fmt.Errorf("%w: complex/second-order packing (flags 0x%02X)", ErrUnsupportedPacking, d.Flags)
	}
	if d.Flags&bdsAdditionalFlags != 0 {
		return BDS{}, fmt.Errorf("%w: extended flags at octet 14 (flags 0x%02X)", ErrUnsupportedPacking, d.Flags)
	}
	if d.BitWidth > 32 {
		return BDS{}, fmt.Errorf("%w: %d bits per value (max 32)", ErrMalformedMessage, d.BitWidth)
	}
	return d, nil
}

// unpack reconstructs the physical value of every grid point in scan order:
// Y = (R + X·2^E) / 10^D, with X read as a BitWidth-wide unsigned integer
// MSB-first. Points whose bitmap bit is clear get math.NaN() and consume no
// bits. A zero BitWidth means a constant field: every present point takes
// R / 10^D.
func (d *BDS) unpack(points int, bms *BMS, decimalScale int) ([]float64, error) {
	scaleE := math.Ldexp(1, d.BinaryScale)
	scaleD := math.Pow(10, float64(decimalScale))
	var bits []byte
	if bms != nil {
		bits = bms.Bits
	}

	out := make([]float64, points)
	if d.BitWidth == 0 {
		v := d.Reference / scaleD
		for k := range out {
			if bits != nil && !bitmapBit(bits, k) {
				out[k] = math.NaN()
			} else {
				out[k] = v
			}
		}
		return out, nil
	}

	br := newBitReader(d.packed, len(d.packed)*8-d.UnusedBits)
	for k := 0; k < points; k++ {
		if bits != nil && !bitmapBit(bits, k) {
			out[k] = math.NaN()
			continue
		}
		x, err := br.read(d.BitWidth)
		if err != nil {
			return nil, fmt.Errorf("%w: grid point %d: %v", ErrTruncatedMessage, k, err)
		}
		out[k] = (d.Reference + scaleE*float64(x)) / scaleD
	}
	return out, nil
}

// bitmapBit reports whether grid point i carries data in the MSB-first
// bitmap: bit 7 of byte 0 is point 0, bit 6 is point 1, and so on.
func bitmapBit(bits []byte, i int) bool {
	byteIdx := i / 8
	if byteIdx >= len(bits) {
		return false
	}
	return (bits[byteIdx]>>uint(7-i%8))&1 == 1
}
