package grib1

import "encoding/binary"

// testMsg describes a synthetic GRIB1 message for tests. Zero values get
// sensible defaults from buildMessage: edition 1, rotated lat-lon 2x2 grid
// with an un-rotated pole, isobaric level type, 8-bit packing, reference
// value 0 and zero scale factors, so decoded values equal the packed
// integers exactly.
type testMsg struct {
	edition   uint8 // 0 → 1
	param     uint8
	levelType uint8 // 0 → 100 (isobaric surface)
	level     uint16
	levelBot  uint8 // layer bottom bound, layer level types only
	decimal   int   // decimal scale factor D

	noGDS    bool
	gridType uint8 // 0 → 10 with noGDS false
	ni, nj   int   // 0 → 2x2

	binScale int
	refBytes [4]byte  // IBM float; zero bytes decode to R=0
	bitWidth int      // -1 → 0 bits (constant field), 0 → 8
	xs       []uint32 // packed values, one per present point; nil → 1..n

	bitmap     []bool // nil → no BMS; one entry per covered point
	bmsUnused  int    // >0 overrides the derived unused-bit count
	badTerm    bool   // corrupt the trailing "7777"
	lengthBias int    // added to the declared total length field
}

// buildMessage assembles the message bytes. Grid geometry: first point at
// (10°, 20°) rotated, 1° steps increasing north/east, scan mode 0x40,
// southern pole at (-90°, 0°) so rotated coordinates are geographic ones.
func buildMessage(m testMsg) []byte {
	if m.edition == 0 {
		m.edition = 1
	}
	if m.levelType == 0 {
		m.levelType = 100
	}
	if m.ni == 0 {
		m.ni = 2
	}
	if m.nj == 0 {
		m.nj = 2
	}
	if m.gridType == 0 {
		m.gridType = GridTypeRotatedLatLon
	}
	switch m.bitWidth {
	case -1:
		m.bitWidth = 0
	case 0:
		m.bitWidth = 8
	}

	points := m.ni * m.nj
	present := points
	if m.bitmap != nil {
		present = 0
		for _, b := range m.bitmap {
			if b {
				present++
			}
		}
	}
	if m.xs == nil && m.bitWidth > 0 {
		m.xs = make([]uint32, present)
		for i := range m.xs {
			m.xs[i] = uint32(i + 1)
		}
	}

	pds := make([]byte, pdsMinLen)
	putU24(pds, len(pds))
	pds[3] = 128 // parameter table version
	pds[4] = 98  // originating center
	pds[5] = 1
	pds[6] = 255 // grid catalog id: non-catalogued
	if !m.noGDS {
		pds[7] |= 0x80
	}
	if m.bitmap != nil {
		pds[7] |= 0x40
	}
	pds[8] = m.param
	pds[9] = m.levelType
	if layerLevelTypes[m.levelType] {
		pds[10] = byte(m.level)
		pds[11] = m.levelBot
	} else {
		binary.BigEndian.PutUint16(pds[10:12], m.level)
	}
	pds[12], pds[13], pds[14] = 20, 1, 15 // year 20 of century 21 = 2020
	pds[15], pds[16] = 12, 0
	pds[17] = 1 // hours
	pds[24] = 21
	binary.BigEndian.PutUint16(pds[26:28], encodeScale(m.decimal))

	var gds []byte
	if !m.noGDS {
		gds = make([]byte, gdsRotLLLen)
		putU24(gds, len(gds))
		gds[3] = 0
		gds[4] = 255
		gds[5] = m.gridType
		binary.BigEndian.PutUint16(gds[6:8], uint16(m.ni))
		binary.BigEndian.PutUint16(gds[8:10], uint16(m.nj))
		putS24(gds[10:], 10000) // Lat1 = 10°
		putS24(gds[13:], 20000) // Lon1 = 20°
		gds[16] = 0x80          // increments given
		putS24(gds[17:], int32(10000+(m.nj-1)*1000))
		putS24(gds[20:], int32(20000+(m.ni-1)*1000))
		binary.BigEndian.PutUint16(gds[23:25], 1000)
		binary.BigEndian.PutUint16(gds[25:27], 1000)
		gds[27] = 0x40           // +i, +j, i-consecutive
		putS24(gds[32:], -90000) // southern pole at the true south pole
		putS24(gds[35:], 0)
		// octets 39-42: rotation angle, IBM float zero
	}

	var bms []byte
	if m.bitmap != nil {
		n := len(m.bitmap)
		packed := make([]byte, (n+7)/8)
		for i, set := range m.bitmap {
			if set {
				packed[i/8] |= 1 << uint(7-i%8)
			}
		}
		unused := (8 - n%8) % 8
		if m.bmsUnused > 0 {
			unused = m.bmsUnused
		}
		bms = make([]byte, bmsMinLen+len(packed))
		putU24(bms, len(bms))
		bms[3] = byte(unused)
		copy(bms[6:], packed)
	}

	data := packBits(m.xs, m.bitWidth)
	bds := make([]byte, bdsMinLen+len(data))
	putU24(bds, len(bds))
	unusedBits := 0
	if m.bitWidth > 0 {
		unusedBits = (8 - len(m.xs)*m.bitWidth%8) % 8
	}
	bds[3] = byte(unusedBits) // high nibble 0: simple grid-point packing
	binary.BigEndian.PutUint16(bds[4:6], encodeScale(m.binScale))
	copy(bds[6:10], m.refBytes[:])
	bds[10] = byte(m.bitWidth)
	copy(bds[11:], data)

	total := 8 + len(pds) + len(gds) + len(bms) + len(bds) + 4
	msg := make([]byte, 0, total)
	hdr := make([]byte, 8)
	copy(hdr, "GRIB")
	putU24(hdr[4:], total+m.lengthBias)
	hdr[7] = m.edition
	msg = append(msg, hdr...)
	msg = append(msg, pds...)
	msg = append(msg, gds...)
	msg = append(msg, bms...)
	msg = append(msg, bds...)
	if m.badTerm {
		msg = append(msg, "6777"...)
	} else {
		msg = append(msg, "7777"...)
	}
	return msg
}

func putU24(b []byte, v int) {
	b[0], b[1], b[2] = byte(v>>16), byte(v>>8), byte(v)
}

// putS24 writes a sign-magnitude 24-bit integer.
func putS24(b []byte, v int32) {
	var sign byte
	if v < 0 {
		sign = 0x80
		v = -v
	}
	b[0] = sign | byte(v>>16)
	b[1], b[2] = byte(v>>8), byte(v)
}

// encodeScale writes a sign-magnitude 16-bit scale factor.
func encodeScale(v int) uint16 {
	if v < 0 {
		return 0x8000 | uint16(-v)
	}
	return uint16(v)
}

// packBits packs width-bit values MSB-first, padded with zero bits.
func packBits(xs []uint32, width int) []byte {
	if width == 0 || len(xs) == 0 {
		return nil
	}
	out := make([]byte, (len(xs)*width+7)/8)
	pos := 0
	for _, x := range xs {
		for b := width - 1; b >= 0; b-- {
			if x>>uint(b)&1 == 1 {
				out[pos/8] |= 1 << uint(7-pos%8)
			}
			pos++
		}
	}
	return out
}
