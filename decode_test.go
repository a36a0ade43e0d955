package grib1

import (
	"errors"
	"math"
	"testing"
)

func TestParseBDS(t *testing.T) {
	b := []byte{
		0x00, 0x00, 0x0D, // length 13
		0x04,       // simple packing, 4 unused bits
		0x80, 0x02, // binary scale -2
		0x41, 0xA0, 0x00, 0x00, // reference 10.0
		0x0C,       // 12 bits per value
		0xAB, 0xC0, // one packed value + padding
	}
	d, err := parseBDS(b)
	if err != nil {
		t.Fatalf("parseBDS: %v", err)
	}
	if d.BinaryScale != -2 {
		t.Errorf("BinaryScale: got %d, want -2", d.BinaryScale)
	}
	if d.Reference != 10.0 {
		t.Errorf("Reference: got %v, want 10", d.Reference)
	}
	if d.BitWidth != 12 {
		t.Errorf("BitWidth: got %d, want 12", d.BitWidth)
	}
	if d.UnusedBits != 4 {
		t.Errorf("UnusedBits: got %d, want 4", d.UnusedBits)
	}
	if len(d.packed) != 2 {
		t.Errorf("packed length: got %d, want 2", len(d.packed))
	}
}

func TestParseBDSRejectsUnsupportedPacking(t *testing.T) {
	for _, flags := range []byte{bdsSphericalHarmonics, bdsComplexPacking, bdsAdditionalFlags} {
		b := make([]byte, bdsMinLen)
		putU24(b, bdsMinLen)
		b[3] = flags
		if _, err := parseBDS(b); !errors.Is(err, ErrUnsupportedPacking) {
			t.Errorf("flags 0x%02X: got %v, want ErrUnsupportedPacking", flags, err)
		}
	}
}

func TestParseBDSRejectsOversizeBitWidth(t *testing.T) {
	b := make([]byte, bdsMinLen)
	putU24(b, bdsMinLen)
	b[10] = 33
	if _, err := parseBDS(b); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("33-bit width: got %v, want ErrMalformedMessage", err)
	}
}

func TestUnpackAppliesScaling(t *testing.T) {
	// Y = (R + X·2^E) / 10^D with R=10, E=2, D=1.
	d := BDS{BinaryScale: 2, Reference: 10, BitWidth: 8, packed: packBits([]uint32{0, 1, 2, 3}, 8)}
	got, err := d.unpack(4, nil, 1)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	want := []float64{1.0, 1.4, 1.8, 2.2}
	for k := range want {
		if math.Abs(got[k]-want[k]) > 1e-12 {
			t.Errorf("point %d: got %v, want %v", k, got[k], want[k])
		}
	}
}

func TestUnpackBitmapSkipsMissingPoints(t *testing.T) {
	// Bitmap 1011: point 1 is missing and must consume no data bits.
	bms := &BMS{Bits: []byte{0b1011_0000}}
	d := BDS{BitWidth: 8, packed: packBits([]uint32{5, 6, 7}, 8)}
	got, err := d.unpack(4, bms, 0)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got[0] != 5 || got[2] != 6 || got[3] != 7 {
		t.Errorf("present points: got %v, want [5 _ 6 7]", got)
	}
	if !math.IsNaN(got[1]) {
		t.Errorf("missing point: got %v, want NaN", got[1])
	}
}

func TestUnpackConstantField(t *testing.T) {
	bms := &BMS{Bits: []byte{0b1010_0000}}
	d := BDS{Reference: 10} // zero bit width: every present point is R/10^D
	got, err := d.unpack(4, bms, 1)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got[0] != 1.0 || got[2] != 1.0 {
		t.Errorf("constant values: got %v, want 1.0", got)
	}
	if !math.IsNaN(got[1]) || !math.IsNaN(got[3]) {
		t.Errorf("missing points: got %v, want NaN at 1 and 3", got)
	}
}

func TestUnpackTruncatedDataReturnsError(t *testing.T) {
	d := BDS{BitWidth: 8, packed: packBits([]uint32{1, 2}, 8)}
	if _, err := d.unpack(4, nil, 0); !errors.Is(err, ErrTruncatedMessage) {
		t.Errorf("unpack of 4 points from 2 values: got %v, want ErrTruncatedMessage", err)
	}
}

// TestUnpackUnusedBitsNotData verifies the declared pad bits of the final
// octet are never consumed as values.
func TestUnpackUnusedBitsNotData(t *testing.T) {
	d := BDS{BitWidth: 3, UnusedBits: 5, packed: []byte{0b1010_1111}}
	got, err := d.unpack(1, nil, 0)
	if err != nil {
		t.Fatalf("unpack one value: %v", err)
	}
	if got[0] != 0b101 {
		t.Errorf("value: got %v, want 5", got[0])
	}
	if _, err := d.unpack(2, nil, 0); !errors.Is(err, ErrTruncatedMessage) {
		t.Errorf("second value would come from pad bits: got %v, want ErrTruncatedMessage", err)
	}
}
