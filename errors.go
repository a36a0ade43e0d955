package grib1

import "errors"

// Sentinel errors returned (wrapped) by the scanner, section parsers and
// data decoder. Match with errors.Is.
var (
	// ErrUnexpectedEOF means the source ran out mid-message. It is fatal to
	// the search in progress; results already collected remain valid.
	ErrUnexpectedEOF = errors.New("grib1: unexpected end of stream")

	// ErrUnsupportedEdition marks an indicator section whose edition byte is
	// not 1. The message is skipped and scanning continues.
	ErrUnsupportedEdition = errors.New("grib1: unsupported GRIB edition")

	// ErrMalformedMessage marks framing that cannot be trusted (absurd
	// declared length). The scanner resynchronizes one byte forward.
	ErrMalformedMessage = errors.New("grib1: malformed message")

	// ErrInvalidTerminator means the four bytes at the declared message end
	// are not "7777". Treated like ErrMalformedMessage by the scanner.
	ErrInvalidTerminator = errors.New("grib1: invalid message terminator")

	// ErrUnsupportedGridType is reported when decoding is requested for a
	// message whose grid is not rotated latitude-longitude (type 10), or
	// whose grid is implied by a catalog id with no GDS present.
	ErrUnsupportedGridType = errors.New("grib1: unsupported grid representation type")

	// ErrUnsupportedPacking is reported for BDS flag combinations outside
	// simple grid-point packing (spherical harmonics, complex packing).
	ErrUnsupportedPacking = errors.New("grib1: unsupported data packing")

	// ErrBitmapLengthMismatch means the bitmap's bit count disagrees with
	// the grid's point count.
	ErrBitmapLengthMismatch = errors.New("grib1: bitmap length mismatch")

	// ErrTruncatedMessage means the packed bit stream ended before all
	// present grid points were read.
	ErrTruncatedMessage = errors.New("grib1: truncated data section")
)
