// Package lerc1 implements the LERC v1 ("CntZImage") compression codec
// for single-band 2-D floating-point rasters.
//
// LERC is a lossy format with a bounded error: every decoded finite
// sample differs from its original value by at most the caller-supplied
// maxZError. An error bound of zero makes the codec lossless. Each image
// carries a per-pixel validity mask; invalid pixels survive a round trip
// in the mask but their values are unconstrained.
//
// A stream holds a fixed header, a mask part (run-length coded, or empty
// when the mask is uniform) and a value part (per-tile quantization and
// bit packing over a tile grid chosen by trial encoding). Each part
// declares its own byte length, so a corrupt part fails locally instead
// of desynchronizing the rest of the stream.
package lerc1

import "errors"

// Stream format constants. Version and type are literal: any other value
// marks a foreign or incompatible stream.
const (
	signature     = "CntZImage " // includes the trailing space
	formatVersion = 11
	formatType    = 8

	headerSize     = len(signature) + 4*4 + 8
	partHeaderSize = 3*4 + 4
)

// Dimension limits. The pixel ceiling caps the allocation a corrupt or
// adversarial header can trigger before any buffer is sized (~1.8 GB of
// float32 samples).
const (
	maxDim    = 20000
	maxPixels = 1800 * 1000 * 1000 / 4
)

// maxQuant caps the quantization range of the bitstuffed tile form. A
// float32 only carries 24 bits of mantissa, so a wider range gains
// nothing over raw float storage and the tile falls back to raw floats.
const maxQuant = 1 << 24

var (
	// ErrBadSignature is returned when a stream does not start with the
	// LERC v1 signature.
	ErrBadSignature = errors.New("lerc1: bad signature")

	// ErrBadHeader is returned when the version or type field does not
	// match the format constants.
	ErrBadHeader = errors.New("lerc1: unsupported version or type")

	// ErrCorrupted is returned when a stream is truncated or a record
	// within it is malformed.
	ErrCorrupted = errors.New("lerc1: corrupted stream")

	// ErrImageSize is returned when width or height is outside [1, 20000]
	// or the pixel count exceeds the allocation ceiling.
	ErrImageSize = errors.New("lerc1: image dimensions out of range")

	// ErrPrecisionLoss is returned when a stream was encoded with a larger
	// error bound than the caller is willing to accept.
	ErrPrecisionLoss = errors.New("lerc1: stream error bound exceeds requested bound")

	// ErrDimensionMismatch is returned when a values-only stream does not
	// match the dimensions of the image it is decoded into.
	ErrDimensionMismatch = errors.New("lerc1: header dimensions do not match image")

	// ErrSizeMismatch is returned when the bytes produced by an encode do
	// not match the precomputed size. It indicates a defect in the codec,
	// never a data-dependent condition, and always aborts the encode.
	ErrSizeMismatch = errors.New("lerc1: encoded size does not match estimate")
)

func checkDimensions(width, height int) error {
	if width <= 0 || width > maxDim || height <= 0 || height > maxDim {
		return ErrImageSize
	}
	if width*height > maxPixels {
		return ErrImageSize
	}
	return nil
}
