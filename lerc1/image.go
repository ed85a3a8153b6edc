package lerc1

import (
	"math"

	"github.com/mlebihan/go-lerc1/bitmask"
)

// Image is a dense row-major grid of float32 samples with a co-owned
// validity mask of identical pixel count. The codec never retains a
// reference to an Image or its buffers beyond a call, and independent
// images may be encoded or decoded concurrently.
type Image struct {
	width  int
	height int
	z      []float32
	mask   *bitmask.BitMask
}

// NewImage creates an image of the given dimensions. All samples start
// at zero and every pixel starts invalid; callers mark valid pixels
// through Mask before encoding.
func NewImage(width, height int) (*Image, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	img := &Image{}
	img.resize(width, height)
	return img, nil
}

// resize reallocates the plane and mask, clearing both.
func (img *Image) resize(width, height int) {
	img.width = width
	img.height = height
	img.z = make([]float32, width*height)
	img.mask = bitmask.New(width * height)
}

// Width returns the number of columns.
func (img *Image) Width() int { return img.width }

// Height returns the number of rows.
func (img *Image) Height() int { return img.height }

// Size returns the pixel count.
func (img *Image) Size() int { return img.width * img.height }

// Values returns the sample plane in row-major order. The slice is the
// image's own storage; writes through it mutate the image.
func (img *Image) Values() []float32 { return img.z }

// Mask returns the validity mask. Pixel k of the mask corresponds to
// Values()[k].
func (img *Image) Mask() *bitmask.BitMask { return img.mask }

// ValueAt returns the sample at (row, col).
func (img *Image) ValueAt(row, col int) float32 {
	return img.z[row*img.width+col]
}

// SetValueAt stores a sample at (row, col).
func (img *Image) SetValueAt(row, col int, v float32) {
	img.z[row*img.width+col] = v
}

func isFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// computeStats gathers the per-tile statistics that drive the encoding
// choice: min, max, valid pixel count and finite pixel count over the
// region [r0,r1)x[c0,c1), valid pixels only. A non-finite sample poisons
// zMin to NaN, which routes the tile to raw float storage.
func (img *Image) computeStats(r0, r1, c0, c1 int) (zMin, zMax float32, numValid, numFinite int) {
	zMin = math.MaxFloat32
	zMax = -math.MaxFloat32
	for row := r0; row < r1; row++ {
		base := row * img.width
		for col := c0; col < c1; col++ {
			if !img.mask.IsValid(base + col) {
				continue
			}
			numValid++
			v := img.z[base+col]
			if isFinite(v) {
				numFinite++
			} else {
				zMin = float32(math.NaN())
			}
			if v < zMin {
				zMin = v
			}
			if v > zMax {
				zMax = v
			}
		}
	}
	if numValid == 0 {
		zMin, zMax = 0, 0
	}
	return zMin, zMax, numValid, numFinite
}

// allSameBits reports whether every sample in the region shares one
// binary representation. Bit comparison makes it usable for NaN and Inf
// patterns, where value comparison would fail.
func (img *Image) allSameBits(r0, r1, c0, c1 int) bool {
	want := math.Float32bits(img.z[r0*img.width+c0])
	for row := r0; row < r1; row++ {
		base := row * img.width
		for col := c0; col < c1; col++ {
			if math.Float32bits(img.z[base+col]) != want {
				return false
			}
		}
	}
	return true
}
