package lerc1

import (
	"math"

	"github.com/mlebihan/go-lerc1/internal/bitstuff"
	"github.com/mlebihan/go-lerc1/internal/wire"
)

// Tile compression flags, the low 6 bits of a tile's leading byte. The
// high 2 bits carry the byte width of the zMin field for flagConstMin,
// in the same packed-header-byte scheme used inside bitstuffed blocks.
const (
	flagRawFloats  = 0 // every valid pixel stored as a raw float32
	flagBitStuffed = 1 // quantized offsets from zMin, bit packed
	flagConstZero  = 2 // whole tile is 0
	flagConstMin   = 3 // whole tile is zMin (also the non-finite constant form)
)

// tileEdges are the candidate tile edge lengths tried by the tiling
// search, ascending. The final tile in each dimension absorbs the
// remainder rows and columns.
var tileEdges = [...]int{8, 11, 15, 20, 32, 64}

// encodeInfo is the size-estimate record produced by a dry-run pass
// before writing. The write must reproduce these byte counts exactly; a
// mismatch aborts with ErrSizeMismatch rather than emitting a stream
// whose part headers lie.
type encodeInfo struct {
	// mask part; always untiled
	numBytesMask int
	maxMaskVal   float32

	// value part
	tilesVert  int
	tilesHori  int
	numBytesZ  int
	maxZInImg  float32
}

// numBytesFloat returns the minimal storage width for z: 1 or 2 bytes
// when z is a finite integer in int8 or int16 range, otherwise 4.
func numBytesFloat(z float32) int {
	if !isFinite(z) || z > math.MaxInt16 || z < math.MinInt16 {
		return 4
	}
	i := int16(z)
	if float32(i) != z {
		return 4
	}
	if z > math.MaxInt8 || z < math.MinInt8 {
		return 2
	}
	return 1
}

func writeFloat(w *wire.Writer, z float32, n int) error {
	switch n {
	case 1:
		return w.WriteByte(byte(int8(z)))
	case 2:
		return w.WriteInt16(int16(z))
	}
	return w.WriteFloat32(z)
}

// numBytesTile returns the encoded size of one tile without emitting it.
// It must agree byte for byte with writeTile.
func numBytesTile(numValid int, zMin, zMax float32, maxZError float64) int {
	if numValid == 0 || (zMin == 0 && zMax == 0) {
		return 1
	}
	if maxZError == 0 || !isFinite(zMin) || !isFinite(zMax) ||
		(float64(zMax)-float64(zMin))/(2*maxZError) > maxQuant {
		return 1 + numValid*4
	}
	maxElem := uint32((float64(zMax)-float64(zMin))/(2*maxZError) + 0.5)
	n := 1 + numBytesFloat(zMin)
	if maxElem == 0 {
		return n
	}
	return n + 1 + bitstuff.ByteWidth(uint32(numValid)) +
		(numValid*bitstuff.BitLength(maxElem)+7)/8
}

// writeTile encodes one tile. The caller has already chosen zMin (possibly
// nudged) and verified the tile is not the uniform non-finite form.
// Returns the number of bytes written.
func (img *Image) writeTile(w *wire.Writer, r0, r1, c0, c1, numValid int, zMin, zMax float32, maxZError float64) (int, error) {
	start := w.Pos()

	if numValid == 0 || (zMin == 0 && zMax == 0) {
		if err := w.WriteByte(flagConstZero); err != nil {
			return 0, err
		}
		return w.Pos() - start, nil
	}

	if maxZError == 0 || !isFinite(zMin) || !isFinite(zMax) ||
		(float64(zMax)-float64(zMin))/(2*maxZError) > maxQuant {
		// Raw storage: every valid pixel as a float32, mask scan order.
		if err := w.WriteByte(flagRawFloats); err != nil {
			return 0, err
		}
		count := 0
		for row := r0; row < r1; row++ {
			base := row * img.width
			for col := c0; col < c1; col++ {
				if !img.mask.IsValid(base + col) {
					continue
				}
				if err := w.WriteFloat32(img.z[base+col]); err != nil {
					return 0, err
				}
				count++
			}
		}
		if count != numValid {
			return 0, ErrSizeMismatch
		}
		return w.Pos() - start, nil
	}

	flag := byte(flagBitStuffed)
	f := 0.5 / maxZError
	maxElem := uint32((float64(zMax)-float64(zMin))*f + 0.5)
	if maxElem == 0 {
		flag = flagConstMin
	}
	n := numBytesFloat(zMin)
	if err := w.WriteByte(bitstuff.EncodeHeaderByte(int(flag), n)); err != nil {
		return 0, err
	}
	if err := writeFloat(w, zMin, n); err != nil {
		return 0, err
	}
	if maxElem > 0 {
		numBits := bitstuff.BitLength(maxElem)
		cw := bitstuff.ByteWidth(uint32(numValid))
		if err := w.WriteByte(bitstuff.EncodeHeaderByte(numBits, cw)); err != nil {
			return 0, err
		}
		if err := w.WriteUintN(uint32(numValid), cw); err != nil {
			return 0, err
		}

		packer := bitstuff.NewPacker(w, numBits)
		count := 0
		for row := r0; row < r1; row++ {
			base := row * img.width
			for col := c0; col < c1; col++ {
				if !img.mask.IsValid(base + col) {
					continue
				}
				count++
				q := uint32((float64(img.z[base+col])-float64(zMin))*f + 0.5)
				if err := packer.Put(q); err != nil {
					return 0, err
				}
			}
		}
		if count != numValid {
			return 0, ErrSizeMismatch
		}
		if err := packer.Flush(); err != nil {
			return 0, err
		}
	}
	return w.Pos() - start, nil
}

// writeTiles encodes (or, with a nil writer, sizes) the value part over
// the given tile grid, returning the part's byte count and the maximum
// sample value across the whole plane. The maximum is recorded in the
// part header and clamps reconstruction at decode time.
func (img *Image) writeTiles(maxZError float64, tilesVert, tilesHori int, w *wire.Writer) (numBytes int, maxValInImg float32, err error) {
	if tilesVert == 0 || tilesHori == 0 {
		return 0, 0, ErrSizeMismatch
	}
	maxValInImg = -math.MaxFloat32
	tileHeight := img.height / tilesVert
	tileWidth := img.width / tilesHori
	for r0 := 0; r0 < img.height; r0 += tileHeight {
		r1 := r0 + tileHeight
		if r1 > img.height {
			r1 = img.height
		}
		for c0 := 0; c0 < img.width; c0 += tileWidth {
			c1 := c0 + tileWidth
			if c1 > img.width {
				c1 = img.width
			}
			zMin, zMax, numValid, numFinite := img.computeStats(r0, r1, c0, c1)
			if zMax > maxValInImg {
				maxValInImg = zMax
			}

			uniformNonFinite := numFinite == 0 && numValid == (r1-r0)*(c1-c0) &&
				img.allSameBits(r0, r1, c0, c1)

			needed := 1
			if numValid != 0 {
				if uniformNonFinite {
					// Flag byte plus the raw 4-byte bit pattern.
					needed = 5
				} else {
					needed = numBytesTile(numValid, zMin, zMax, maxZError)
					// Moving zMin up by just under one quantum can shrink
					// the bit width without weakening the error bound.
					zm := float32(float64(zMin) + 0.999999*maxZError)
					if numFinite == numValid && zm <= zMax {
						nudged := numBytesTile(numValid, zm, zMax, maxZError)
						if fl := float32(math.Floor(float64(zm))); zMin < fl {
							if withFloor := numBytesTile(numValid, fl, zMax, maxZError); withFloor < nudged {
								zm = fl
								nudged = withFloor
							}
						}
						if nudged < needed {
							zMin = zm
							needed = nudged
						}
					}
				}
			}
			numBytes += needed

			if w == nil {
				continue
			}
			var written int
			if uniformNonFinite && numValid != 0 {
				if err := w.WriteByte(flagConstMin); err != nil {
					return 0, 0, err
				}
				if err := w.WriteFloat32(img.ValueAt(r0, c0)); err != nil {
					return 0, 0, err
				}
				written = 5
			} else {
				var err error
				written, err = img.writeTile(w, r0, r1, c0, c1, numValid, zMin, zMax, maxZError)
				if err != nil {
					return 0, 0, err
				}
			}
			if written != needed {
				return 0, 0, ErrSizeMismatch
			}
		}
	}
	return numBytes, maxValInImg, nil
}

// findTiling picks the tile grid for the value part by dry-run encoding
// candidate grids and keeping the smallest. The scan stops at the first
// candidate that does not improve on the best so far; size is close to
// unimodal in tile count and the early exit keeps output byte-identical
// with existing LERC v1 encoders.
func (img *Image) findTiling(maxZError float64) (tilesVert, tilesHori, numBytes int, maxValInImg float32, err error) {
	// The whole image as one tile is the baseline, usually the worst case.
	tilesVert, tilesHori = 1, 1
	numBytes, maxValInImg, err = img.writeTiles(maxZError, 1, 1, nil)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	for _, edge := range tileEdges {
		vert := img.height / edge
		hori := img.width / edge
		if vert*hori < 2 {
			return tilesVert, tilesHori, numBytes, maxValInImg, nil
		}
		candidate, _, err := img.writeTiles(maxZError, vert, hori, nil)
		if err != nil {
			return 0, 0, 0, 0, err
		}
		if candidate > numBytes {
			break // size started to increase
		}
		if candidate < numBytes {
			tilesVert, tilesHori, numBytes = vert, hori, candidate
		}
	}
	return tilesVert, tilesHori, numBytes, maxValInImg, nil
}

// computeInfo runs the dry-run pass: it sizes the mask part (uniform
// masks cost nothing, the uniform value rides in the part header) and
// the value part (via the tiling search), returning the estimate record
// and the total stream size.
func (img *Image) computeInfo(maxZError float64, valuesOnly bool) (encodeInfo, int, error) {
	var info encodeInfo
	total := headerSize

	if !valuesOnly {
		first := img.mask.IsValid(0)
		if first {
			info.maxMaskVal = 1
		}
		for k := 1; k < img.Size(); k++ {
			if img.mask.IsValid(k) != first {
				info.numBytesMask = img.mask.RLESize()
				info.maxMaskVal = 1
				break
			}
		}
		total += partHeaderSize + info.numBytesMask
	}

	tilesVert, tilesHori, numBytesZ, maxZ, err := img.findTiling(maxZError)
	if err != nil {
		return encodeInfo{}, 0, err
	}
	info.tilesVert = tilesVert
	info.tilesHori = tilesHori
	info.numBytesZ = numBytesZ
	info.maxZInImg = maxZ
	total += partHeaderSize + numBytesZ
	return info, total, nil
}

// EncodedSize returns the exact byte size Encode will produce for the
// given error bound, for callers that pre-allocate output storage.
func (img *Image) EncodedSize(maxZError float64, valuesOnly bool) (int, error) {
	_, total, err := img.computeInfo(maxZError, valuesOnly)
	return total, err
}

// VoidEncodedSize returns the stream size of an image of any dimensions
// whose pixels are all invalid: the header, two part headers, and one
// constant-zero tile.
func VoidEncodedSize() int {
	return headerSize + 2*partHeaderSize + 1
}

// Encode serializes the image. With valuesOnly set, the mask part is
// omitted and the stream can only be decoded with DecodeValues into an
// image that already carries the mask.
//
// Every decoded finite sample is guaranteed to differ from its original
// by at most maxZError. The destination of a failed Encode is discarded;
// no partial stream is ever returned.
func (img *Image) Encode(maxZError float64, valuesOnly bool) ([]byte, error) {
	if img.Size() == 0 {
		return nil, ErrImageSize
	}
	info, total, err := img.computeInfo(maxZError, valuesOnly)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, total)
	w := wire.NewWriter(buf)
	w.WriteBytes([]byte(signature))
	w.WriteInt32(formatVersion)
	w.WriteInt32(formatType)
	w.WriteInt32(int32(img.height))
	w.WriteInt32(int32(img.width))
	if err := w.WriteFloat64(maxZError); err != nil {
		return nil, err
	}

	zPart := valuesOnly
	for {
		var tilesVert, tilesHori, partBytes int
		var maxVal float32
		if zPart {
			tilesVert, tilesHori = info.tilesVert, info.tilesHori
			partBytes, maxVal = info.numBytesZ, info.maxZInImg
		} else {
			partBytes, maxVal = info.numBytesMask, info.maxMaskVal
		}

		w.WriteInt32(int32(tilesVert))
		w.WriteInt32(int32(tilesHori))
		w.WriteInt32(int32(partBytes))
		if err := w.WriteFloat32(maxVal); err != nil {
			return nil, err
		}

		start := w.Pos()
		if !zPart && tilesVert == 0 && tilesHori == 0 {
			if partBytes > 0 {
				if err := w.WriteBytes(img.mask.RLECompress()); err != nil {
					return nil, err
				}
			}
		} else {
			if _, _, err := img.writeTiles(maxZError, tilesVert, tilesHori, w); err != nil {
				return nil, err
			}
		}
		if w.Pos()-start != partBytes {
			return nil, ErrSizeMismatch
		}

		zPart = !zPart
		if !zPart {
			break
		}
	}

	if w.Pos() != total {
		return nil, ErrSizeMismatch
	}
	return buf, nil
}
