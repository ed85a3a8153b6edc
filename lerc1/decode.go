package lerc1

import (
	"github.com/mlebihan/go-lerc1/internal/bitstuff"
	"github.com/mlebihan/go-lerc1/internal/wire"
)

// header is the fixed 34-byte stream prefix.
type header struct {
	width     int
	height    int
	maxZError float64
}

// readHeader parses and validates the signature, version, type and
// dimension fields.
func readHeader(r *wire.Reader) (header, error) {
	sig := make([]byte, len(signature))
	if err := r.ReadBytesInto(sig); err != nil || string(sig) != signature {
		return header{}, ErrBadSignature
	}

	version, err := r.ReadInt32()
	if err != nil {
		return header{}, ErrCorrupted
	}
	typ, err := r.ReadInt32()
	if err != nil {
		return header{}, ErrCorrupted
	}
	height, err := r.ReadInt32()
	if err != nil {
		return header{}, ErrCorrupted
	}
	width, err := r.ReadInt32()
	if err != nil {
		return header{}, ErrCorrupted
	}
	maxZError, err := r.ReadFloat64()
	if err != nil {
		return header{}, ErrCorrupted
	}

	if version != formatVersion || typ != formatType {
		return header{}, ErrBadHeader
	}
	if err := checkDimensions(int(width), int(height)); err != nil {
		return header{}, err
	}
	return header{width: int(width), height: int(height), maxZError: maxZError}, nil
}

// PeekDimensions extracts the width and height from a stream prefix
// without decoding any payload, for callers that size buffers before
// committing to a full decode.
func PeekDimensions(data []byte) (width, height int, err error) {
	h, err := readHeader(wire.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return h.width, h.height, nil
}

// Decode parses a full stream (mask part and value part) into a new
// image. maxZError is the largest error bound the caller accepts; a
// stream encoded with a looser bound is rejected with ErrPrecisionLoss.
func Decode(data []byte, maxZError float64) (*Image, error) {
	img := &Image{}
	if err := img.read(wire.NewReader(data), maxZError, false); err != nil {
		return nil, err
	}
	return img, nil
}

// DecodeValues parses a values-only stream into an existing image whose
// mask is already populated. The stream's dimensions must match the
// image's.
func (img *Image) DecodeValues(data []byte, maxZError float64) error {
	return img.read(wire.NewReader(data), maxZError, true)
}

func (img *Image) read(r *wire.Reader, maxZError float64, valuesOnly bool) error {
	h, err := readHeader(r)
	if err != nil {
		return err
	}
	if h.maxZError > maxZError {
		return ErrPrecisionLoss
	}

	if valuesOnly {
		if h.width != img.width || h.height != img.height {
			return ErrDimensionMismatch
		}
	} else {
		img.resize(h.width, h.height)
	}

	zPart := valuesOnly
	for {
		tilesVert, err := r.ReadInt32()
		if err != nil {
			return ErrCorrupted
		}
		tilesHori, err := r.ReadInt32()
		if err != nil {
			return ErrCorrupted
		}
		numBytes, err := r.ReadInt32()
		if err != nil {
			return ErrCorrupted
		}
		maxValInPart, err := r.ReadFloat32()
		if err != nil {
			return ErrCorrupted
		}
		if numBytes < 0 {
			return ErrCorrupted
		}
		payload, err := r.Next(int(numBytes))
		if err != nil {
			return ErrCorrupted
		}

		if zPart {
			if err := img.readTiles(h.maxZError, int(tilesVert), int(tilesHori), maxValInPart, payload); err != nil {
				return err
			}
		} else {
			// The mask part is never tiled.
			if tilesVert != 0 && tilesHori != 0 {
				return ErrCorrupted
			}
			if numBytes == 0 {
				if maxValInPart != 0 && maxValInPart != 1 {
					return ErrCorrupted
				}
				img.mask.Fill(maxValInPart != 0)
			} else if err := img.mask.RLEDecompress(payload); err != nil {
				return ErrCorrupted
			}
		}

		zPart = !zPart
		if !zPart {
			return nil
		}
	}
}

// readTiles decodes the value part. Each part is self-describing: the
// tile payload is bounded by the part's declared byte count and must be
// consumed exactly.
func (img *Image) readTiles(maxZErrorInFile float64, tilesVert, tilesHori int, maxValInImg float32, payload []byte) error {
	if tilesVert <= 0 || tilesHori <= 0 {
		return ErrCorrupted
	}
	tileHeight := img.height / tilesVert
	tileWidth := img.width / tilesHori
	if tileHeight <= 0 || tileWidth <= 0 {
		return ErrCorrupted
	}

	r := wire.NewReader(payload)
	scratch := make([]uint32, tileHeight*tileWidth)
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
			if err := img.readTile(r, r0, r1, c0, c1, maxZErrorInFile, maxValInImg, scratch); err != nil {
				return err
			}
		}
	}
	if r.Len() != 0 {
		return ErrCorrupted
	}
	return nil
}

func readFloat(r *wire.Reader, n int) (float32, error) {
	switch n {
	case 1:
		b, err := r.ReadByte()
		return float32(int8(b)), err
	case 2:
		v, err := r.ReadInt16()
		return float32(v), err
	}
	return r.ReadFloat32()
}

// fill sets every pixel of the region, valid or not, to v.
func (img *Image) fill(r0, r1, c0, c1 int, v float32) {
	for row := r0; row < r1; row++ {
		base := row * img.width
		for col := c0; col < c1; col++ {
			img.z[base+col] = v
		}
	}
}

func (img *Image) readTile(r *wire.Reader, r0, r1, c0, c1 int, maxZErrorInFile float64, maxValInImg float32, scratch []uint32) error {
	hdr, err := r.ReadByte()
	if err != nil {
		return ErrCorrupted
	}
	flag, n := bitstuff.DecodeHeaderByte(hdr)
	if n == 0 || flag > flagConstMin {
		return ErrCorrupted
	}

	switch flag {
	case flagConstZero:
		img.fill(r0, r1, c0, c1, 0)
		return nil

	case flagRawFloats:
		for row := r0; row < r1; row++ {
			base := row * img.width
			for col := c0; col < c1; col++ {
				if !img.mask.IsValid(base + col) {
					continue
				}
				v, err := r.ReadFloat32()
				if err != nil {
					return ErrCorrupted
				}
				img.z[base+col] = v
			}
		}
		return nil
	}

	minVal, err := readFloat(r, n)
	if err != nil {
		return ErrCorrupted
	}

	if flag == flagConstMin {
		img.fill(r0, r1, c0, c1, minVal)
		return nil
	}

	// Bitstuffed: quantized offsets from minVal for each valid pixel.
	maxCount := (r1 - r0) * (c1 - c0)
	values, err := bitstuff.ReadBlock(r, scratch[:maxCount])
	if err != nil {
		return ErrCorrupted
	}

	q := 2 * maxZErrorInFile
	i := 0
	for row := r0; row < r1; row++ {
		base := row * img.width
		for col := c0; col < c1; col++ {
			if !img.mask.IsValid(base + col) {
				continue
			}
			if i >= len(values) {
				return ErrCorrupted
			}
			v := float32(float64(minVal) + q*float64(values[i]))
			i++
			// Quantization rounding must never push a sample above the
			// maximum recorded at encode time.
			if !(v < maxValInImg) {
				v = maxValInImg
			}
			img.z[base+col] = v
		}
	}
	if i != len(values) {
		return ErrCorrupted
	}
	return nil
}
