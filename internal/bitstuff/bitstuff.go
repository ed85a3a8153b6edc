// Package bitstuff implements the scalar codecs of the LERC v1 format:
// bit lengths, minimal integer byte widths, the packed header byte that
// multiplexes a 6-bit value with a 2-bit byte-width code, and fixed-width
// bit packing of small unsigned integers.
//
// The bit packing writes values MSB-first through a 32-bit accumulator
// that is flushed as little-endian 4-byte words. The tail flush drops the
// unused low bytes of the accumulator so that only ceil(usedBits/8) bytes
// reach the stream. Unpacking mirrors this exactly; the reader knows the
// element count independently and ignores the zero padding bits.
package bitstuff

import (
	"errors"

	"github.com/mlebihan/go-lerc1/internal/wire"
)

// ErrBlockCorrupted is returned when a bit-packed block declares a header
// code, count or payload that is inconsistent with the stream.
var ErrBlockCorrupted = errors.New("bitstuff: corrupted block")

// BitLength returns the 1-based index of the highest set bit of v.
// BitLength(0) returns 1; the encoder never stores a zero maximum (a tile
// whose quantized range is empty uses the constant tile form instead).
func BitLength(v uint32) int {
	r := 0
	if v>>16 != 0 {
		r = 16
	}
	v >>= uint(r)
	t := 0
	if v>>8 != 0 {
		t = 8
	}
	v >>= uint(t)
	r += t
	t = 0
	if v>>4 != 0 {
		t = 4
	}
	v = (v >> uint(t)) << 1
	return 1 + r + t + int((0xffffaa50>>v)&0x3)
}

// ByteWidth returns the minimal number of bytes (1, 2 or 4) needed to
// store the unsigned integer v.
func ByteWidth(v uint32) int {
	switch {
	case v <= 0xff:
		return 1
	case v <= 0xffff:
		return 2
	}
	return 4
}

// The header byte carries a 6-bit value in its low bits and a byte-width
// code in its two high bits. Code 3 (0xc0) is reserved and rejected.
var (
	widthToCode = [5]byte{0, 0x80, 0x40, 0, 0} // indexed by byte width 1, 2, 4
	codeToWidth = [4]int{4, 2, 1, 0}
)

// EncodeHeaderByte packs a 6-bit value and a byte width (1, 2 or 4) into
// a single header byte.
func EncodeHeaderByte(value, byteWidth int) byte {
	return byte(value) | widthToCode[byteWidth&3]
}

// DecodeHeaderByte splits a header byte into its 6-bit value and the byte
// width it encodes. A byte width of 0 marks the reserved code; callers
// must treat it as a malformed stream.
func DecodeHeaderByte(b byte) (value, byteWidth int) {
	return int(b & 63), codeToWidth[b>>6]
}

// Packer writes fixed-width unsigned integers MSB-first into a Writer.
// Callers must invoke Flush after the last Put to drain the accumulator.
type Packer struct {
	w       *wire.Writer
	numBits int
	acc     uint32
	bits    int // bits still free in the accumulator
}

// NewPacker creates a Packer that stores each value in numBits bits.
// numBits must be in [1, 31].
func NewPacker(w *wire.Writer, numBits int) *Packer {
	return &Packer{w: w, numBits: numBits, bits: 32}
}

// Put appends one value to the bitstream.
func (p *Packer) Put(v uint32) error {
	if p.bits >= p.numBits {
		p.acc |= v << uint(p.bits-p.numBits)
		p.bits -= p.numBits
		return nil
	}
	p.acc |= v >> uint(p.numBits-p.bits)
	if err := p.w.WriteUint32(p.acc); err != nil {
		return err
	}
	p.bits += 32 - p.numBits
	p.acc = v << uint(p.bits)
	return nil
}

// Flush writes the partially filled accumulator, emitting only the bytes
// that carry data.
func (p *Packer) Flush() error {
	acc, bits := p.acc, p.bits
	nbytes := 4
	for bits >= 8 {
		acc >>= 8
		bits -= 8
		nbytes--
	}
	var tail [4]byte
	wire.ByteOrder.PutUint32(tail[:], acc)
	return p.w.WriteBytes(tail[:nbytes])
}

// ReadBlock reads one bit-packed block: a header byte joining the bit
// width and the byte width of the count field, the element count, and the
// packed payload. dst bounds the element count (its length is the maximum
// the caller's region can hold); the decoded values are returned in a
// prefix of dst.
func ReadBlock(r *wire.Reader, dst []uint32) ([]uint32, error) {
	hdr, err := r.ReadByte()
	if err != nil {
		return nil, ErrBlockCorrupted
	}
	numBits, countWidth := DecodeHeaderByte(hdr)
	if numBits >= 32 || countWidth == 0 {
		return nil, ErrBlockCorrupted
	}

	count, err := r.ReadUintN(countWidth)
	if err != nil || int(count) > len(dst) {
		return nil, ErrBlockCorrupted
	}
	dst = dst[:count]
	if numBits == 0 {
		// Nothing packed, all values are zero.
		for i := range dst {
			dst[i] = 0
		}
		return dst, nil
	}

	numBytes := (int(count)*numBits + 7) / 8
	if r.Len() < numBytes {
		return nil, ErrBlockCorrupted
	}

	// Mirror of the packing accumulator: data sits at the high end, the
	// low `bits` bits are empty. Partial tail loads land in the high
	// bytes of the accumulator.
	var acc uint32
	bits := 0
	for i := range dst {
		if bits >= numBits {
			dst[i] = acc >> uint(32-numBits)
			acc <<= uint(numBits)
			bits -= numBits
			continue
		}

		var v uint32
		if bits > 0 {
			v = acc >> uint(32-bits)
			v <<= uint(numBits - bits)
		}
		nb := numBytes
		if nb > 4 {
			nb = 4
		}
		chunk, err := r.Next(nb)
		if err != nil {
			return nil, ErrBlockCorrupted
		}
		var word uint32
		for j, b := range chunk {
			word |= uint32(b) << uint(8*(4-nb+j))
		}
		keep := (uint32(1) << uint(8*(4-nb))) - 1
		acc = acc&keep | word
		numBytes -= nb

		bits += 32 - numBits
		v |= acc >> uint(bits)
		acc <<= uint(32 - bits)
		dst[i] = v
	}
	if numBytes != 0 {
		return nil, ErrBlockCorrupted
	}
	return dst, nil
}
