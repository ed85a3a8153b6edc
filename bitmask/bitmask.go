// Package bitmask implements the per-pixel validity mask of the LERC v1
// format and its run-length coding.
//
// A mask holds one bit per pixel, 1 meaning valid data and 0 meaning
// no-data. Bits are packed MSB-first: pixel k lives in byte k/8 at bit
// 0x80 >> (k%8). The RLE stream operates on those packed bytes, which
// collapses the common all-valid and all-invalid masks, and masks with
// long no-data borders, into a handful of bytes.
package bitmask

import (
	"errors"

	"github.com/mlebihan/go-lerc1/internal/wire"
)

// ErrCorrupted is returned when an RLE stream is truncated, declares a
// count that overflows the mask, or lacks the terminating sentinel.
var ErrCorrupted = errors.New("bitmask: corrupted RLE stream")

// RLE record layout: a little-endian int16 count followed by a payload.
// A positive count precedes that many literal bytes; a negative count
// precedes a single byte repeated |count| times. A count of -32768 ends
// the stream. Runs shorter than minRun are cheaper as literals (a repeat
// record costs 3 bytes).
const (
	maxRun      = 32767
	minRun      = 5
	endOfStream = -(maxRun + 1)
)

// BitMask is a validity mask over n pixels. The zero value is an empty
// mask; use New to size one.
type BitMask struct {
	n    int
	bits []byte
}

// New creates a mask over n pixels with every pixel marked invalid.
func New(n int) *BitMask {
	return &BitMask{n: n, bits: make([]byte, (n+7)/8)}
}

// Size returns the number of pixels covered by the mask.
func (m *BitMask) Size() int {
	return m.n
}

// IsValid reports whether pixel k carries valid data.
func (m *BitMask) IsValid(k int) bool {
	return m.bits[k>>3]&(0x80>>uint(k&7)) != 0
}

// Set marks pixel k valid or invalid.
func (m *BitMask) Set(k int, valid bool) {
	if valid {
		m.bits[k>>3] |= 0x80 >> uint(k&7)
	} else {
		m.bits[k>>3] &^= 0x80 >> uint(k&7)
	}
}

// Fill marks every pixel valid or invalid.
func (m *BitMask) Fill(valid bool) {
	b := byte(0)
	if valid {
		b = 0xff
	}
	for i := range m.bits {
		m.bits[i] = b
	}
}

// Clone returns an independent copy of the mask.
func (m *BitMask) Clone() *BitMask {
	c := &BitMask{n: m.n, bits: make([]byte, len(m.bits))}
	copy(c.bits, m.bits)
	return c
}

// Equal reports whether two masks cover the same pixels with identical
// validity. Padding bits in the last byte do not participate.
func (m *BitMask) Equal(o *BitMask) bool {
	if m.n != o.n {
		return false
	}
	for k := 0; k < m.n; k++ {
		if m.IsValid(k) != o.IsValid(k) {
			return false
		}
	}
	return true
}

// runLength returns how many times the leading byte of src repeats,
// between 1 and min(len(src), maxRun).
func runLength(src []byte) int {
	n := len(src)
	if n > maxRun {
		n = maxRun
	}
	for i := 1; i < n; i++ {
		if src[i] != src[0] {
			return i
		}
	}
	return n
}

func appendCount(dst []byte, count int16) []byte {
	return append(dst, byte(count), byte(uint16(count)>>8))
}

// RLECompress encodes the packed mask bytes. The output always ends with
// the end-of-stream sentinel and never exceeds RLESize().
func (m *BitMask) RLECompress() []byte {
	src := m.bits
	dst := make([]byte, 0, m.RLESize())

	lit := 0 // pending literal bytes, ending just before pos
	pos := 0
	flush := func() {
		if lit > 0 {
			dst = appendCount(dst, int16(lit))
			dst = append(dst, src[pos-lit:pos]...)
			lit = 0
		}
	}

	for pos < len(src) {
		run := runLength(src[pos:])
		if run < minRun {
			pos++
			if lit++; lit == maxRun {
				flush()
			}
			continue
		}
		flush()
		dst = appendCount(dst, int16(-run))
		dst = append(dst, src[pos])
		pos += run
	}
	flush()
	return appendCount(dst, endOfStream)
}

// RLESize returns the exact encoded size of the mask in bytes without
// materializing the stream.
func (m *BitMask) RLESize() int {
	src := m.bits
	size := 2 // end-of-stream sentinel
	lit := 0
	for pos := 0; pos < len(src); {
		run := runLength(src[pos:])
		if run < minRun {
			pos++
			if lit++; lit == maxRun {
				size += lit + 2
				lit = 0
			}
			continue
		}
		if lit > 0 {
			size += lit + 2
			lit = 0
		}
		size += 3
		pos += run
	}
	if lit > 0 {
		size += lit + 2
	}
	return size
}

// RLEDecompress decodes src into the mask, which must already be sized
// for the expected pixel count. A zero-size mask is valid; its stream is
// just the sentinel.
func (m *BitMask) RLEDecompress(src []byte) error {
	r := wire.NewReader(src)
	dst := m.bits
	pos := 0

	for pos < len(dst) {
		count, err := r.ReadInt16()
		if err != nil {
			return ErrCorrupted
		}
		if count < 0 {
			b, err := r.ReadByte()
			if err != nil {
				return ErrCorrupted
			}
			n := int(-int32(count))
			if n > len(dst)-pos {
				return ErrCorrupted
			}
			for end := pos + n; pos < end; pos++ {
				dst[pos] = b
			}
		} else {
			n := int(count)
			if n > len(dst)-pos {
				return ErrCorrupted
			}
			if err := r.ReadBytesInto(dst[pos : pos+n]); err != nil {
				return ErrCorrupted
			}
			pos += n
		}
	}

	count, err := r.ReadInt16()
	if err != nil || count != endOfStream {
		return ErrCorrupted
	}
	return nil
}
