// Package wire provides little-endian binary encoding and decoding over
// byte slices for the LERC v1 stream format.
//
// LERC v1 uses little-endian byte order for every multi-byte field. The
// Reader and Writer here carry a position and the remaining length
// together, and every operation is bounds-checked before it touches the
// underlying slice, so a corrupt length field can only produce an error,
// never an out-of-range access.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	// ErrShortBuffer is returned when a read or write cannot complete
	// because there are not enough bytes left in the buffer.
	ErrShortBuffer = errors.New("wire: buffer too short")

	// ErrNegativeSize is returned when a size parameter is negative.
	ErrNegativeSize = errors.New("wire: negative size")
)

// ByteOrder is the byte order used by LERC v1 streams.
var ByteOrder = binary.LittleEndian

// Reader provides bounds-checked little-endian reading from a byte slice.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	if r.pos >= len(r.data) {
		return 0
	}
	return len(r.data) - r.pos
}

// Pos returns the current read position.
func (r *Reader) Pos() int {
	return r.pos
}

// Skip advances the read position by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 {
		return ErrNegativeSize
	}
	if r.pos+n > len(r.data) {
		return ErrShortBuffer
	}
	r.pos += n
	return nil
}

// Next returns the next n bytes without copying and advances past them.
// The returned slice aliases the reader's data and stays valid for the
// lifetime of the underlying buffer.
func (r *Reader) Next(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	if r.pos+n > len(r.data) {
		return nil, ErrShortBuffer
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrShortBuffer
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytesInto reads len(dst) bytes into dst.
func (r *Reader) ReadBytesInto(dst []byte) error {
	n := len(dst)
	if r.pos+n > len(r.data) {
		return ErrShortBuffer
	}
	copy(dst, r.data[r.pos:r.pos+n])
	r.pos += n
	return nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadInt16 reads a signed 16-bit integer.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadInt32 reads a signed 32-bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUintN reads an unsigned integer stored in n little-endian bytes.
// n must be 1, 2 or 4.
func (r *Reader) ReadUintN(n int) (uint32, error) {
	switch n {
	case 1:
		b, err := r.ReadByte()
		return uint32(b), err
	case 2:
		v, err := r.ReadUint16()
		return uint32(v), err
	case 4:
		return r.ReadUint32()
	}
	return 0, ErrNegativeSize
}

// ReadFloat32 reads a 32-bit IEEE 754 floating-point number.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadFloat64 reads a 64-bit IEEE 754 floating-point number.
func (r *Reader) ReadFloat64() (float64, error) {
	if r.pos+8 > len(r.data) {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint64(r.data[r.pos:])
	r.pos += 8
	return math.Float64frombits(v), nil
}

// Writer provides bounds-checked little-endian writing to a fixed-size
// byte slice. The fixed size is deliberate: LERC v1 encoders compute the
// exact output size up front and any overrun is an encoding defect.
type Writer struct {
	data []byte
	pos  int
}

// NewWriter creates a Writer over data.
func NewWriter(data []byte) *Writer {
	return &Writer{data: data}
}

// Len returns the number of bytes that can still be written.
func (w *Writer) Len() int {
	if w.pos >= len(w.data) {
		return 0
	}
	return len(w.data) - w.pos
}

// Pos returns the current write position.
func (w *Writer) Pos() int {
	return w.pos
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) error {
	if w.pos >= len(w.data) {
		return ErrShortBuffer
	}
	w.data[w.pos] = b
	w.pos++
	return nil
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(b []byte) error {
	if w.pos+len(b) > len(w.data) {
		return ErrShortBuffer
	}
	copy(w.data[w.pos:], b)
	w.pos += len(b)
	return nil
}

// WriteUint16 writes an unsigned 16-bit integer.
func (w *Writer) WriteUint16(v uint16) error {
	if w.pos+2 > len(w.data) {
		return ErrShortBuffer
	}
	ByteOrder.PutUint16(w.data[w.pos:], v)
	w.pos += 2
	return nil
}

// WriteInt16 writes a signed 16-bit integer.
func (w *Writer) WriteInt16(v int16) error {
	return w.WriteUint16(uint16(v))
}

// WriteUint32 writes an unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) error {
	if w.pos+4 > len(w.data) {
		return ErrShortBuffer
	}
	ByteOrder.PutUint32(w.data[w.pos:], v)
	w.pos += 4
	return nil
}

// WriteInt32 writes a signed 32-bit integer.
func (w *Writer) WriteInt32(v int32) error {
	return w.WriteUint32(uint32(v))
}

// WriteUintN writes an unsigned integer into n little-endian bytes.
// n must be 1, 2 or 4 and v must fit in n bytes.
func (w *Writer) WriteUintN(v uint32, n int) error {
	switch n {
	case 1:
		return w.WriteByte(byte(v))
	case 2:
		return w.WriteUint16(uint16(v))
	case 4:
		return w.WriteUint32(v)
	}
	return ErrNegativeSize
}

// WriteFloat32 writes a 32-bit IEEE 754 floating-point number.
func (w *Writer) WriteFloat32(v float32) error {
	return w.WriteUint32(math.Float32bits(v))
}

// WriteFloat64 writes a 64-bit IEEE 754 floating-point number.
func (w *Writer) WriteFloat64(v float64) error {
	if w.pos+8 > len(w.data) {
		return ErrShortBuffer
	}
	ByteOrder.PutUint64(w.data[w.pos:], math.Float64bits(v))
	w.pos += 8
	return nil
}
