package wire

import (
	"bytes"
	"math"
	"testing"
)

func TestWriterLittleEndian(t *testing.T) {
	buf := make([]byte, 19)
	w := NewWriter(buf)

	if err := w.WriteByte(0x01); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	if err := w.WriteUint16(0x0302); err != nil {
		t.Fatalf("WriteUint16: %v", err)
	}
	if err := w.WriteUint32(0x07060504); err != nil {
		t.Fatalf("WriteUint32: %v", err)
	}
	if err := w.WriteFloat32(math.Float32frombits(0x0b0a0908)); err != nil {
		t.Fatalf("WriteFloat32: %v", err)
	}
	if err := w.WriteFloat64(math.Float64frombits(0x131211100f0e0d0c)); err != nil {
		t.Fatalf("WriteFloat64: %v", err)
	}

	want := []byte{
		0x01,
		0x02, 0x03,
		0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0a, 0x0b,
		0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13,
	}
	if !bytes.Equal(buf, want) {
		t.Errorf("buffer = % x, want % x", buf, want)
	}
	if w.Pos() != len(buf) || w.Len() != 0 {
		t.Errorf("Pos/Len = %d/%d, want %d/0", w.Pos(), w.Len(), len(buf))
	}
}

func TestReaderMirrorsWriter(t *testing.T) {
	buf := make([]byte, 32)
	w := NewWriter(buf)
	w.WriteByte(0xab)
	w.WriteInt16(-2)
	w.WriteInt32(-70000)
	w.WriteUintN(300, 2)
	w.WriteFloat32(1.5)
	w.WriteFloat64(-2.25)

	r := NewReader(buf)
	if b, _ := r.ReadByte(); b != 0xab {
		t.Errorf("ReadByte = %#x, want 0xab", b)
	}
	if v, _ := r.ReadInt16(); v != -2 {
		t.Errorf("ReadInt16 = %d, want -2", v)
	}
	if v, _ := r.ReadInt32(); v != -70000 {
		t.Errorf("ReadInt32 = %d, want -70000", v)
	}
	if v, _ := r.ReadUintN(2); v != 300 {
		t.Errorf("ReadUintN = %d, want 300", v)
	}
	if v, _ := r.ReadFloat32(); v != 1.5 {
		t.Errorf("ReadFloat32 = %v, want 1.5", v)
	}
	if v, _ := r.ReadFloat64(); v != -2.25 {
		t.Errorf("ReadFloat64 = %v, want -2.25", v)
	}
}

func TestReaderBounds(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	if _, err := r.ReadUint32(); err != ErrShortBuffer {
		t.Errorf("ReadUint32 on 3 bytes: err = %v, want ErrShortBuffer", err)
	}
	// A failed read must not move the cursor.
	if r.Pos() != 0 {
		t.Errorf("Pos after failed read = %d, want 0", r.Pos())
	}
	if _, err := r.ReadUint16(); err != nil {
		t.Errorf("ReadUint16: %v", err)
	}
	if err := r.Skip(2); err != ErrShortBuffer {
		t.Errorf("Skip past end: err = %v, want ErrShortBuffer", err)
	}
	if err := r.Skip(-1); err != ErrNegativeSize {
		t.Errorf("Skip(-1): err = %v, want ErrNegativeSize", err)
	}
	if _, err := r.Next(2); err != ErrShortBuffer {
		t.Errorf("Next past end: err = %v, want ErrShortBuffer", err)
	}
	if b, err := r.Next(1); err != nil || b[0] != 3 {
		t.Errorf("Next(1) = %v, %v, want [3], nil", b, err)
	}
}

func TestWriterBounds(t *testing.T) {
	w := NewWriter(make([]byte, 3))
	if err := w.WriteUint32(1); err != ErrShortBuffer {
		t.Errorf("WriteUint32 into 3 bytes: err = %v, want ErrShortBuffer", err)
	}
	if w.Pos() != 0 {
		t.Errorf("Pos after failed write = %d, want 0", w.Pos())
	}
	if err := w.WriteBytes([]byte{1, 2, 3, 4}); err != ErrShortBuffer {
		t.Errorf("WriteBytes overflow: err = %v, want ErrShortBuffer", err)
	}
	if err := w.WriteUint16(5); err != nil {
		t.Errorf("WriteUint16: %v", err)
	}
}

func TestNextAliasesData(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	r := NewReader(data)
	b, err := r.Next(4)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	data[0] = 9
	if b[0] != 9 {
		t.Error("Next should alias the underlying data, not copy it")
	}
}
