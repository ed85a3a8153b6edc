package lerc1

import (
	"encoding/binary"
	"errors"
	"testing"
)

// encodeFixture returns a valid stream for corruption tests.
func encodeFixture(t *testing.T) []byte {
	t.Helper()
	img := gradientImage(t, 24, 16, 50)
	img.Mask().Set(5, false)
	data, err := img.Encode(0.1, false)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func patched(data []byte, offset int, value []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	copy(out[offset:], value)
	return out
}

func putInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func TestDecodeRejectsBadSignature(t *testing.T) {
	data := encodeFixture(t)
	bad := patched(data, 0, []byte{'X'})
	if _, err := Decode(bad, 1); !errors.Is(err, ErrBadSignature) {
		t.Errorf("corrupt signature: err = %v, want ErrBadSignature", err)
	}
	if _, _, err := PeekDimensions(bad); !errors.Is(err, ErrBadSignature) {
		t.Errorf("PeekDimensions on corrupt signature: err = %v, want ErrBadSignature", err)
	}
}

func TestDecodeRejectsBadVersionOrType(t *testing.T) {
	data := encodeFixture(t)
	if _, err := Decode(patched(data, 10, putInt32(12)), 1); !errors.Is(err, ErrBadHeader) {
		t.Error("version 12 accepted")
	}
	if _, err := Decode(patched(data, 14, putInt32(9)), 1); !errors.Is(err, ErrBadHeader) {
		t.Error("type 9 accepted")
	}
}

func TestDecodeRejectsBadDimensions(t *testing.T) {
	data := encodeFixture(t)
	cases := map[string][]byte{
		"zero height":     patched(data, 18, putInt32(0)),
		"zero width":      patched(data, 22, putInt32(0)),
		"negative height": patched(data, 18, putInt32(-4)),
		"huge height":     patched(data, 18, putInt32(20001)),
		"huge width":      patched(data, 22, putInt32(20001)),
	}
	for name, bad := range cases {
		if _, err := Decode(bad, 1); !errors.Is(err, ErrImageSize) {
			t.Errorf("%s: err = %v, want ErrImageSize", name, err)
		}
		if _, _, err := PeekDimensions(bad); !errors.Is(err, ErrImageSize) {
			t.Errorf("PeekDimensions, %s: err = %v, want ErrImageSize", name, err)
		}
	}
}

func TestDecodeRejectsPrecisionLoss(t *testing.T) {
	img := gradientImage(t, 10, 10, 100)
	data, err := img.Encode(0.5, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(data, 0.1); !errors.Is(err, ErrPrecisionLoss) {
		t.Errorf("looser stream accepted: err = %v, want ErrPrecisionLoss", err)
	}
	if _, err := Decode(data, 0.5); err != nil {
		t.Errorf("equal bound rejected: %v", err)
	}
}

func TestDecodeRejectsTruncation(t *testing.T) {
	data := encodeFixture(t)
	for _, n := range []int{0, 5, 9, 17, 33, 40, len(data) / 2, len(data) - 1} {
		if _, err := Decode(data[:n], 1); err == nil {
			t.Errorf("truncation to %d bytes accepted", n)
		}
	}
}

func TestDecodeRejectsMaskPartTiling(t *testing.T) {
	data := encodeFixture(t)
	// The mask part header starts right after the fixed header; a tiled
	// mask part is malformed.
	bad := patched(data, headerSize, putInt32(2))
	bad = patched(bad, headerSize+4, putInt32(2))
	if _, err := Decode(bad, 1); !errors.Is(err, ErrCorrupted) {
		t.Errorf("tiled mask part: err = %v, want ErrCorrupted", err)
	}
}

func TestDecodeRejectsBadUniformMaskValue(t *testing.T) {
	img, err := NewImage(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	img.Mask().Fill(true)
	data, err := img.Encode(0.1, false)
	if err != nil {
		t.Fatal(err)
	}
	// Uniform mask part: byteCount 0, maxVal must be exactly 0 or 1.
	bad := patched(data, headerSize+12, []byte{0, 0, 0, 0x40}) // 2.0f
	if _, err := Decode(bad, 1); !errors.Is(err, ErrCorrupted) {
		t.Errorf("uniform mask value 2.0: err = %v, want ErrCorrupted", err)
	}
}

func TestDecodeRejectsPartByteCountMismatch(t *testing.T) {
	data := encodeFixture(t)
	// Inflate the mask part's declared byte count; the payload cursor
	// then desynchronizes and the value part fails locally.
	if _, err := Decode(patched(data, headerSize+8, putInt32(9999)), 1); err == nil {
		t.Error("oversized mask byte count accepted")
	}
}

func TestDecodeValuesDimensionMismatch(t *testing.T) {
	img := gradientImage(t, 12, 12, 10)
	data, err := img.Encode(0.1, true)
	if err != nil {
		t.Fatal(err)
	}
	other, err := NewImage(6, 6)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.DecodeValues(data, 0.1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("mismatched DecodeValues: err = %v, want ErrDimensionMismatch", err)
	}
}

func TestPeekDimensions(t *testing.T) {
	data := encodeFixture(t)
	w, h, err := PeekDimensions(data)
	if err != nil {
		t.Fatalf("PeekDimensions: %v", err)
	}
	if w != 24 || h != 16 {
		t.Errorf("PeekDimensions = %dx%d, want 24x16", w, h)
	}
	// The probe needs only the fixed header, not the payloads.
	w, h, err = PeekDimensions(data[:headerSize])
	if err != nil || w != 24 || h != 16 {
		t.Errorf("PeekDimensions on header prefix = %d, %d, %v", w, h, err)
	}
}

func TestDecodeRejectsCorruptTileFlag(t *testing.T) {
	img := gradientImage(t, 8, 8, 100)
	data, err := img.Encode(0.1, false)
	if err != nil {
		t.Fatal(err)
	}
	// First tile byte of the value part. 0xc0 carries the reserved
	// width code.
	offset := headerSize + 2*partHeaderSize
	if _, err := Decode(patched(data, offset, []byte{0xc0}), 1); !errors.Is(err, ErrCorrupted) {
		t.Errorf("reserved tile header: err = %v, want ErrCorrupted", err)
	}
	if _, err := Decode(patched(data, offset, []byte{0x04}), 1); !errors.Is(err, ErrCorrupted) {
		t.Errorf("tile flag 4: err = %v, want ErrCorrupted", err)
	}
}
