package lerc1

import (
	"math"
	"math/rand"
	"testing"
)

func TestEncodedSizeMatchesOutput(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 8; trial++ {
		img, err := NewImage(1+rng.Intn(100), 1+rng.Intn(100))
		if err != nil {
			t.Fatal(err)
		}
		for k := 0; k < img.Size(); k++ {
			img.Mask().Set(k, rng.Intn(3) != 0)
			img.Values()[k] = float32(rng.NormFloat64() * 100)
		}
		for _, maxZError := range []float64{0, 0.25} {
			for _, valuesOnly := range []bool{false, true} {
				want, err := img.EncodedSize(maxZError, valuesOnly)
				if err != nil {
					t.Fatalf("EncodedSize: %v", err)
				}
				data, err := img.Encode(maxZError, valuesOnly)
				if err != nil {
					t.Fatalf("Encode: %v", err)
				}
				if len(data) != want {
					t.Fatalf("trial %d (err=%v, valuesOnly=%v): wrote %d bytes, size query said %d",
						trial, maxZError, valuesOnly, len(data), want)
				}
			}
		}
	}
}

func TestVoidEncodedSize(t *testing.T) {
	if VoidEncodedSize() != 67 {
		t.Errorf("VoidEncodedSize = %d, want 67", VoidEncodedSize())
	}
}

func TestNewImageBounds(t *testing.T) {
	cases := []struct{ w, h int }{
		{0, 10}, {10, 0}, {-1, 5}, {20001, 10}, {10, 20001},
	}
	for _, c := range cases {
		if _, err := NewImage(c.w, c.h); err != ErrImageSize {
			t.Errorf("NewImage(%d, %d): err = %v, want ErrImageSize", c.w, c.h, err)
		}
	}
	if _, err := NewImage(20000, 20000); err != nil {
		t.Errorf("NewImage(20000, 20000): %v", err)
	}
}

func TestMinimalFloatWidth(t *testing.T) {
	cases := []struct {
		z    float32
		want int
	}{
		{0, 1},
		{3, 1},
		{-128, 1},
		{127, 1},
		{128, 2},
		{-129, 2},
		{32767, 2},
		{-32768, 2},
		{32768, 4},
		{1.5, 4},
		{float32(math.NaN()), 4},
		{float32(math.Inf(1)), 4},
		{float32(math.Inf(-1)), 4},
	}
	for _, c := range cases {
		if got := numBytesFloat(c.z); got != c.want {
			t.Errorf("numBytesFloat(%v) = %d, want %d", c.z, got, c.want)
		}
	}
}

// The zMin nudge must never weaken the error bound: values sitting at
// the tile minimum still round-trip within maxZError.
func TestNudgeKeepsBound(t *testing.T) {
	img, err := NewImage(16, 16)
	if err != nil {
		t.Fatal(err)
	}
	img.Mask().Fill(true)
	// A fractional minimum just below an integer invites the floored
	// nudge (e.g. 9.999 with bound 0.5 nudges toward 10).
	for k := range img.Values() {
		img.Values()[k] = 9.999 + float32(k)*0.05
	}

	data, err := img.Encode(0.5, false)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	dec, err := Decode(data, 0.5)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	checkBound(t, img, dec, 0.5)
}
