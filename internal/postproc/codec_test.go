package postproc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestDecodeEncodeRoundTripKeepsDimensions(t *testing.T) {
	raw := buildTestPNG(t, 240, 120)

	bitmap, err := Decode(raw, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	data, err := EncodeJPEG(bitmap, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty encoded buffer")
	}

	decoded, err := Decode(data, nil)
	if err != nil {
		t.Fatalf("decode encoded output: %v", err)
	}
	if decoded.Width() != 240 || decoded.Height() != 120 {
		t.Fatalf("expected 240x120, got %dx%d", decoded.Width(), decoded.Height())
	}
}

func TestDecodeRejectsEmptyInput(t *testing.T) {
	if _, err := Decode(nil, nil); err == nil {
		t.Fatal("expected error for nil input")
	}

	_, err := Decode([]byte{}, nil)
	if err == nil {
		t.Fatal("expected error for empty input")
	}
	if kind, ok := KindOf(err); !ok || kind != KindDecode {
		t.Fatalf("expected decode failure kind, got %v (pipeline error: %v)", kind, ok)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"), nil)
	if err == nil {
		t.Fatal("expected error for unparseable input")
	}
	if kind, _ := KindOf(err); kind != KindDecode {
		t.Fatalf("expected decode failure kind, got %v", kind)
	}
}

func TestEncodeQualityMonotonicity(t *testing.T) {
	bitmap := NewBitmap(buildGradient(256, 128), nil)

	low, err := EncodeJPEG(bitmap, 30)
	if err != nil {
		t.Fatalf("encode quality 30: %v", err)
	}
	high, err := EncodeJPEG(bitmap, 90)
	if err != nil {
		t.Fatalf("encode quality 90: %v", err)
	}

	if len(low) > len(high) {
		t.Fatalf("expected quality 30 output (%d bytes) <= quality 90 output (%d bytes)", len(low), len(high))
	}
}

func TestEncodeRejectsZeroDimensions(t *testing.T) {
	bitmap := NewBitmap(image.NewRGBA(image.Rect(0, 0, 0, 0)), nil)

	_, err := EncodeJPEG(bitmap, 85)
	if err == nil {
		t.Fatal("expected error for zero-dimension bitmap")
	}
	if kind, _ := KindOf(err); kind != KindEncode {
		t.Fatalf("expected encode failure kind, got %v", kind)
	}
}

func TestEncodeRejectsReleasedBitmap(t *testing.T) {
	bitmap := NewBitmap(buildGradient(16, 16), nil)
	bitmap.Release()

	_, err := EncodeJPEG(bitmap, 85)
	if err == nil {
		t.Fatal("expected error for released bitmap")
	}
	if kind, _ := KindOf(err); kind != KindEncode {
		t.Fatalf("expected encode failure kind, got %v", kind)
	}
}

func TestEncodeDoesNotReleaseInput(t *testing.T) {
	bitmap := NewBitmap(buildGradient(16, 16), nil)

	if _, err := EncodeJPEG(bitmap, 85); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if bitmap.Released() {
		t.Fatal("encoder must not release the input bitmap")
	}
}

func buildGradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}
	return img
}

func buildTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, buildGradient(w, h)); err != nil {
		t.Fatalf("encode source png: %v", err)
	}
	return buf.Bytes()
}
