package postproc

import (
	"context"
	"image"
	"testing"
)

func TestDownscaleStepShrinksToTargetWidth(t *testing.T) {
	bitmap := mustDecode(t, buildTestPNG(t, 240, 120))

	out, err := DownscaleStep{Width: 80}.Apply(context.Background(), bitmap)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out == bitmap {
		t.Fatal("expected a new bitmap for the downscaled frame")
	}
	if out.Width() != 80 || out.Height() != 40 {
		t.Fatalf("expected 80x40, got %dx%d", out.Width(), out.Height())
	}
}

func TestDownscaleStepSameWidthIsNoOp(t *testing.T) {
	bitmap := mustDecode(t, buildTestPNG(t, 80, 40))

	out, err := DownscaleStep{Width: 80}.Apply(context.Background(), bitmap)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out != bitmap {
		t.Fatal("expected input bitmap returned unchanged for a matching width")
	}
}

func TestDownscaleStepRejectsInvalidWidth(t *testing.T) {
	bitmap := mustDecode(t, buildTestPNG(t, 16, 16))

	if _, err := (DownscaleStep{Width: 0}).Apply(context.Background(), bitmap); err == nil {
		t.Fatal("expected error for width 0")
	}
}

func TestWatermarkStepChangesPixels(t *testing.T) {
	// Solid black frame makes the white watermark text easy to detect.
	img := image.NewRGBA(image.Rect(0, 0, 120, 60))
	bitmap := NewBitmap(img, nil)

	out, err := WatermarkStep{Text: "framepost", Opacity: 1, Gravity: "southeast"}.Apply(context.Background(), bitmap)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out == bitmap {
		t.Fatal("expected a new bitmap for the watermarked frame")
	}

	var changed bool
	bounds := out.Image().Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y && !changed; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if r, _, _, _ := out.Image().At(x, y).RGBA(); r > 0 {
				changed = true
				break
			}
		}
	}
	if !changed {
		t.Fatal("expected watermark to alter at least one pixel")
	}
}

func TestWatermarkStepRequiresText(t *testing.T) {
	bitmap := mustDecode(t, buildTestPNG(t, 16, 16))

	if _, err := (WatermarkStep{Text: "   "}).Apply(context.Background(), bitmap); err == nil {
		t.Fatal("expected error for empty watermark text")
	}
}

func TestFormatNormalizeStepAlwaysReturnsInput(t *testing.T) {
	bitmap := mustDecode(t, buildTestPNG(t, 16, 16))

	out, err := FormatNormalizeStep{}.Apply(context.Background(), bitmap)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out != bitmap {
		t.Fatal("format normalization must return its input unchanged")
	}
}
