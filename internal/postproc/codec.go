package postproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/png"

	_ "golang.org/x/image/webp"
)

// DefaultJPEGQuality is used when the caller passes a quality outside 1-100.
const DefaultJPEGQuality = 85

// Decode turns a raw captured frame into a Bitmap. The raw buffer is consumed
// once here; orientation metadata stays with the caller, who hands it to the
// EXIF step separately.
func Decode(raw []byte, tracker Tracker) (*Bitmap, error) {
	if len(raw) == 0 {
		return nil, failDecode(errors.New("raw capture buffer is empty"))
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, failDecode(fmt.Errorf("decode raw capture: %w", err))
	}
	return NewBitmap(img, tracker), nil
}

// EncodeJPEG serializes a bitmap to JPEG at the given quality. The bitmap is
// not mutated or released; cleanup stays with the orchestrator.
func EncodeJPEG(b *Bitmap, quality int) ([]byte, error) {
	if b == nil || b.Released() {
		return nil, failEncode(errors.New("bitmap has been released"))
	}
	if b.Width() == 0 || b.Height() == 0 {
		return nil, failEncode(fmt.Errorf("invalid bitmap dimensions %dx%d", b.Width(), b.Height()))
	}

	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, b.Image(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, failEncode(fmt.Errorf("encode jpeg: %w", err))
	}
	return buf.Bytes(), nil
}
