package postproc

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// EXIF orientation codes that map to a pure rotation. Mirrored codes (2, 4,
// 5, 7) and anything unknown collapse to no rotation.
const (
	orientationNormal    = 1
	orientationRotate180 = 3
	orientationRotate90  = 6
	orientationRotate270 = 8
)

// ExifAdjustStep re-orients a decoded frame using the orientation tag embedded
// in the raw capture buffer plus the facing of the sensor that produced it.
// Front-facing sensors deliver a vertically mirrored frame, and the mirror has
// to be undone in the pre-rotation coordinate frame: mirror-then-rotate and
// rotate-then-mirror are not equivalent.
type ExifAdjustStep struct {
	raw         []byte
	frontFacing bool
	logger      *log.Logger
}

// NewExifAdjustStep captures the raw buffer the orientation tag is read from.
// logger may be nil.
func NewExifAdjustStep(raw []byte, frontFacing bool, logger *log.Logger) *ExifAdjustStep {
	return &ExifAdjustStep{raw: raw, frontFacing: frontFacing, logger: logger}
}

func (s *ExifAdjustStep) Name() string { return "exif_adjust" }

func (s *ExifAdjustStep) Apply(_ context.Context, in *Bitmap) (*Bitmap, error) {
	if in == nil || in.Released() {
		return nil, errors.New("input bitmap has been released")
	}

	degrees := s.rotationDegrees()
	if degrees == 0 && !s.frontFacing {
		return in, nil
	}

	img := in.Image()
	if s.frontFacing {
		img = imaging.FlipV(img)
	}
	img = rotateClockwise(img, degrees)
	return in.Derive(img), nil
}

// rotationDegrees reads the orientation tag from the raw buffer. Missing or
// unreadable metadata degrades to 0 degrees: a usably-oriented-if-imperfect
// frame beats no frame at all.
func (s *ExifAdjustStep) rotationDegrees() (degrees int) {
	// goexif can panic on some malformed TIFF directory structures.
	defer func() {
		if r := recover(); r != nil {
			s.logf("orientation metadata unreadable (%v), continuing without rotation", r)
			degrees = 0
		}
	}()

	x, err := exif.Decode(bytes.NewReader(s.raw))
	if err != nil {
		s.logf("orientation metadata unreadable (%v), continuing without rotation", err)
		return 0
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		s.logf("orientation tag missing, continuing without rotation")
		return 0
	}

	code, err := tag.Int(0)
	if err != nil {
		s.logf("orientation tag malformed (%v), continuing without rotation", err)
		return 0
	}

	return exifToDegrees(code)
}

func (s *ExifAdjustStep) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// exifToDegrees collapses the eight EXIF orientation codes to the clockwise
// rotation the display expects. Unknown codes are a fail-safe 0, not an error.
func exifToDegrees(code int) int {
	switch code {
	case orientationRotate90:
		return 90
	case orientationRotate180:
		return 180
	case orientationRotate270:
		return 270
	default:
		return 0
	}
}

// rotateClockwise rotates by the given positive clockwise angle. imaging's
// fixed-angle helpers rotate counter-clockwise, hence the swapped cases.
func rotateClockwise(img image.Image, degrees int) image.Image {
	switch degrees {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
