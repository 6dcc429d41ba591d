package postproc

import "image"

// Tracker observes bitmap lifetimes. The worker uses it for gauge metrics and
// tests use it to assert that at most two decoded frames are live at once.
type Tracker interface {
	Allocated(b *Bitmap)
	Released(b *Bitmap)
}

// Bitmap is a decoded pixel grid with a single owner. Whichever stage holds
// the bitmap owns it; the pipeline releases a bitmap as soon as a stage
// produces a replacement so peak memory stays at two frames, not one per step.
type Bitmap struct {
	img      image.Image
	released bool
	tracker  Tracker
}

// NewBitmap wraps a decoded image. tracker may be nil.
func NewBitmap(img image.Image, tracker Tracker) *Bitmap {
	b := &Bitmap{img: img, tracker: tracker}
	if tracker != nil {
		tracker.Allocated(b)
	}
	return b
}

// Derive allocates the successor bitmap for a transform result. The new
// bitmap reports to the same tracker; the caller remains responsible for
// releasing the receiver.
func (b *Bitmap) Derive(img image.Image) *Bitmap {
	return NewBitmap(img, b.tracker)
}

// Image returns the pixel data, or nil after Release.
func (b *Bitmap) Image() image.Image {
	if b.released {
		return nil
	}
	return b.img
}

func (b *Bitmap) Width() int {
	if b.released {
		return 0
	}
	return b.img.Bounds().Dx()
}

func (b *Bitmap) Height() int {
	if b.released {
		return 0
	}
	return b.img.Bounds().Dy()
}

// Release drops the pixel buffer reference. Idempotent.
func (b *Bitmap) Release() {
	if b.released {
		return
	}
	b.released = true
	b.img = nil
	if b.tracker != nil {
		b.tracker.Released(b)
	}
}

// Released reports whether ownership of the pixel buffer has been given up.
func (b *Bitmap) Released() bool {
	return b.released
}
