// Package postproc turns a raw captured camera frame into a correctly
// oriented, JPEG-encoded image. The pipeline shape follows the capture
// contract: decode -> ordered transform steps -> encode, with the EXIF
// orientation fix and a format-normalization placeholder installed by default
// and caller-supplied steps appended behind them.
package postproc

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
)

// ErrBusy is returned when Process is invoked concurrently on one instance.
// Instances are reusable sequentially; concurrent captures need one
// PostProcessor each.
var ErrBusy = errors.New("postproc: process already running on this instance")

// Result is the encoded output handed back to the caller. Ownership of Data
// transfers on return.
type Result struct {
	Data    []byte
	Width   int
	Height  int
	Quality int
}

type Option func(*PostProcessor)

// WithQuality sets the JPEG encode quality. Values outside 1-100 fall back to
// DefaultJPEGQuality.
func WithQuality(quality int) Option {
	return func(p *PostProcessor) {
		if quality > 0 && quality <= 100 {
			p.quality = quality
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(p *PostProcessor) { p.logger = logger }
}

// WithTracker wires an allocation tracker through every bitmap the pipeline
// touches.
func WithTracker(tracker Tracker) Option {
	return func(p *PostProcessor) { p.tracker = tracker }
}

// PostProcessor owns the ordered step pipeline for one capture source. Steps
// are configured up front, then Process runs them top to bottom on the calling
// goroutine with no suspension points.
type PostProcessor struct {
	steps   []Step
	quality int
	logger  *log.Logger
	tracker Tracker
	running atomic.Bool
}

// New builds the default pipeline for a captured frame: the EXIF adjustment
// step reading orientation from raw, then format normalization. frontFacing
// marks frames from the user-facing sensor, which arrive mirrored.
func New(raw []byte, frontFacing bool, opts ...Option) *PostProcessor {
	p := &PostProcessor{quality: DefaultJPEGQuality}
	for _, opt := range opts {
		opt(p)
	}
	p.steps = []Step{
		NewExifAdjustStep(raw, frontFacing, p.logger),
		FormatNormalizeStep{},
	}
	return p
}

// AddStep appends a caller-supplied step to the end of the pipeline. Valid
// only between Process invocations.
func (p *PostProcessor) AddStep(step Step) error {
	if step == nil {
		return errors.New("postproc: nil step")
	}
	if p.running.Load() {
		return ErrBusy
	}
	p.steps = append(p.steps, step)
	return nil
}

// Process decodes raw, applies every step in insertion order, and encodes the
// final bitmap to JPEG. It short-circuits on the first failure and reports it
// as a *Failure carrying the decode/step/encode kind; no partial output is
// ever returned.
func (p *PostProcessor) Process(ctx context.Context, raw []byte) (Result, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer p.running.Store(false)

	bitmap, err := Decode(raw, p.tracker)
	if err != nil {
		return Result{}, err
	}

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			bitmap.Release()
			return Result{}, failStep(step.Name(), ctx.Err())
		default:
		}

		out, err := step.Apply(ctx, bitmap)
		if err != nil {
			bitmap.Release()
			return Result{}, failStep(step.Name(), err)
		}
		if out == nil {
			bitmap.Release()
			return Result{}, failStep(step.Name(), errors.New("step returned no bitmap"))
		}
		if out != bitmap {
			// Ownership transfer: drop the predecessor immediately so peak
			// memory stays at two frames regardless of pipeline length.
			bitmap.Release()
			bitmap = out
		}
	}

	width, height := bitmap.Width(), bitmap.Height()
	data, err := EncodeJPEG(bitmap, p.quality)
	bitmap.Release()
	if err != nil {
		return Result{}, err
	}

	return Result{Data: data, Width: width, Height: height, Quality: p.quality}, nil
}

// Quality reports the configured JPEG encode quality.
func (p *PostProcessor) Quality() int {
	return p.quality
}
