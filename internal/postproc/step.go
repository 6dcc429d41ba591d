package postproc

import "context"

// Step is one pipeline stage. Apply returns either the input bitmap unchanged
// (no adjustment needed), a freshly derived bitmap, or an error for conditions
// that leave the frame unusable. Returning nil without an error is a bug.
//
// A step never releases its input; the PostProcessor releases the predecessor
// the moment a stage hands back a replacement.
type Step interface {
	Name() string
	Apply(ctx context.Context, in *Bitmap) (*Bitmap, error)
}

// FormatNormalizeStep marks the point in the default pipeline where the frame
// is in a pipeline-compatible in-memory representation. Decoding already
// produces such a representation, so this always returns its input; it exists
// so caller-supplied steps can be ordered against it without special-casing
// the first stage.
type FormatNormalizeStep struct{}

func (FormatNormalizeStep) Name() string { return "format_normalize" }

func (FormatNormalizeStep) Apply(_ context.Context, in *Bitmap) (*Bitmap, error) {
	return in, nil
}
