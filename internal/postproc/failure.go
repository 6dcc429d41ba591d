package postproc

import (
	"errors"
	"fmt"
)

// FailureKind discriminates where a capture was lost. Exactly one kind is
// attached to every error that crosses the PostProcessor boundary.
type FailureKind string

const (
	KindDecode FailureKind = "decode_failed"
	KindStep   FailureKind = "step_failed"
	KindEncode FailureKind = "encode_failed"
)

// Failure wraps the underlying cause with the pipeline position it occurred
// at. Step is empty for decode and encode failures.
type Failure struct {
	Kind FailureKind
	Step string
	Err  error
}

func (f *Failure) Error() string {
	if f.Step != "" {
		return fmt.Sprintf("%s step=%s: %v", f.Kind, f.Step, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func failDecode(err error) error {
	return &Failure{Kind: KindDecode, Err: err}
}

func failStep(step string, err error) error {
	return &Failure{Kind: KindStep, Step: step, Err: err}
}

func failEncode(err error) error {
	return &Failure{Kind: KindEncode, Err: err}
}

// KindOf extracts the failure kind from a processing error. The second return
// is false for errors that did not originate in the pipeline.
func KindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
