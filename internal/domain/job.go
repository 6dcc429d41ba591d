package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	JobStatusCreated    = "created"
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusSucceeded  = "succeeded"
	JobStatusFailed     = "failed"

	SourceTypeLocalFile   = "local_file"
	SourceTypeS3Presigned = "s3_presigned"

	FacingFront = "front"
	FacingBack  = "back"

	StepKindWatermark = "watermark"
	StepKindDownscale = "downscale"
)

// CreateCaptureRequest registers one captured frame for post-processing.
// Orientation is read from the frame's own embedded metadata; the only
// capture context the pipeline needs from the caller is which sensor produced
// the frame.
type CreateCaptureRequest struct {
	SourceType string     `json:"source_type"`
	Facing     string     `json:"facing"`
	Quality    int        `json:"quality,omitempty"`
	WebhookURL string     `json:"webhook_url,omitempty"`
	ObjectKey  string     `json:"object_key,omitempty"`
	Steps      []StepSpec `json:"steps,omitempty"`
}

// StepSpec describes an extra processing step appended behind the default
// orientation pipeline. Width applies to downscale; Text/Opacity/Gravity to
// watermark.
type StepSpec struct {
	Kind    string  `json:"kind"`
	Width   int     `json:"width,omitempty"`
	Text    string  `json:"text,omitempty"`
	Opacity float64 `json:"opacity,omitempty"`
	Gravity string  `json:"gravity,omitempty"`
}

type CaptureJob struct {
	ID         string
	UserID     string
	Status     string
	SourceType string
	Facing     string
	Quality    int
	WebhookURL string
	Steps      []StepSpec
	ObjectKey  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r CreateCaptureRequest) Validate() error {
	sourceType := strings.ToLower(strings.TrimSpace(r.SourceType))
	if sourceType == "" {
		return errors.New("source_type is required")
	}
	if sourceType != SourceTypeLocalFile && sourceType != SourceTypeS3Presigned {
		return fmt.Errorf("unsupported source_type: %s", r.SourceType)
	}
	if sourceType == SourceTypeLocalFile && strings.TrimSpace(r.ObjectKey) == "" {
		return errors.New("object_key is required for source_type=local_file")
	}

	facing := strings.ToLower(strings.TrimSpace(r.Facing))
	if facing != FacingFront && facing != FacingBack {
		return fmt.Errorf("facing must be %q or %q", FacingFront, FacingBack)
	}

	if r.Quality < 0 || r.Quality > 100 {
		return fmt.Errorf("quality must be within 0-100, got %d", r.Quality)
	}

	for i, step := range r.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return nil
}

func (s StepSpec) Validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Kind)) {
	case StepKindWatermark:
		if strings.TrimSpace(s.Text) == "" {
			return errors.New("watermark step requires text")
		}
	case StepKindDownscale:
		if s.Width <= 0 {
			return errors.New("downscale step requires width > 0")
		}
	case "":
		return errors.New("step kind is required")
	default:
		return fmt.Errorf("unsupported step kind: %s", s.Kind)
	}
	return nil
}

// IsFrontFacing reports whether the frame came from the user-facing sensor,
// which delivers mirrored pixels.
func (j CaptureJob) IsFrontFacing() bool {
	return strings.EqualFold(j.Facing, FacingFront)
}
