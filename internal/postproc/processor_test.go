package postproc

import (
	"context"
	"errors"
	"testing"
)

func TestProcessIdentityPipelineRoundTrips(t *testing.T) {
	raw := buildTestPNG(t, 240, 120)

	p := New(raw, false)
	result, err := p.Process(context.Background(), raw)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(result.Data) == 0 {
		t.Fatal("expected non-empty output")
	}
	if result.Width != 240 || result.Height != 120 {
		t.Fatalf("expected 240x120, got %dx%d", result.Width, result.Height)
	}
	if result.Quality != DefaultJPEGQuality {
		t.Fatalf("expected default quality %d, got %d", DefaultJPEGQuality, result.Quality)
	}

	decoded, err := Decode(result.Data, nil)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if decoded.Width() != 240 || decoded.Height() != 120 {
		t.Fatalf("output dimensions drifted: %dx%d", decoded.Width(), decoded.Height())
	}
}

func TestProcessShortCircuitsOnStepFailure(t *testing.T) {
	raw := buildTestPNG(t, 16, 16)
	p := New(raw, false)

	var firstRan, thirdRan bool
	mustAddStep(t, p, StepFunc{StepName: "first", Fn: func(_ context.Context, in *Bitmap) (*Bitmap, error) {
		firstRan = true
		return in, nil
	}})
	mustAddStep(t, p, StepFunc{StepName: "second", Fn: func(_ context.Context, _ *Bitmap) (*Bitmap, error) {
		return nil, errors.New("forced failure")
	}})
	mustAddStep(t, p, StepFunc{StepName: "third", Fn: func(_ context.Context, in *Bitmap) (*Bitmap, error) {
		thirdRan = true
		return in, nil
	}})

	_, err := p.Process(context.Background(), raw)
	if err == nil {
		t.Fatal("expected process to fail")
	}
	if !firstRan {
		t.Fatal("expected first step to run")
	}
	if thirdRan {
		t.Fatal("step after the failing one must never run")
	}

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *Failure, got %T", err)
	}
	if failure.Kind != KindStep {
		t.Fatalf("expected step failure kind, got %s", failure.Kind)
	}
	if failure.Step != "second" {
		t.Fatalf("expected failure attributed to step second, got %q", failure.Step)
	}
}

func TestProcessEmptyInputFailsBeforeAnyStep(t *testing.T) {
	raw := buildTestPNG(t, 16, 16)
	p := New(raw, false)

	var stepRan bool
	mustAddStep(t, p, StepFunc{StepName: "observer", Fn: func(_ context.Context, in *Bitmap) (*Bitmap, error) {
		stepRan = true
		return in, nil
	}})

	_, err := p.Process(context.Background(), nil)
	if err == nil {
		t.Fatal("expected decode failure")
	}
	if kind, _ := KindOf(err); kind != KindDecode {
		t.Fatalf("expected decode failure kind, got %v", kind)
	}
	if stepRan {
		t.Fatal("no step may run when decoding fails")
	}
}

func TestProcessFrontFacingMirrorsFrame(t *testing.T) {
	raw := markerPNG(t)

	p := New(raw, true, WithQuality(95))
	result, err := p.Process(context.Background(), raw)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	decoded, err := Decode(result.Data, nil)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}

	// JPEG is lossy, so check dominant channels rather than exact values.
	top := decoded.Image().At(0, 0)
	r, _, b, _ := top.RGBA()
	if b <= r {
		t.Fatalf("expected blue-dominant top row after mirroring, got r=%d b=%d", r, b)
	}
}

func TestProcessKeepsAtMostTwoLiveBitmaps(t *testing.T) {
	raw := buildTestPNG(t, 64, 64)
	tracker := &countingTracker{}

	// Front-facing forces the EXIF step to derive a replacement; the extra
	// steps each derive one more.
	p := New(raw, true, WithTracker(tracker))
	mustAddStep(t, p, DownscaleStep{Width: 32})
	mustAddStep(t, p, WatermarkStep{Text: "framepost"})

	if _, err := p.Process(context.Background(), raw); err != nil {
		t.Fatalf("process: %v", err)
	}

	if tracker.allocations < 3 {
		t.Fatalf("expected the pipeline to allocate replacement bitmaps, got %d allocations", tracker.allocations)
	}
	if tracker.maxLive > 2 {
		t.Fatalf("memory bound violated: %d bitmaps live at once", tracker.maxLive)
	}
	if tracker.live != 0 {
		t.Fatalf("expected all bitmaps released after process, %d still live", tracker.live)
	}
}

func TestProcessInstanceIsReusable(t *testing.T) {
	raw := buildTestPNG(t, 32, 32)
	p := New(raw, false)

	for i := 0; i < 3; i++ {
		if _, err := p.Process(context.Background(), raw); err != nil {
			t.Fatalf("process run %d: %v", i+1, err)
		}
	}
}

func TestProcessCancelledContextStopsPipeline(t *testing.T) {
	raw := buildTestPNG(t, 32, 32)
	p := New(raw, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, raw)
	if err == nil {
		t.Fatal("expected failure for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

func TestAddStepRejectsNil(t *testing.T) {
	p := New(buildTestPNG(t, 8, 8), false)
	if err := p.AddStep(nil); err == nil {
		t.Fatal("expected error for nil step")
	}
}

func mustAddStep(t *testing.T, p *PostProcessor, step Step) {
	t.Helper()

	if err := p.AddStep(step); err != nil {
		t.Fatalf("add step %s: %v", step.Name(), err)
	}
}

type countingTracker struct {
	live        int
	maxLive     int
	allocations int
}

func (c *countingTracker) Allocated(_ *Bitmap) {
	c.live++
	c.allocations++
	if c.live > c.maxLive {
		c.maxLive = c.live
	}
}

func (c *countingTracker) Released(_ *Bitmap) {
	c.live--
}
