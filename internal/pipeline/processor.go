package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/framepost/framepost/internal/domain"
	"github.com/framepost/framepost/internal/postproc"
)

const SourceTypeLocalFile = domain.SourceTypeLocalFile

const outputFilename = "processed.jpeg"

var (
	ErrUnsupportedSourceType = errors.New("unsupported source_type")
	ErrInvalidStepKind       = errors.New("invalid step kind")
)

// Request carries everything the worker needs to post-process one captured
// frame: where the raw bytes live, which sensor produced them, and any extra
// steps appended behind the default orientation pipeline.
type Request struct {
	JobID      string
	SourceType string
	ObjectKey  string
	Facing     string
	Quality    int
	Steps      []domain.StepSpec
}

type Output struct {
	Format  string
	Path    string
	Bytes   int
	Width   int
	Height  int
	Quality int
	Success bool
}

type Result struct {
	Output      Output
	SourceBytes int
}

type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

type Emitter interface {
	Emit(ctx context.Context, req Request, data []byte, width, height, quality int) (Output, error)
}

// Processor runs fetch -> post-process -> emit for one capture request. The
// post-processing itself is postproc's job; this layer only moves bytes in
// and out.
type Processor struct {
	fetcher Fetcher
	emitter Emitter
	logger  *log.Logger
}

func NewLocalProcessor(outputDir string, logger *log.Logger) (*Processor, error) {
	if strings.TrimSpace(outputDir) == "" {
		return nil, errors.New("output directory is required")
	}
	return &Processor{
		fetcher: LocalFileFetcher{},
		emitter: LocalFileEmitter{OutputDir: outputDir},
		logger:  logger,
	}, nil
}

func NewObjectStoreProcessor(fetcher Fetcher, emitter Emitter, logger *log.Logger) (*Processor, error) {
	if fetcher == nil || emitter == nil {
		return nil, errors.New("fetcher and emitter are required")
	}
	return &Processor{fetcher: fetcher, emitter: emitter, logger: logger}, nil
}

func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.JobID) == "" {
		return Result{}, errors.New("job_id is required")
	}

	raw, err := p.fetcher.Fetch(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch stage: %w", err)
	}

	processor := postproc.New(
		raw,
		strings.EqualFold(req.Facing, domain.FacingFront),
		postproc.WithQuality(req.Quality),
		postproc.WithLogger(p.logger),
	)
	for _, spec := range req.Steps {
		step, err := stepFromSpec(spec)
		if err != nil {
			return Result{}, err
		}
		if err := processor.AddStep(step); err != nil {
			return Result{}, fmt.Errorf("configure step %s: %w", spec.Kind, err)
		}
	}

	processed, err := processor.Process(ctx, raw)
	if err != nil {
		return Result{}, fmt.Errorf("transform stage: %w", err)
	}

	written, err := p.emitter.Emit(ctx, req, processed.Data, processed.Width, processed.Height, processed.Quality)
	if err != nil {
		return Result{}, fmt.Errorf("emit stage: %w", err)
	}

	return Result{Output: written, SourceBytes: len(raw)}, nil
}

func stepFromSpec(spec domain.StepSpec) (postproc.Step, error) {
	switch strings.ToLower(strings.TrimSpace(spec.Kind)) {
	case domain.StepKindDownscale:
		return postproc.DownscaleStep{Width: spec.Width}, nil
	case domain.StepKindWatermark:
		return postproc.WatermarkStep{
			Text:    spec.Text,
			Opacity: spec.Opacity,
			Gravity: spec.Gravity,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStepKind, spec.Kind)
	}
}

type LocalFileFetcher struct{}

func (LocalFileFetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if !strings.EqualFold(req.SourceType, SourceTypeLocalFile) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSourceType, req.SourceType)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(req.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("read capture file %s: %w", req.ObjectKey, err)
	}
	return data, nil
}

type LocalFileEmitter struct {
	OutputDir string
}

func (e LocalFileEmitter) Emit(_ context.Context, req Request, data []byte, width, height, quality int) (Output, error) {
	if strings.TrimSpace(e.OutputDir) == "" {
		return Output{}, errors.New("output directory is required")
	}

	jobDir := filepath.Join(e.OutputDir, sanitizePathToken(req.JobID))
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return Output{}, fmt.Errorf("create output dir: %w", err)
	}

	fullPath := filepath.Join(jobDir, outputFilename)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return Output{}, fmt.Errorf("write output file: %w", err)
	}

	return Output{
		Format:  "jpeg",
		Path:    fullPath,
		Bytes:   len(data),
		Width:   width,
		Height:  height,
		Quality: quality,
		Success: true,
	}, nil
}

func sanitizePathToken(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return "unknown"
	}

	var b strings.Builder
	b.Grow(len(in))
	for _, r := range in {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
