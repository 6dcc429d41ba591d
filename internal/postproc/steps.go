package postproc

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DownscaleStep shrinks the frame to a target width, preserving aspect ratio.
// A target equal to the current width is a no-op and returns the input bitmap
// unchanged.
type DownscaleStep struct {
	Width int
}

func (s DownscaleStep) Name() string { return "downscale" }

func (s DownscaleStep) Apply(_ context.Context, in *Bitmap) (*Bitmap, error) {
	if in == nil || in.Released() {
		return nil, errors.New("input bitmap has been released")
	}
	if s.Width <= 0 {
		return nil, errors.New("downscale requires width > 0")
	}
	if s.Width >= in.Width() {
		return in, nil
	}

	resized := imaging.Resize(in.Image(), s.Width, 0, imaging.Lanczos)
	return in.Derive(resized), nil
}

// WatermarkStep stamps translucent text onto the frame.
type WatermarkStep struct {
	Text    string
	Opacity float64
	Gravity string
}

func (s WatermarkStep) Name() string { return "watermark" }

func (s WatermarkStep) Apply(_ context.Context, in *Bitmap) (*Bitmap, error) {
	if in == nil || in.Released() {
		return nil, errors.New("input bitmap has been released")
	}

	text := strings.TrimSpace(s.Text)
	if text == "" {
		return nil, errors.New("watermark requires text")
	}

	opacity := s.Opacity
	if opacity <= 0 {
		opacity = 0.65
	}
	if opacity > 1 {
		opacity = 1
	}

	src := in.Image()
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)

	face := basicfont.Face7x13
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := metrics.Height.Ceil()

	drawer := &font.Drawer{
		Dst:  dst,
		Face: face,
	}
	width := drawer.MeasureString(text).Ceil()

	x, baselineY := watermarkPosition(dst.Bounds(), width, height, ascent, s.Gravity)

	alpha := uint8(math.Round(opacity * 255))
	drawer.Src = image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: alpha})
	drawer.Dot = fixed.P(x, baselineY)
	drawer.DrawString(text)

	return in.Derive(dst), nil
}

func watermarkPosition(bounds image.Rectangle, textWidth, textHeight, ascent int, gravity string) (int, int) {
	const pad = 12

	minX, minY := bounds.Min.X, bounds.Min.Y
	maxX, maxY := bounds.Max.X, bounds.Max.Y
	availW := maxX - minX
	availH := maxY - minY

	leftX := minX + pad
	centerX := minX + (availW-textWidth)/2
	rightX := maxX - textWidth - pad

	topBaseline := minY + pad + ascent
	centerBaseline := minY + (availH-textHeight)/2 + ascent
	bottomBaseline := maxY - pad

	gravity = strings.ToLower(strings.TrimSpace(gravity))
	switch gravity {
	case "northwest":
		return clamp(leftX, minX, maxX), clamp(topBaseline, minY+ascent, maxY)
	case "north":
		return clamp(centerX, minX, maxX), clamp(topBaseline, minY+ascent, maxY)
	case "northeast":
		return clamp(rightX, minX, maxX), clamp(topBaseline, minY+ascent, maxY)
	case "west":
		return clamp(leftX, minX, maxX), clamp(centerBaseline, minY+ascent, maxY)
	case "center":
		return clamp(centerX, minX, maxX), clamp(centerBaseline, minY+ascent, maxY)
	case "east":
		return clamp(rightX, minX, maxX), clamp(centerBaseline, minY+ascent, maxY)
	case "southwest":
		return clamp(leftX, minX, maxX), clamp(bottomBaseline, minY+ascent, maxY)
	case "south":
		return clamp(centerX, minX, maxX), clamp(bottomBaseline, minY+ascent, maxY)
	default:
		return clamp(rightX, minX, maxX), clamp(bottomBaseline, minY+ascent, maxY)
	}
}

// StepFunc adapts a function to the Step interface.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context, in *Bitmap) (*Bitmap, error)
}

func (s StepFunc) Name() string {
	if s.StepName == "" {
		return "func"
	}
	return s.StepName
}

func (s StepFunc) Apply(ctx context.Context, in *Bitmap) (*Bitmap, error) {
	if s.Fn == nil {
		return nil, fmt.Errorf("step %s has no function", s.Name())
	}
	return s.Fn(ctx, in)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
