// Package classify turns a captured image into a labeled, confidence-scored
// severity prediction using an opaque inference engine.
//
// The adapter resizes the image to the engine's fixed input geometry, encodes
// it as an RGB float32 tensor scaled to [0,1], invokes the engine exactly once,
// and applies an arg-max decision rule over the returned distribution. Ties
// resolve to the lowest index. Only the invoke step is timed.
package classify

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"golang.org/x/image/draw"

	"github.com/leafcam/leafcam/internal/severity"
)

const (
	DefaultInputWidth  = 224
	DefaultInputHeight = 224
)

// Tensor is a dense NHWC float32 input batch of size one.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Engine runs the trained model. Implementations must not retry.
type Engine interface {
	Invoke(ctx context.Context, input Tensor) ([]float32, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, input Tensor) ([]float32, error)

// Invoke calls f.
func (f EngineFunc) Invoke(ctx context.Context, input Tensor) ([]float32, error) {
	return f(ctx, input)
}

// Result is the normalized outcome of one classification.
type Result struct {
	Label             severity.Label
	Index             int
	ConfidencePercent float64
	ProcessingTime    time.Duration
	// Normalized is the resized RGB image fed to the engine.
	Normalized *image.RGBA
}

// ProcessingMillis returns ProcessingTime in fractional milliseconds.
func (r Result) ProcessingMillis() float64 {
	return float64(r.ProcessingTime) / float64(time.Millisecond)
}

// ErrEmptyOutput is returned when the engine yields no probabilities.
var ErrEmptyOutput = errors.New("classify: engine returned empty output")

// Adapter normalizes images and maps engine output to the severity taxonomy.
type Adapter struct {
	engine Engine
	width  int
	height int
	now    func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithInputSize overrides the engine input geometry.
func WithInputSize(width, height int) Option {
	return func(a *Adapter) {
		if width > 0 && height > 0 {
			a.width = width
			a.height = height
		}
	}
}

// WithClock overrides the clock used to time the invoke step.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAdapter constructs an Adapter around engine.
func NewAdapter(engine Engine, opts ...Option) *Adapter {
	a := &Adapter{
		engine: engine,
		width:  DefaultInputWidth,
		height: DefaultInputHeight,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// ClassifyFile decodes the image at path and classifies it.
func (a *Adapter) ClassifyFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Result{}, fmt.Errorf("decode image %s: %w", path, err)
	}
	return a.Classify(ctx, img)
}

// Classify runs one inference over img.
func (a *Adapter) Classify(ctx context.Context, img image.Image) (Result, error) {
	if a.engine == nil {
		return Result{}, errors.New("classify: no engine configured")
	}
	rgba := Normalize(img, a.width, a.height)
	input := ToTensor(rgba)

	start := a.now()
	probs, err := a.engine.Invoke(ctx, input)
	elapsed := a.now().Sub(start)
	if err != nil {
		return Result{}, fmt.Errorf("invoke engine: %w", err)
	}

	idx, p := ArgMax(probs)
	if idx < 0 {
		return Result{}, ErrEmptyOutput
	}
	if elapsed < 0 {
		elapsed = 0
	}

	return Result{
		Label:             severity.LabelForIndex(idx),
		Index:             idx,
		ConfidencePercent: float64(p) * 100,
		ProcessingTime:    elapsed,
		Normalized:        rgba,
	}, nil
}

// Normalize converts img to an RGBA image of the given size using bicubic
// resampling.
func Normalize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// ToTensor encodes an RGBA image as a [1,H,W,3] tensor in [0,1]. Alpha is
// dropped.
func ToTensor(img *image.RGBA) Tensor {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	data := make([]float32, 0, w*h*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			off := img.PixOffset(x, y)
			px := img.Pix[off : off+3 : off+3]
			data = append(data,
				float32(px[0])/255,
				float32(px[1])/255,
				float32(px[2])/255,
			)
		}
	}
	return Tensor{Shape: []int{1, h, w, 3}, Data: data}
}

// ArgMax returns the index and value of the largest element. The first
// (lowest) index wins ties. NaN entries never win. It returns -1 when no
// element is comparable.
func ArgMax(values []float32) (int, float32) {
	best := -1
	var bestVal float32
	for i, v := range values {
		if v != v {
			continue
		}
		if best < 0 || v > bestVal {
			best = i
			bestVal = v
		}
	}
	return best, bestVal
}
