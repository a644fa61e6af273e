package ui

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/leafcam/leafcam/internal/severity"
)

func TestFrameSizeKeepsAspect(t *testing.T) {
	// 320x440 portrait preview.
	img := image.NewRGBA(image.Rect(0, 0, 320, 440))
	cols, rows := FrameSize(img, 40, 100)
	if cols != 40 || rows != 28 {
		t.Errorf("size = %dx%d, want 40x28", cols, rows)
	}

	cols, rows = FrameSize(img, 40, 10)
	if rows != 10 || cols != 14 {
		t.Errorf("height-limited size = %dx%d, want 14x10", cols, rows)
	}
}

func TestFrameSizeDegenerate(t *testing.T) {
	if c, r := FrameSize(nil, 10, 10); c != 0 || r != 0 {
		t.Errorf("nil image size = %dx%d", c, r)
	}
	if c, r := FrameSize(image.NewRGBA(image.Rect(0, 0, 4, 4)), 0, 10); c != 0 || r != 0 {
		t.Errorf("zero width size = %dx%d", c, r)
	}
}

func TestRenderFrameShape(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	out := RenderFrame(img, 8, 8)
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4", len(lines))
	}
	for i, l := range lines {
		if w := lipgloss.Width(l); w != 8 {
			t.Errorf("line %d width = %d, want 8", i, w)
		}
	}
	if RenderFrame(nil, 8, 8) != "" {
		t.Error("nil frame should render empty")
	}
}

func TestHex(t *testing.T) {
	if got := hex(255, 8, 0); got != "#FF0800" {
		t.Errorf("hex = %q", got)
	}
}

func TestVerdictStyle(t *testing.T) {
	if VerdictStyle(severity.Correct).GetForeground() != CorrectStyle.GetForeground() {
		t.Error("correct verdict should use CorrectStyle")
	}
	if VerdictStyle(severity.NotAnnotated).GetForeground() != DimStyle.GetForeground() {
		t.Error("unannotated verdict should be dim")
	}
}
