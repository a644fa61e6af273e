package ui

import (
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

// upperHalf draws the top pixel in the foreground and the bottom pixel in
// the background, giving two image rows per terminal row.
const upperHalf = "▀"

// FrameSize returns the terminal cell size that fits img inside maxCols by
// maxRows while keeping its aspect ratio.
func FrameSize(img image.Image, maxCols, maxRows int) (cols, rows int) {
	if img == nil || maxCols <= 0 || maxRows <= 0 {
		return 0, 0
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return 0, 0
	}
	cols = maxCols
	// Each row holds two pixels.
	rows = (cols*b.Dy()/b.Dx() + 1) / 2
	if rows > maxRows {
		rows = maxRows
		cols = rows * 2 * b.Dx() / b.Dy()
	}
	return max(cols, 1), max(rows, 1)
}

// RenderFrame draws img as colored half blocks within maxCols by maxRows.
func RenderFrame(img image.Image, maxCols, maxRows int) string {
	cols, rows := FrameSize(img, maxCols, maxRows)
	if cols == 0 {
		return ""
	}
	dst := image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var sb strings.Builder
	for y := 0; y < rows; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < cols; x++ {
			top := dst.RGBAAt(x, 2*y)
			bottom := dst.RGBAAt(x, 2*y+1)
			cell := lipgloss.NewStyle().
				Foreground(lipgloss.Color(hex(top.R, top.G, top.B))).
				Background(lipgloss.Color(hex(bottom.R, bottom.G, bottom.B)))
			sb.WriteString(cell.Render(upperHalf))
		}
	}
	return sb.String()
}

func hex(r, g, b uint8) string {
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}
