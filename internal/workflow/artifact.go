package workflow

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
)

// ArtifactOptions controls how finalized images are encoded.
type ArtifactOptions struct {
	// RotateDegrees is 0 or 180.
	RotateDegrees int
	JPEGQuality   int
}

// DefaultArtifactOptions rotates 180 degrees and encodes at quality 75.
func DefaultArtifactOptions() ArtifactOptions {
	return ArtifactOptions{RotateDegrees: 180, JPEGQuality: 75}
}

// WriteArtifact encodes img to a new file at path and syncs it. An existing
// file is never overwritten. It returns the encoded size.
func WriteArtifact(path string, img image.Image, opts ArtifactOptions) (int64, error) {
	if opts.RotateDegrees == 180 {
		img = Rotate180(img)
	} else if opts.RotateDegrees != 0 {
		return 0, fmt.Errorf("unsupported rotation %d", opts.RotateDegrees)
	}
	quality := opts.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("encode jpeg: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("sync: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Rotate180 returns a copy of img turned upside down.
func Rotate180(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	w, h := b.Dx(), b.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(w-1-x, h-1-y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
