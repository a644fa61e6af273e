package daemon

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"path/filepath"

	"github.com/leafcam/leafcam/internal/classify"
)

// Camera adapts a sidecar connection to the capture and preview interfaces.
type Camera struct {
	client *Client
}

// NewCamera wraps client.
func NewCamera(client *Client) *Camera {
	return &Camera{client: client}
}

// Frame fetches the current preview frame with the device transform applied.
func (c *Camera) Frame(ctx context.Context) (image.Image, error) {
	resp, err := c.client.Do(ctx, Command{Cmd: CmdFrame})
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Frame)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// CaptureToFile asks the sidecar to write a full-resolution still to path.
// The sidecar shares the filesystem, so the path is sent absolute.
func (c *Camera) CaptureToFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve capture path: %w", err)
	}
	_, err = c.client.Do(ctx, Command{Cmd: CmdCapture, Path: abs})
	return err
}

// Engine adapts a sidecar connection to classify.Engine.
type Engine struct {
	client *Client
}

// NewEngine wraps client.
func NewEngine(client *Client) *Engine {
	return &Engine{client: client}
}

// Invoke sends the tensor once and returns the raw probability vector.
func (e *Engine) Invoke(ctx context.Context, input classify.Tensor) ([]float32, error) {
	resp, err := e.client.Do(ctx, Command{
		Cmd:    CmdInvoke,
		Shape:  input.Shape,
		Tensor: EncodeTensor(input.Data),
	})
	if err != nil {
		return nil, err
	}
	return resp.Probabilities, nil
}

// EncodeTensor packs values as little-endian float32 and base64-encodes them.
func EncodeTensor(values []float32) string {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeTensor reverses EncodeTensor.
func DecodeTensor(s string) ([]float32, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode tensor: %w", err)
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("decode tensor: %d bytes is not a multiple of 4", len(buf))
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return out, nil
}
