package daemon

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func liveSocket(t *testing.T) string {
	t.Helper()
	sockPath := os.Getenv("LEAFCAM_SOCKET")
	if sockPath == "" {
		sockPath = DefaultSocketPath
	}
	if _, err := os.Stat(sockPath); os.IsNotExist(err) {
		t.Skip("sidecar not running (no socket at", sockPath, ")")
	}
	return sockPath
}

// TestLiveSidecar exercises status, frame, and capture against a running
// leafcamd. Uses two connections, matching how a session runs.
func TestLiveSidecar(t *testing.T) {
	sockPath := liveSocket(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	preview, control, err := ConnectPair(ctx, sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer preview.Close()
	defer control.Close()

	resp, err := control.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	fmt.Printf("Status: camera=%q model=%q labels=%v\n", resp.Camera, resp.Model, resp.Labels)

	img, err := NewCamera(preview).Frame(ctx)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	fmt.Printf("Frame: %v\n", img.Bounds())

	path := t.TempDir() + "/test_1.jpg"
	if err := NewCamera(control).CaptureToFile(ctx, path); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("capture not written: %v", err)
	}
}
