package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultOutputDir         = "~/leafcam/captured_images"
	defaultExpertDir         = "~/leafcam/expert_annotations"
	defaultSocket            = "/run/leafcam/leafcamd.sock"
	defaultSettleDelayMs     = 1000
	defaultPreviewIntervalMs = 50
	defaultPreviewWidth      = 320
	defaultPreviewHeight     = 440
	defaultInputSize         = 224
	defaultRotateDegrees     = 180
	defaultJPEGQuality       = 75
)

// Default returns the built-in configuration before any file is applied.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			ExpertDir: defaultExpertDir,
			LogDir:    defaultLogDir(),
		},
		Sidecar: Sidecar{Socket: defaultSocket},
		Capture: Capture{
			SettleDelayMs:     defaultSettleDelayMs,
			PreviewIntervalMs: defaultPreviewIntervalMs,
			PreviewWidth:      defaultPreviewWidth,
			PreviewHeight:     defaultPreviewHeight,
		},
		Model: Model{
			InputWidth:  defaultInputSize,
			InputHeight: defaultInputSize,
		},
		Artifact: Artifact{
			RotateDegrees: defaultRotateDegrees,
			JPEGQuality:   defaultJPEGQuality,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultLogDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "leafcam")
	}
	return "~/.local/state/leafcam"
}
