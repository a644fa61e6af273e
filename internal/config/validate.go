package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.ExpertDir, err = expandPath(strings.TrimSpace(c.Paths.ExpertDir)); err != nil {
		return fmt.Errorf("paths.expert_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Sidecar.Socket, err = expandPath(strings.TrimSpace(c.Sidecar.Socket)); err != nil {
		return fmt.Errorf("sidecar.socket: %w", err)
	}

	if c.Capture.PreviewWidth <= 0 {
		c.Capture.PreviewWidth = defaultPreviewWidth
	}
	if c.Capture.PreviewHeight <= 0 {
		c.Capture.PreviewHeight = defaultPreviewHeight
	}
	if c.Model.InputWidth <= 0 {
		c.Model.InputWidth = defaultInputSize
	}
	if c.Model.InputHeight <= 0 {
		c.Model.InputHeight = defaultInputSize
	}
	if c.Artifact.JPEGQuality == 0 {
		c.Artifact.JPEGQuality = defaultJPEGQuality
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir is required")
	}
	if c.Paths.ExpertDir == "" {
		return errors.New("paths.expert_dir is required")
	}
	if filepath.Clean(c.Paths.OutputDir) == filepath.Clean(c.Paths.ExpertDir) {
		return errors.New("paths.expert_dir must differ from paths.output_dir")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir is required")
	}
	if c.Sidecar.Socket == "" {
		return errors.New("sidecar.socket is required")
	}
	if c.Capture.SettleDelayMs < 0 {
		return errors.New("capture.settle_delay_ms must be >= 0")
	}
	if c.Capture.PreviewIntervalMs <= 0 {
		return errors.New("capture.preview_interval_ms must be positive")
	}
	switch c.Artifact.RotateDegrees {
	case 0, 180:
	default:
		return fmt.Errorf("artifact.rotate_degrees must be 0 or 180, got %d", c.Artifact.RotateDegrees)
	}
	if c.Artifact.JPEGQuality < 1 || c.Artifact.JPEGQuality > 100 {
		return fmt.Errorf("artifact.jpeg_quality must be between 1 and 100, got %d", c.Artifact.JPEGQuality)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
