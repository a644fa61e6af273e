package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest records how a session was configured.
type Manifest struct {
	ID           string    `yaml:"id"`
	Mode         Mode      `yaml:"mode"`
	StartedAt    time.Time `yaml:"started_at"`
	OutputDir    string    `yaml:"output_dir"`
	ExpertDir    string    `yaml:"expert_dir"`
	ResultLog    string    `yaml:"result_log"`
	FirstTrialID int       `yaml:"first_trial"`
}

// ManifestName returns the manifest file name for a session id.
func ManifestName(id string) string {
	return "session-" + id + ".yaml"
}

func writeManifest(s *Session) (string, error) {
	m := Manifest{
		ID:           s.id,
		Mode:         s.mode,
		StartedAt:    s.startedAt,
		OutputDir:    s.outputDir,
		ExpertDir:    s.expertDir,
		ResultLog:    s.log.Path(),
		FirstTrialID: s.firstTrialID,
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(s.outputDir, ManifestName(s.id))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// ReadManifest loads a manifest written by Open.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}
