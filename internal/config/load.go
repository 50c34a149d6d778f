package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig []byte

// projectConfigFile is looked up in the working directory when no per-user
// configuration exists.
const projectConfigFile = "fluxkit.toml"

// Load reads the configuration at path, or the first of the per-user and
// project files that exists when path is empty. Defaults fill anything the
// file leaves out, FLUXKIT_* environment variables override the file, and
// the result is normalised and validated. It also returns the path it
// settled on and whether a file was actually read there.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// locate picks the configuration file. An explicit path is used as given even
// when missing; otherwise the per-user file wins over the project file and
// the per-user path is reported when neither exists.
func locate(path string) (string, bool, error) {
	candidates := []string{path}
	if path == "" {
		candidates = []string{defaultConfigPath, projectConfigFile}
	}
	var first string
	for i, candidate := range candidates {
		resolved, err := ExpandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if i == 0 {
			first = resolved
		}
		info, err := os.Stat(resolved)
		switch {
		case err == nil && !info.IsDir():
			return resolved, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist) && path != "":
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return first, false, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	target, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(target, sampleConfig, 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
