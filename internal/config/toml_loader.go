package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// TomlConfigLoader handles .cloneval.toml discovery and decoding
type TomlConfigLoader struct{}

// NewTomlConfigLoader creates a new TOML configuration loader
func NewTomlConfigLoader() *TomlConfigLoader {
	return &TomlConfigLoader{}
}

// FindConfigFile walks up the directory tree from startDir looking for
// .cloneval.toml. It returns os.ErrNotExist when no file is found.
func (l *TomlConfigLoader) FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// LoadFile decodes a config file. Unknown keys are rejected so that a typo
// never silently falls back to a default.
func (l *TomlConfigLoader) LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode parses TOML configuration data in strict mode
func Decode(data []byte) (*Config, error) {
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown configuration keys:\n%s", strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("line %d, column %d: %w", row, col, err)
		}
		return nil, err
	}
	return &cfg, nil
}

// Discover finds and loads the nearest config file above startDir.
// It returns the config, the path it was read from, and os.ErrNotExist
// when there is none.
func (l *TomlConfigLoader) Discover(startDir string) (*Config, string, error) {
	path, err := l.FindConfigFile(startDir)
	if err != nil {
		return nil, "", err
	}
	cfg, err := l.LoadFile(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
