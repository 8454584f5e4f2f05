package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = ".rexx.yaml"

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Debug       bool     `yaml:"debug"`
	Root        string   `yaml:"root"`
	Extensions  []string `yaml:"extensions"`
	MaxFileSize int64    `yaml:"maxFileSize"`
}

func Default() Config {
	return Config{
		Root:        ".",
		Extensions:  []string{".rexx", ".rex", ".cmd"},
		MaxFileSize: 5 * 1024 * 1024,
	}
}

// Load reads path over the defaults. An empty path falls back to
// DefaultFile and tolerates its absence.
func Load(path string) (Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.MaxFileSize < 0 {
		return fmt.Errorf("%w: maxFileSize must not be negative", ErrInvalid)
	}
	for i, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			c.Extensions[i] = "." + ext
		}
	}
	return nil
}
