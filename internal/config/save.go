package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/IgorPritula/entity-ref-dependency/internal/atomicfile"
)

// Save writes cfg back to the file it was loaded from.
func Save(cfg *Config) error {
	path := cfg.Path()
	if path == "" {
		path = DefaultPath()
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the config to a specific path atomically.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = Default()
	}

	out := *cfg
	if out.Cascade.AllowedEntityTypes == nil {
		out.Cascade.AllowedEntityTypes = []string{}
	}

	var buf bytes.Buffer
	buf.WriteString("# erdep configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}

	cfg.path = path
	return nil
}
