package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "erdep.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFrom(t *testing.T) {
	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := writeConfig(t, `
[cascade]
allow_cascade_delete = true
allowed_entity_types = ["node", "comment", "node", " "]

[worker]
interval = "30s"
`)
		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cfg.Cascade.AllowCascadeDelete {
			t.Error("expected cascade delete enabled")
		}
		if got, want := cfg.Cascade.AllowedEntityTypes, []string{"comment", "node"}; !reflect.DeepEqual(got, want) {
			t.Errorf("allowed types = %v, want %v", got, want)
		}
		if cfg.Worker.Interval.Duration != 30*time.Second {
			t.Errorf("interval = %v, want 30s", cfg.Worker.Interval)
		}
		if cfg.Worker.Lease.Duration != time.Minute {
			t.Errorf("lease = %v, want default 1m", cfg.Worker.Lease)
		}
		if cfg.Index.PageSize != 50 {
			t.Errorf("page size = %d, want 50", cfg.Index.PageSize)
		}
		if cfg.Cascade.MaxDepth != 64 {
			t.Errorf("max depth = %d, want 64", cfg.Cascade.MaxDepth)
		}
	})

	t.Run("relative paths resolve against config dir", func(t *testing.T) {
		path := writeConfig(t, `
[database]
dsn = "data/erdep.db"

[content]
model = "model.yaml"
`)
		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		dir := filepath.Dir(path)
		if got := cfg.DatabaseDSN(); got != filepath.Join(dir, "data", "erdep.db") {
			t.Errorf("DatabaseDSN() = %q", got)
		}
		if got := cfg.ModelPath(); got != filepath.Join(dir, "model.yaml") {
			t.Errorf("ModelPath() = %q", got)
		}
	})

	t.Run("libsql dsn is not rewritten", func(t *testing.T) {
		path := writeConfig(t, `
[database]
driver = "libsql"
dsn = "libsql://db.example.turso.io?authToken=x"
`)
		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := cfg.DatabaseDSN(); got != "libsql://db.example.turso.io?authToken=x" {
			t.Errorf("DatabaseDSN() = %q", got)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		path := writeConfig(t, "[database]\ndriver = \"postgres\"\n")
		_, err := LoadFrom(path)
		if !errors.Is(err, ErrUnknownDriver) {
			t.Fatalf("expected ErrUnknownDriver, got %v", err)
		}
	})

	t.Run("bad duration", func(t *testing.T) {
		path := writeConfig(t, "[worker]\nlease = \"soon\"\n")
		if _, err := LoadFrom(path); err == nil {
			t.Fatal("expected error for invalid duration")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		cases := map[string]string{
			"page size":   "[index]\npage_size = 0\n",
			"max depth":   "[cascade]\nmax_depth = -1\n",
			"concurrency": "[worker]\nconcurrency = 0\n",
			"log level":   "[log]\nlevel = \"loud\"\n",
			"log format":  "[log]\nformat = \"xml\"\n",
		}
		for name, content := range cases {
			t.Run(name, func(t *testing.T) {
				if _, err := LoadFrom(writeConfig(t, content)); err == nil {
					t.Fatal("expected validation error")
				}
			})
		}
	})
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Cascade.AllowCascadeDelete {
		t.Error("cascade delete must default to off")
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestAllowDisallow(t *testing.T) {
	cfg := Default()

	added := cfg.Allow("node", "comment", "node")
	if !reflect.DeepEqual(added, []string{"comment", "node"}) {
		t.Errorf("added = %v", added)
	}
	if added := cfg.Allow("node"); len(added) != 0 {
		t.Errorf("re-adding node should be a no-op, got %v", added)
	}

	removed := cfg.Disallow("node", "user")
	if !reflect.DeepEqual(removed, []string{"node"}) {
		t.Errorf("removed = %v", removed)
	}
	if got := cfg.Cascade.AllowedEntityTypes; !reflect.DeepEqual(got, []string{"comment"}) {
		t.Errorf("allowed = %v", got)
	}
	if !cfg.AllowedTypes().Has("comment") {
		t.Error("expected comment in allowed set")
	}
}

func TestCreateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "erdep.toml")
	if err := CreateDefault(path); err != nil {
		t.Fatalf("CreateDefault: %v", err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("default config should load: %v", err)
	}
	if cfg.Worker.MaxAttempts != 5 {
		t.Errorf("max attempts = %d, want 5", cfg.Worker.MaxAttempts)
	}

	if err := os.WriteFile(path, []byte("# custom\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CreateDefault(path); err != nil {
		t.Fatalf("CreateDefault on existing file: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "# custom\n" {
		t.Error("CreateDefault must not overwrite an existing file")
	}
}
