package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.HasPrefix(c.Username, "User") {
		t.Fatalf("default username %q", c.Username)
	}
	if c.DisplayName != c.Username {
		t.Fatalf("display name should default to username")
	}
	if c.Status != "Available" {
		t.Fatalf("default status %q", c.Status)
	}
	if c.Port != 50999 {
		t.Fatalf("default port %d", c.Port)
	}
	if c.LogLevel != "info" {
		t.Fatalf("default log level %q", c.LogLevel)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lsnp.toml")
	body := `
username = "alice"
display_name = "Alice A."
status = "Busy"
port = 51010
data_dir = "/tmp/lsnp"
log_level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Username != "alice" || c.DisplayName != "Alice A." || c.Port != 51010 {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.LogLevel != "debug" {
		t.Fatalf("log level not applied")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("missing file should error")
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("port = 99999999"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatalf("out-of-range port should error")
	}
}
