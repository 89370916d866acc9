package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "link.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadLinkConfigDefaults(t *testing.T) {
	path := writeConfig(t, `port = "127.0.0.1:33333"`)
	cfg, err := LoadLinkConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "127.0.0.1:33333" {
		t.Fatalf("port mismatch: %q", cfg.Port)
	}
	if cfg.RefreshingRate() != 100*time.Millisecond {
		t.Fatalf("default rate mismatch: %v", cfg.RefreshingRate())
	}
	if cfg.LostAfterMisses != 30 {
		t.Fatalf("default lost_after_misses mismatch: %d", cfg.LostAfterMisses)
	}
	if cfg.CoverageSet() != nil {
		t.Fatalf("empty coverage must mean all variables")
	}
}

func TestLoadLinkConfigCoverage(t *testing.T) {
	path := writeConfig(t, `
port = "/dev/ttyACM0"
refreshing_rate_ms = 50
refreshing_coverage = ["prox.horizontal", "acc"]
`)
	cfg, err := LoadLinkConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[string]struct{}{"prox.horizontal": {}, "acc": {}}
	if !reflect.DeepEqual(cfg.CoverageSet(), want) {
		t.Fatalf("coverage mismatch: %v", cfg.CoverageSet())
	}
	if cfg.RefreshingRate() != 50*time.Millisecond {
		t.Fatalf("rate mismatch: %v", cfg.RefreshingRate())
	}
}

func TestLoadLinkConfigRejectsBlankCoverageEntry(t *testing.T) {
	path := writeConfig(t, `refreshing_coverage = ["  "]`)
	if _, err := LoadLinkConfig(path); err == nil {
		t.Fatalf("expected validation error for blank coverage entry")
	}
}

func TestLoadLinkConfigMissingFile(t *testing.T) {
	if _, err := LoadLinkConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTemplateParsesAndValidates(t *testing.T) {
	path := writeConfig(t, Template())
	cfg, err := LoadLinkConfig(path)
	if err != nil {
		t.Fatalf("template must load: %v", err)
	}
	if cfg.RefreshingRateMS != 100 {
		t.Fatalf("template rate mismatch: %d", cfg.RefreshingRateMS)
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "port = \"x\"\n")
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}
}
