package connection

import (
	"testing"
	"time"
)

func TestConfigFillDefaults(t *testing.T) {
	cfg := Config{}
	cfg.fillDefaults()
	if cfg.RefreshingRate != 100*time.Millisecond {
		t.Fatalf("default rate = %v, want 100ms", cfg.RefreshingRate)
	}
	if cfg.HostNode != 1 || cfg.LostAfterMisses != 30 || cfg.TaskQueueDepth != 64 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Clock == nil {
		t.Fatal("default clock missing")
	}
}

func TestConfigNegativeRateStaysDisabled(t *testing.T) {
	cfg := Config{RefreshingRate: -1}
	cfg.fillDefaults()
	if cfg.RefreshingRate != -1 {
		t.Fatalf("negative rate overridden to %v", cfg.RefreshingRate)
	}
}
