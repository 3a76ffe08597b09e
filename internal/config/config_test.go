package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/particle"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr != ":8080" || cfg.RenderFPS != 60 || !cfg.Tray {
		t.Errorf("top-level defaults = %+v", cfg)
	}
	if diff := cmp.Diff(capture.DefaultConfig(), cfg.Camera); diff != "" {
		t.Errorf("camera defaults mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(capture.DefaultGateConfig(), cfg.Gate); diff != "" {
		t.Errorf("gate defaults mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(gesture.DefaultThresholds(), cfg.Thresholds); diff != "" {
		t.Errorf("threshold defaults mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(gesture.DefaultStabilizerConfig(), cfg.Stabilizer); diff != "" {
		t.Errorf("stabilizer defaults mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(particle.DefaultParams(), cfg.Particles); diff != "" {
		t.Errorf("particle defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.Detector.MaxHands != 2 {
		t.Errorf("detector MaxHands = %d, want 2", cfg.Detector.MaxHands)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MUDRA_ADDR", "127.0.0.1:9000")
	t.Setenv("MUDRA_CAMERA_ID", "2")
	t.Setenv("MUDRA_GATE_IDLE_TIMEOUT", "5s")
	t.Setenv("MUDRA_TRIGGER_CLICK_DEBOUNCE", "500ms")
	t.Setenv("MUDRA_MANIPULATE_TWO_MAX_SCALE", "3.5")
	t.Setenv("MUDRA_PARTICLE_COUNT", "300")
	t.Setenv("MUDRA_PARTICLE_STRENGTH_EASE", "linear")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Camera.DeviceID != 2 {
		t.Errorf("Camera.DeviceID = %d, want 2", cfg.Camera.DeviceID)
	}
	if cfg.Gate.IdleTimeout != 5*time.Second {
		t.Errorf("Gate.IdleTimeout = %v, want 5s", cfg.Gate.IdleTimeout)
	}
	if cfg.Stabilizer.ClickDelay != 500*time.Millisecond {
		t.Errorf("Stabilizer.ClickDelay = %v, want 500ms", cfg.Stabilizer.ClickDelay)
	}
	if cfg.Manipulation.Two.MaxScale != 3.5 {
		t.Errorf("Manipulation.Two.MaxScale = %f, want 3.5", cfg.Manipulation.Two.MaxScale)
	}
	if cfg.Particles.ParticleCount != 300 || cfg.Particles.StrengthEase != "linear" {
		t.Errorf("Particles = %+v", cfg.Particles)
	}
}

func TestLoadError(t *testing.T) {
	t.Setenv("MUDRA_RENDER_FPS", "fast")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
