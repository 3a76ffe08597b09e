// Package config loads Mudra's settings from MUDRA_* environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/manipulate"
	"github.com/ayusman/mudra/internal/particle"
)

// Prefix is prepended to every variable name.
const Prefix = "MUDRA_"

// Config is the complete runtime configuration.
type Config struct {
	Addr      string `env:"ADDR" envDefault:":8080"`
	WebDir    string `env:"WEB_DIR"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Tray shows the system tray menu; off for headless runs.
	Tray bool `env:"TRAY" envDefault:"true"`
	// MockDetector skips MediaPipe entirely.
	MockDetector bool `env:"MOCK_DETECTOR" envDefault:"false"`

	RenderFPS    int `env:"RENDER_FPS" envDefault:"60"`
	BroadcastFPS int `env:"BROADCAST_FPS" envDefault:"30"`
	// InboxSize is the particle worker's request queue depth.
	InboxSize int `env:"WORKER_INBOX" envDefault:"16"`

	Camera       capture.Config           `envPrefix:"CAMERA_"`
	Gate         capture.GateConfig       `envPrefix:"GATE_"`
	Detector     detector.Config          `envPrefix:"DETECTOR_"`
	Thresholds   gesture.Thresholds       `envPrefix:"CLASSIFIER_"`
	Stabilizer   gesture.StabilizerConfig `envPrefix:"TRIGGER_"`
	Manipulation manipulate.Config        `envPrefix:"MANIPULATE_"`
	Particles    particle.Params          `envPrefix:"PARTICLE_"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
