package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks,
	// each optionally carrying a discrete gesture observation.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int `env:"MAX_HANDS" envDefault:"2"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `env:"MIN_CONFIDENCE" envDefault:"0.5"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `env:"MIN_TRACKING_CONFIDENCE" envDefault:"0.5"`

	// ScriptPath overrides the lookup of mediapipe_service.py.
	ScriptPath string `env:"SCRIPT"`

	// PythonPath overrides the interpreter lookup.
	PythonPath string `env:"PYTHON"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
