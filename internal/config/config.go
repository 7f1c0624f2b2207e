// Package config loads the fingercount settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/fingercount/internal/background"
	"github.com/ayusman/fingercount/internal/capture"
	"github.com/ayusman/fingercount/internal/segment"
	"github.com/ayusman/fingercount/internal/session"
)

var (
	// ErrInvalidROI is returned when the region of interest is empty or negative.
	ErrInvalidROI = errors.New("invalid region of interest")
	// ErrInvalidCalibration is returned for a non-positive calibration frame count.
	ErrInvalidCalibration = errors.New("calibration frames must be positive")
	// ErrInvalidWeight is returned when the accumulation weight is outside (0,1).
	ErrInvalidWeight = errors.New("weight must be in (0,1)")
	// ErrInvalidThreshold is returned when the threshold is outside [0,255].
	ErrInvalidThreshold = errors.New("threshold must be in [0,255]")
	// ErrInvalidBlur is returned when the blur kernel is not a positive odd size.
	ErrInvalidBlur = errors.New("blur size must be odd and positive")
)

// ROI is the region of interest in full-frame pixel coordinates. Bottom and
// Right are exclusive.
type ROI struct {
	Top    int `yaml:"top"`
	Bottom int `yaml:"bottom"`
	Left   int `yaml:"left"`
	Right  int `yaml:"right"`
}

// Rect returns the ROI as an image.Rectangle.
func (r ROI) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

// Config holds every runtime setting.
type Config struct {
	ROI               ROI     `yaml:"roi"`
	CalibrationFrames int     `yaml:"calibration_frames"`
	Threshold         float32 `yaml:"threshold"`
	Weight            float64 `yaml:"weight"`
	BlurSize          int     `yaml:"blur_size"`
	Flip              bool    `yaml:"flip"`

	CameraID int `yaml:"camera_id"`
	// Video replays a recorded clip instead of opening CameraID.
	Video string `yaml:"video"`
	FPS   int    `yaml:"fps"`

	Window   bool   `yaml:"window"`
	Tray     bool   `yaml:"tray"`
	Addr     string `yaml:"addr"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		ROI:               ROI{Top: 20, Bottom: 300, Left: 300, Right: 600},
		CalibrationFrames: session.DefaultCalibrationFrames,
		Threshold:         segment.DefaultThreshold,
		Weight:            background.DefaultWeight,
		BlurSize:          capture.DefaultBlurSize,
		Flip:              true,
		CameraID:          0,
		FPS:               capture.DefaultFPS,
		Window:            true,
		Addr:              ":8080",
		LogLevel:          "info",
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the pipeline parameters.
func (c Config) Validate() error {
	if c.ROI.Top < 0 || c.ROI.Left < 0 || c.ROI.Rect().Empty() {
		return fmt.Errorf("%w: %+v", ErrInvalidROI, c.ROI)
	}
	if c.CalibrationFrames <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCalibration, c.CalibrationFrames)
	}
	if c.Weight <= 0 || c.Weight >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidWeight, c.Weight)
	}
	if c.Threshold < 0 || c.Threshold > 255 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, c.Threshold)
	}
	if c.BlurSize <= 0 || c.BlurSize%2 == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBlur, c.BlurSize)
	}
	return nil
}

// Session returns the controller parameters.
func (c Config) Session() session.Config {
	return session.Config{
		CalibrationFrames: c.CalibrationFrames,
		Threshold:         c.Threshold,
		Weight:            c.Weight,
	}
}

// Camera returns the frame source selected by Video or CameraID.
func (c Config) Camera() capture.Camera {
	if c.Video != "" {
		return capture.NewVideoFile(c.Video)
	}
	return capture.NewCamera(c.CameraID)
}

// Preprocessor returns a frame preprocessor for the configured ROI.
func (c Config) Preprocessor() *capture.Preprocessor {
	p := capture.NewPreprocessor(c.ROI.Rect())
	p.Flip = c.Flip
	p.BlurSize = c.BlurSize
	return p
}
