// Package session drives the finger counting pipeline one frame at a time.
//
// A session starts in the calibrating state, feeding frames to the background
// model. After CalibrationFrames frames it switches to detecting for good and
// segments and counts every frame. Nothing moves it back.
package session

import (
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingercount/internal/background"
	"github.com/ayusman/fingercount/internal/fingers"
	"github.com/ayusman/fingercount/internal/geometry"
	"github.com/ayusman/fingercount/internal/segment"
)

// DefaultCalibrationFrames is the number of frames averaged into the background.
const DefaultCalibrationFrames = 60

// State is the controller phase.
type State int

const (
	// Calibrating means frames feed the background model.
	Calibrating State = iota
	// Detecting means frames are segmented and fingers counted.
	Detecting
)

func (s State) String() string {
	switch s {
	case Calibrating:
		return "calibrating"
	case Detecting:
		return "detecting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config holds the pipeline parameters.
type Config struct {
	CalibrationFrames int
	Threshold         float32
	Weight            float64
}

// DefaultConfig returns a Config with the standard calibration parameters.
func DefaultConfig() Config {
	return Config{
		CalibrationFrames: DefaultCalibrationFrames,
		Threshold:         segment.DefaultThreshold,
		Weight:            background.DefaultWeight,
	}
}

// Result is the outcome of processing one frame.
type Result struct {
	Index int
	State State

	// Background is set while calibrating.
	Background background.Status

	// Hand is false in detecting frames with no foreground; the fields below
	// are then zero.
	Hand     bool
	Fingers  int
	Contour  geometry.Contour
	Mask     gocv.Mat
	Analysis fingers.Analysis
}

// Close releases the segmentation mask, if any.
func (r *Result) Close() {
	if r.Hand {
		r.Mask.Close()
	}
}

// Controller owns the background model for the lifetime of a session.
type Controller struct {
	config Config
	bg     *background.Model
	frames int
	logger *slog.Logger
	mu     sync.Mutex
}

// New creates a controller in the calibrating state. Non-positive
// CalibrationFrames, a Weight outside (0,1) and a negative Threshold fall back
// to DefaultConfig values. A zero Threshold is kept: every nonzero difference
// counts as foreground.
func New(config Config, logger *slog.Logger) *Controller {
	def := DefaultConfig()
	if config.CalibrationFrames <= 0 {
		config.CalibrationFrames = def.CalibrationFrames
	}
	if config.Threshold < 0 {
		config.Threshold = def.Threshold
	}
	if config.Weight <= 0 || config.Weight >= 1 {
		config.Weight = def.Weight
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		config: config,
		bg:     background.New(),
		logger: logger.With("component", "session"),
	}
}

// Process runs one preprocessed grayscale frame through the pipeline.
//
// The frame counter only advances when the frame was consumed; a frame that
// returns an error leaves the controller exactly as it was. The caller must
// Close the Result.
func (c *Controller) Process(frame gocv.Mat) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := c.frames

	if index < c.config.CalibrationFrames {
		status, err := c.bg.Accumulate(frame, c.config.Weight)
		if err != nil {
			return Result{}, fmt.Errorf("calibrate frame %d: %w", index, err)
		}
		c.frames++

		if c.frames == c.config.CalibrationFrames {
			rows, cols := c.bg.Size()
			c.logger.Info("background calibrated", "frames", c.frames, "width", cols, "height", rows)
		}
		return Result{Index: index, State: Calibrating, Background: status}, nil
	}

	hand, ok, err := segment.Segment(c.bg, frame, c.config.Threshold)
	if err != nil {
		return Result{}, fmt.Errorf("segment frame %d: %w", index, err)
	}
	c.frames++

	if !ok {
		return Result{Index: index, State: Detecting}, nil
	}

	analysis := fingers.Analyze(hand.Mask, hand.Contour)
	return Result{
		Index:    index,
		State:    Detecting,
		Hand:     true,
		Fingers:  analysis.Count,
		Contour:  hand.Contour,
		Mask:     hand.Mask,
		Analysis: analysis,
	}, nil
}

// State returns the phase the next frame will be processed in.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frames < c.config.CalibrationFrames {
		return Calibrating
	}
	return Detecting
}

// Frames returns the number of frames consumed so far.
func (c *Controller) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.config
}

// Close releases the background model.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bg.Close()
}
