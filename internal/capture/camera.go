// Package capture acquires camera frames and prepares the region of interest
// for the finger counting pipeline.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default capture settings. The default region of interest fits a 640x480
// frame.
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned when a read produced no usable frame. It is
	// transient: the caller should skip the tick and try again.
	ErrNoFrame = errors.New("no frame available")
	// ErrEndOfStream is returned by finite sources once every frame was read.
	ErrEndOfStream = errors.New("end of stream")
)

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// videoCapture reads frames through a gocv.VideoCapture, either from a
// live device or from a recorded clip.
type videoCapture struct {
	device any
	name   string
	// clip marks a recorded file: a failed read means the clip is over.
	clip bool

	mu      sync.Mutex
	capture *gocv.VideoCapture
	fps     int
}

// NewCamera returns a Camera for the video device with the given ID.
func NewCamera(deviceID int) Camera {
	return &videoCapture{
		device: deviceID,
		name:   fmt.Sprintf("camera %d", deviceID),
		fps:    DefaultFPS,
	}
}

// NewVideoFile returns a Camera that plays back a recorded clip. Reads past
// the last frame return ErrEndOfStream.
func NewVideoFile(path string) Camera {
	return &videoCapture{
		device: path,
		name:   fmt.Sprintf("video %q", path),
		clip:   true,
		fps:    DefaultFPS,
	}
}

// Open starts capturing. Devices are asked for 640x480 at the configured
// frame rate; clips keep their own geometry.
func (c *videoCapture) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.device)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.name, err)
	}

	if !c.clip {
		vc.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
		vc.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
		vc.Set(gocv.VideoCaptureFPS, float64(c.fps))
	}

	c.capture = vc
	return nil
}

// Close releases the capture. Closing a closed camera is a no-op.
func (c *videoCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	return err
}

// ReadFrame blocks until the next BGR frame is available.
// A failed or empty device read returns ErrNoFrame; a clip that has run out
// returns ErrEndOfStream.
// The caller is responsible for closing the returned Mat.
func (c *videoCapture) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if c.clip {
			return nil, fmt.Errorf("read %s: %w", c.name, ErrEndOfStream)
		}
		return nil, fmt.Errorf("read %s: %w", c.name, ErrNoFrame)
	}

	return &mat, nil
}

// SetFPS sets the requested capture rate. Values <= 0 are ignored.
func (c *videoCapture) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil && !c.clip {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the requested capture rate.
func (c *videoCapture) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen reports whether the capture is open.
func (c *videoCapture) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.capture != nil
}
