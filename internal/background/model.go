// Package background maintains a running estimate of the static scene in the
// region of interest, updated by exponential smoothing.
package background

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultWeight is the accumulation weight used during calibration.
const DefaultWeight = 0.5

var (
	// ErrEmptyFrame is returned when an empty frame is accumulated.
	ErrEmptyFrame = errors.New("background: empty frame")
	// ErrInvalidWeight is returned for weights outside the open interval (0, 1).
	ErrInvalidWeight = errors.New("background: weight must be in (0, 1)")
	// ErrSizeMismatch is returned when a frame does not match the model dimensions.
	ErrSizeMismatch = errors.New("background: frame size does not match model")
	// ErrNotReady is returned when the model is read before the first frame.
	ErrNotReady = errors.New("background: model not initialized")
	// ErrChannels is returned for frames that are not single channel.
	ErrChannels = errors.New("background: frame must be single channel")
)

// Status reports what an Accumulate call did to the model.
type Status int

const (
	// StatusInitialized means the frame became the model; it is not averaged yet.
	StatusInitialized Status = iota
	// StatusUpdated means the frame was blended into an existing model.
	StatusUpdated
)

func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusUpdated:
		return "updated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Model is a float32 grid with the same dimensions as the frames it is fed.
// It is absent until the first frame arrives and is never reset afterwards;
// Close releases it at the end of a session.
type Model struct {
	acc   gocv.Mat
	ready bool
	mu    sync.RWMutex
}

// New creates an empty model.
func New() *Model {
	return &Model{acc: gocv.NewMat()}
}

// Accumulate folds a grayscale frame into the model.
//
// The first call copies the frame, widened to float32, and returns
// StatusInitialized. Every later call updates each cell as
// B = (1-weight)*B + weight*F and returns StatusUpdated. A call that returns
// an error leaves the model untouched.
func (m *Model) Accumulate(frame gocv.Mat, weight float64) (Status, error) {
	if weight <= 0 || weight >= 1 {
		return 0, ErrInvalidWeight
	}
	if frame.Empty() {
		return 0, ErrEmptyFrame
	}
	if frame.Channels() != 1 {
		return 0, ErrChannels
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		frame.ConvertTo(&m.acc, gocv.MatTypeCV32F)
		m.ready = true
		return StatusInitialized, nil
	}

	if frame.Rows() != m.acc.Rows() || frame.Cols() != m.acc.Cols() {
		return 0, fmt.Errorf("%w: got %dx%d, want %dx%d",
			ErrSizeMismatch, frame.Cols(), frame.Rows(), m.acc.Cols(), m.acc.Rows())
	}

	gocv.AccumulatedWeighted(frame, &m.acc, weight)
	return StatusUpdated, nil
}

// Ready reports whether the model has been initialised.
func (m *Model) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Size returns the model dimensions, or zeros when it is not ready.
func (m *Model) Size() (rows, cols int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ready {
		return 0, 0
	}
	return m.acc.Rows(), m.acc.Cols()
}

// At returns the model estimate for a single cell.
func (m *Model) At(row, col int) float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.acc.GetFloatAt(row, col)
}

// Rounded returns an 8-bit copy of the model with each estimate rounded to the
// nearest integer. The caller must close the returned Mat.
func (m *Model) Rounded() (gocv.Mat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.ready {
		return gocv.NewMat(), ErrNotReady
	}

	out := gocv.NewMat()
	m.acc.ConvertTo(&out, gocv.MatTypeCV8U)
	return out, nil
}

// Close releases the model.
func (m *Model) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.acc.Close()
	m.acc = gocv.NewMat()
	m.ready = false
}
