package session

import (
	"context"
	"errors"
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingercount/internal/capture"
)

// noFrameBackoff is how long Run waits after a dropped frame.
const noFrameBackoff = 10 * time.Millisecond

// ErrStop is returned by a Sink to end the session, for example when the
// user presses Esc in the preview window.
var ErrStop = errors.New("session: stop requested")

// FrameSource supplies preprocessed frames.
type FrameSource interface {
	Next() (capture.Frame, error)
}

// Update is what sinks receive for every processed frame. Display and the
// result mask are only valid for the duration of Emit; sinks that keep
// anything must copy it.
type Update struct {
	Display gocv.Mat
	ROI     image.Rectangle
	Result  Result
	Time    time.Time
}

// Sink consumes pipeline output.
type Sink interface {
	Emit(u Update) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(u Update) error

// Emit calls f(u).
func (f SinkFunc) Emit(u Update) error {
	return f(u)
}

// Run processes frames from src until ctx is cancelled, the source ends, or a
// sink returns ErrStop. Frames are handled strictly one at a time and
// cancellation is only checked between frames.
//
// Dropped frames (capture.ErrNoFrame) are skipped without touching any
// state. Run returns nil on cancellation, end of stream and ErrStop.
func (c *Controller) Run(ctx context.Context, src FrameSource, sinks ...Sink) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := src.Next()
		if err != nil {
			switch {
			case errors.Is(err, capture.ErrEndOfStream):
				c.logger.Info("frame source exhausted", "frames", c.Frames())
				return nil
			case errors.Is(err, capture.ErrNoFrame):
				c.logger.Debug("skipping frame", "error", err)
				if !sleep(ctx, noFrameBackoff) {
					return nil
				}
				continue
			default:
				return err
			}
		}

		stop := c.step(frame, sinks)
		frame.Close()
		if stop {
			return nil
		}
	}
}

// step processes one frame and fans the result out. It reports whether a
// sink asked to stop.
func (c *Controller) step(frame capture.Frame, sinks []Sink) bool {
	result, err := c.Process(frame.Gray)
	if err != nil {
		c.logger.Warn("frame rejected", "error", err)
		return false
	}
	defer result.Close()

	u := Update{
		Display: frame.Display,
		ROI:     frame.ROI,
		Result:  result,
		Time:    time.Now(),
	}

	stop := false
	for _, s := range sinks {
		if err := s.Emit(u); err != nil {
			if errors.Is(err, ErrStop) {
				stop = true
				continue
			}
			c.logger.Warn("sink failed", "frame", result.Index, "error", err)
		}
	}
	return stop
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
