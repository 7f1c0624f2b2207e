// Package segment isolates the hand as the dominant foreground region of a
// frame, relative to a background.Model.
package segment

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingercount/internal/background"
	"github.com/ayusman/fingercount/internal/geometry"
)

// DefaultThreshold is the minimum absolute difference from the background
// for a pixel to count as foreground.
const DefaultThreshold = 25

// ErrBackgroundNotReady is returned when segmentation runs before the
// background model has seen a frame.
var ErrBackgroundNotReady = errors.New("segment: background model not ready")

// HandSegment pairs the binary foreground mask with the largest external
// contour found in it. The caller owns Mask and must close it.
type HandSegment struct {
	Mask    gocv.Mat
	Contour geometry.Contour
}

// Close releases the mask.
func (h *HandSegment) Close() {
	h.Mask.Close()
}

// Segment differences frame against the rounded background, thresholds the
// result and returns the external contour with the largest area.
//
// The bool result is false when the mask contains no contour at all; that is
// the normal "no hand" case, not an error. Among contours of equal area the
// first one in extraction order wins.
func Segment(bg *background.Model, frame gocv.Mat, threshold float32) (HandSegment, bool, error) {
	if bg == nil || !bg.Ready() {
		return HandSegment{}, false, ErrBackgroundNotReady
	}

	base, err := bg.Rounded()
	if err != nil {
		return HandSegment{}, false, fmt.Errorf("segment: %w", err)
	}
	defer base.Close()

	if base.Rows() != frame.Rows() || base.Cols() != frame.Cols() {
		return HandSegment{}, false, fmt.Errorf("segment: %w", background.ErrSizeMismatch)
	}
	if frame.Channels() != 1 {
		return HandSegment{}, false, fmt.Errorf("segment: %w", background.ErrChannels)
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(base, frame, &diff)

	mask := gocv.NewMat()
	gocv.Threshold(diff, &mask, threshold, 255, gocv.ThresholdBinary)

	contour, ok := Largest(mask)
	if !ok {
		mask.Close()
		return HandSegment{}, false, nil
	}

	return HandSegment{Mask: mask, Contour: contour}, true, nil
}

// Largest extracts the external contours of a binary mask and returns the
// one enclosing the largest area. It reports false when there are none.
func Largest(mask gocv.Mat) (geometry.Contour, bool) {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return nil, false
	}

	best := 0
	bestArea := gocv.ContourArea(contours.At(0))
	for i := 1; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			bestArea = area
			best = i
		}
	}

	return geometry.Contour(contours.At(best).ToPoints()), true
}
