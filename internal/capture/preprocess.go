package capture

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// DefaultBlurSize is the Gaussian kernel applied to the region of interest.
const DefaultBlurSize = 7

var (
	// ErrROIOutOfBounds is returned when the region of interest does not fit
	// inside the captured frame.
	ErrROIOutOfBounds = errors.New("region of interest outside frame")
	// ErrEmptyROI is returned for a zero-area region of interest.
	ErrEmptyROI = errors.New("region of interest is empty")
)

// Frame is one captured frame after preprocessing. Display is the full,
// mirrored camera image that overlays are drawn on; Gray is the blurred
// single channel region of interest fed to the pipeline.
type Frame struct {
	Display gocv.Mat
	Gray    gocv.Mat
	ROI     image.Rectangle
}

// Close releases both mats.
func (f *Frame) Close() {
	f.Display.Close()
	f.Gray.Close()
}

// Preprocessor turns a raw camera frame into the grayscale region of interest.
//
// Steps:
// 1. Mirror horizontally so the view matches the user (optional)
// 2. Crop the region of interest
// 3. Convert to grayscale
// 4. Apply a BlurSize x BlurSize Gaussian blur to suppress sensor noise
type Preprocessor struct {
	ROI      image.Rectangle
	Flip     bool
	BlurSize int
}

// NewPreprocessor returns a Preprocessor with mirroring and the default blur.
func NewPreprocessor(roi image.Rectangle) *Preprocessor {
	return &Preprocessor{
		ROI:      roi,
		Flip:     true,
		BlurSize: DefaultBlurSize,
	}
}

// Process prepares raw without modifying it. The caller closes the Frame.
func (p *Preprocessor) Process(raw gocv.Mat) (Frame, error) {
	if raw.Empty() {
		return Frame{}, ErrNoFrame
	}
	if p.ROI.Empty() {
		return Frame{}, ErrEmptyROI
	}

	bounds := image.Rect(0, 0, raw.Cols(), raw.Rows())
	if !p.ROI.In(bounds) {
		return Frame{}, fmt.Errorf("%w: roi %v, frame %v", ErrROIOutOfBounds, p.ROI, bounds)
	}

	display := gocv.NewMat()
	if p.Flip {
		gocv.Flip(raw, &display, 1)
	} else {
		raw.CopyTo(&display)
	}

	region := display.Region(p.ROI)
	defer region.Close()

	gray := gocv.NewMat()
	defer gray.Close()

	switch region.Channels() {
	case 1:
		region.CopyTo(&gray)
	case 4:
		gocv.CvtColor(region, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(region, &gray, gocv.ColorBGRToGray)
	}

	blurred := gocv.NewMat()
	if p.BlurSize > 1 {
		gocv.GaussianBlur(gray, &blurred, image.Point{X: p.BlurSize, Y: p.BlurSize}, 0, 0, gocv.BorderDefault)
	} else {
		gray.CopyTo(&blurred)
	}

	return Frame{Display: display, Gray: blurred, ROI: p.ROI}, nil
}
