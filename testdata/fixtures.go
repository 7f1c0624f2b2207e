// Package testdata builds synthetic grayscale frames for pipeline tests.
package testdata

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// Foreground is the intensity used for drawn shapes.
const Foreground = 255

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// HandSize is the side length of the square frames produced by Hand.
const HandSize = 400

// Hand geometry, in pixels. The palm sits low in the frame and the wrist runs
// off the bottom edge, the way a hand enters the region of interest.
var (
	palmCenter   = image.Pt(200, 260)
	palmRadius   = 70
	wristRect    = image.Rect(160, 260, 241, HandSize-1)
	fingerLength = 170.0
	fingerWidth  = 20
)

// FingerAngles are the finger directions in degrees, counter-clockwise from
// the positive x axis, ordered from thumb side to little finger.
var FingerAngles = []float64{90, 54, 126, 18, 162}

// Blank returns a single channel frame filled with value.
func Blank(rows, cols int, value uint8) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(value), 0, 0, 0), rows, cols, gocv.MatTypeCV8UC1)
}

// Block returns a blank frame with r filled with Foreground. As with
// image.Rectangle, Max is exclusive.
func Block(rows, cols int, r image.Rectangle) gocv.Mat {
	m := Blank(rows, cols, 0)
	gocv.Rectangle(&m, image.Rect(r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1), white, -1)
	return m
}

// Disc returns a blank frame with a filled circle of Foreground.
func Disc(rows, cols int, center image.Point, radius int) gocv.Mat {
	m := Blank(rows, cols, 0)
	gocv.Circle(&m, center, radius, white, -1)
	return m
}

// Hand returns a HandSize square frame holding a palm, a wrist reaching the
// bottom edge and the first n entries of FingerAngles as raised fingers.
// n is clamped to [0, len(FingerAngles)].
func Hand(n int) gocv.Mat {
	if n < 0 {
		n = 0
	}
	if n > len(FingerAngles) {
		n = len(FingerAngles)
	}

	m := Blank(HandSize, HandSize, 0)
	gocv.Circle(&m, palmCenter, palmRadius, white, -1)
	gocv.Rectangle(&m, wristRect, white, -1)

	for _, deg := range FingerAngles[:n] {
		gocv.Line(&m, palmCenter, fingerTip(deg), white, fingerWidth)
	}
	return m
}

func fingerTip(deg float64) image.Point {
	rad := deg * math.Pi / 180
	return image.Pt(
		palmCenter.X+int(math.Round(fingerLength*math.Cos(rad))),
		palmCenter.Y-int(math.Round(fingerLength*math.Sin(rad))),
	)
}

// Sequence returns n clones of frame. The caller closes every element.
func Sequence(frame gocv.Mat, n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		c := frame.Clone()
		frames[i] = &c
	}
	return frames
}

// ToBGR converts a grayscale frame to three channels, as a camera delivers.
// The caller must close the result.
func ToBGR(gray gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	gocv.CvtColor(gray, &out, gocv.ColorGrayToBGR)
	return out
}
