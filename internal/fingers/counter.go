// Package fingers estimates how many fingers a segmented hand is holding up.
//
// The estimate samples the hand silhouette along a ring centred between the
// hull extremes. Each short arc of foreground the ring crosses above the wrist
// line is counted as a finger. The wrist line assumes fingers point up and the
// wrist enters from the bottom of the region of interest; rotated or sideways
// hands are not handled.
package fingers

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingercount/internal/geometry"
)

const (
	// RadiusRatio scales the largest centre-to-extreme distance to the ring radius.
	RadiusRatio = 0.8
	// RingThickness is the width of the sampling ring in pixels.
	RingThickness = 10
	// WristRatio places the wrist line this fraction of cY below the centre.
	// It assumes fingers point up with the wrist at the bottom of the ROI.
	WristRatio = 0.25
	// ArcLimitRatio caps a finger arc at this fraction of the ring circumference.
	ArcLimitRatio = 0.25
)

var ringColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Analysis holds the intermediate geometry of a count, for overlays.
type Analysis struct {
	Hull          geometry.Contour
	Extremes      geometry.Extremes
	Center        image.Point
	Radius        int
	Circumference float64
	Fingers       []image.Rectangle
	Count         int
}

// Count returns the number of raised fingers for a hand contour and its
// binary mask. Degenerate input yields 0.
func Count(mask gocv.Mat, hand geometry.Contour) int {
	return Analyze(mask, hand).Count
}

// Analyze runs the ring heuristic and returns every intermediate value.
// It keeps no state between calls.
func Analyze(mask gocv.Mat, hand geometry.Contour) Analysis {
	var a Analysis
	if mask.Empty() || len(hand) == 0 {
		return a
	}

	a.Hull = hull(hand)

	extremes, ok := geometry.FindExtremes(a.Hull)
	if !ok {
		return a
	}
	a.Extremes = extremes
	a.Center = extremes.Center()

	maxDist := geometry.MaxDistance(a.Center, extremes.Points())
	a.Radius = int(RadiusRatio * maxDist)
	a.Circumference = 2 * math.Pi * float64(a.Radius)
	if a.Radius == 0 {
		return a
	}

	ring := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), mask.Rows(), mask.Cols(), gocv.MatTypeCV8UC1)
	defer ring.Close()
	gocv.Circle(&ring, a.Center, a.Radius, ringColor, RingThickness)

	sampled := gocv.NewMat()
	defer sampled.Close()
	gocv.BitwiseAndWithMask(mask, mask, &sampled, ring)

	arcs := gocv.FindContours(sampled, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer arcs.Close()

	wristLine := float64(a.Center.Y) + WristRatio*float64(a.Center.Y)
	arcLimit := ArcLimitRatio * a.Circumference

	for i := 0; i < arcs.Size(); i++ {
		arc := arcs.At(i)
		box := gocv.BoundingRect(arc)

		// BoundingRect is exclusive at Max, so Max.Y is y+h.
		outOfWrist := wristLine > float64(box.Max.Y)
		limitPoints := arcLimit > float64(arc.Size())

		if outOfWrist && limitPoints {
			a.Fingers = append(a.Fingers, box)
			a.Count++
		}
	}

	return a
}

// hull returns the convex hull of the contour as a subsequence of its points.
func hull(contour geometry.Contour) geometry.Contour {
	points := gocv.NewPointVectorFromPoints(contour)
	defer points.Close()

	indices := gocv.NewMat()
	defer indices.Close()
	gocv.ConvexHull(points, &indices, false, false)

	out := make(geometry.Contour, 0, indices.Rows())
	for i := 0; i < indices.Rows(); i++ {
		out = append(out, contour[indices.GetIntAt(i, 0)])
	}
	return out
}
