// Package geometry provides point and distance helpers shared by the
// segmentation and finger counting stages.
package geometry

import (
	"image"

	"gonum.org/v1/gonum/floats"
)

// Contour is an ordered, closed boundary polyline in image coordinates.
type Contour []image.Point

// Offset returns a copy of the contour translated by (dx, dy).
func (c Contour) Offset(dx, dy int) Contour {
	out := make(Contour, len(c))
	delta := image.Pt(dx, dy)
	for i, p := range c {
		out[i] = p.Add(delta)
	}
	return out
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b image.Point) float64 {
	return floats.Distance(
		[]float64{float64(a.X), float64(a.Y)},
		[]float64{float64(b.X), float64(b.Y)},
		2,
	)
}

// EuclideanDistances returns the distance from center to every point, in the
// order the points were given. An empty input yields an empty, non-nil slice.
func EuclideanDistances(center image.Point, points []image.Point) []float64 {
	distances := make([]float64, len(points))
	for i, p := range points {
		distances[i] = Distance(center, p)
	}
	return distances
}

// MaxDistance returns the largest distance from center to any of the points,
// or 0 when there are none.
func MaxDistance(center image.Point, points []image.Point) float64 {
	if len(points) == 0 {
		return 0
	}
	return floats.Max(EuclideanDistances(center, points))
}
