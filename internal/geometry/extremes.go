package geometry

import "image"

// Extremes holds the outermost points of a point set along each axis.
type Extremes struct {
	Top    image.Point // smallest y
	Bottom image.Point // largest y
	Left   image.Point // smallest x
	Right  image.Point // largest x
}

// FindExtremes scans points once and returns the first point reaching each
// extreme. Later points that only tie an extreme never replace it, so near
// symmetric hulls can flip between frames depending on point order.
// Returns false for an empty input.
func FindExtremes(points []image.Point) (Extremes, bool) {
	if len(points) == 0 {
		return Extremes{}, false
	}

	e := Extremes{Top: points[0], Bottom: points[0], Left: points[0], Right: points[0]}
	for _, p := range points[1:] {
		if p.Y < e.Top.Y {
			e.Top = p
		}
		if p.Y > e.Bottom.Y {
			e.Bottom = p
		}
		if p.X < e.Left.X {
			e.Left = p
		}
		if p.X > e.Right.X {
			e.Right = p
		}
	}
	return e, true
}

// Points returns the extremes in top, left, bottom, right order.
func (e Extremes) Points() []image.Point {
	return []image.Point{e.Top, e.Left, e.Bottom, e.Right}
}

// Center estimates the hand centre as the midpoint of the horizontal and
// vertical extremes, using floor division on both axes.
func (e Extremes) Center() image.Point {
	return image.Pt(floorDiv(e.Left.X+e.Right.X, 2), floorDiv(e.Top.Y+e.Bottom.Y, 2))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
