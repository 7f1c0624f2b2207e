// Package overlay draws pipeline results onto the camera frame and shows them
// in OpenCV windows.
package overlay

import (
	"errors"
	"image"
	"image/color"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingercount/internal/session"
)

// CalibrationText is shown while the background is being averaged.
const CalibrationText = "WAIT! GETTING BACKGROUND AVG."

var (
	red   = color.RGBA{R: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
)

// Text and stroke placement on the full frame.
var (
	calibrationOrigin = image.Pt(200, 400)
	countOrigin       = image.Pt(70, 45)
)

const (
	roiThickness  = 5
	textScale     = 1.0
	textThickness = 2
)

// Options toggles the debug layers.
type Options struct {
	// Ring draws the sampling ring and accepted finger boxes.
	Ring bool
}

// Render draws u onto dst in place. dst must be the full frame that u.ROI
// refers to.
func Render(dst *gocv.Mat, u session.Update, opts Options) {
	r := u.Result
	origin := u.ROI.Min

	switch {
	case r.State == session.Calibrating:
		gocv.PutText(dst, CalibrationText, calibrationOrigin, gocv.FontHersheySimplex, textScale, red, textThickness)
	case r.Hand:
		contour := r.Contour.Offset(origin.X, origin.Y)
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{contour})
		gocv.DrawContours(dst, pv, -1, blue, 1)
		pv.Close()

		gocv.PutText(dst, strconv.Itoa(r.Fingers), countOrigin, gocv.FontHersheySimplex, textScale, red, textThickness)

		if opts.Ring && r.Analysis.Radius > 0 {
			gocv.Circle(dst, r.Analysis.Center.Add(origin), r.Analysis.Radius, green, 1)
			for _, box := range r.Analysis.Fingers {
				gocv.Rectangle(dst, box.Add(origin), green, 1)
			}
		}
	}

	gocv.Rectangle(dst, u.ROI, red, roiThickness)
}

// Annotate returns a copy of u.Display with u rendered on it. The caller
// closes the result.
func Annotate(u session.Update, opts Options) gocv.Mat {
	out := u.Display.Clone()
	Render(&out, u, opts)
	return out
}

// Annotated returns a sink that renders each update once and forwards it to
// next with Display replaced by the annotated frame. Errors from next are
// joined, so an ErrStop from any of them still ends the session.
func Annotated(opts Options, next ...session.Sink) session.Sink {
	return session.SinkFunc(func(u session.Update) error {
		annotated := Annotate(u, opts)
		defer annotated.Close()

		u.Display = annotated
		var errs []error
		for _, s := range next {
			if err := s.Emit(u); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
