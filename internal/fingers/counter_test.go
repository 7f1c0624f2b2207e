package fingers

import (
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingercount/internal/geometry"
	"github.com/ayusman/fingercount/internal/segment"
	"github.com/ayusman/fingercount/testdata"
)

func largest(t *testing.T, mask gocv.Mat) geometry.Contour {
	t.Helper()

	contour, ok := segment.Largest(mask)
	if !ok {
		t.Fatal("fixture mask has no contour")
	}
	return contour
}

func TestCount_Hand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	tests := []struct {
		name    string
		fingers int
		want    int
	}{
		{name: "fist with wrist", fingers: 0, want: 0},
		{name: "one finger", fingers: 1, want: 1},
		{name: "open hand", fingers: 5, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask := testdata.Hand(tt.fingers)
			defer mask.Close()

			if got := Count(mask, largest(t, mask)); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCount_Disc(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mask := testdata.Disc(400, 400, image.Pt(200, 200), 100)
	defer mask.Close()

	if got := Count(mask, largest(t, mask)); got != 0 {
		t.Errorf("Count() on a filled disc = %d, want 0", got)
	}
}

func TestCount_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mask := testdata.Hand(5)
	defer mask.Close()
	contour := largest(t, mask)

	first := Count(mask, contour)
	second := Count(mask, contour)
	if first != second {
		t.Errorf("Count() not repeatable: %d then %d", first, second)
	}
}

func TestCount_Degenerate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mask := testdata.Blank(50, 50, 0)
	defer mask.Close()

	tests := []struct {
		name    string
		mask    gocv.Mat
		contour geometry.Contour
	}{
		{name: "empty contour", mask: mask, contour: nil},
		{name: "empty mask", mask: gocv.NewMat(), contour: geometry.Contour{{X: 1, Y: 1}}},
		{name: "single point", mask: mask, contour: geometry.Contour{{X: 10, Y: 10}}},
		{name: "collinear points", mask: mask, contour: geometry.Contour{{X: 10, Y: 10}, {X: 10, Y: 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.mask, tt.contour); got != 0 {
				t.Errorf("Count() = %d, want 0", got)
			}
		})
	}
}

func TestAnalyze_Geometry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mask := testdata.Hand(5)
	defer mask.Close()

	a := Analyze(mask, largest(t, mask))

	if len(a.Hull) == 0 {
		t.Fatal("Analyze() returned an empty hull")
	}
	if a.Extremes.Top.Y >= a.Center.Y || a.Extremes.Bottom.Y <= a.Center.Y {
		t.Errorf("centre %v not between top %v and bottom %v", a.Center, a.Extremes.Top, a.Extremes.Bottom)
	}
	if a.Extremes.Bottom.Y != testdata.HandSize-1 {
		t.Errorf("bottom extreme = %v, want the wrist on the last row", a.Extremes.Bottom)
	}
	if a.Radius <= 0 {
		t.Errorf("Radius = %d, want > 0", a.Radius)
	}
	if len(a.Fingers) != a.Count {
		t.Errorf("len(Fingers) = %d, Count = %d", len(a.Fingers), a.Count)
	}

	wrist := float64(a.Center.Y) * (1 + WristRatio)
	for _, box := range a.Fingers {
		if float64(box.Max.Y) >= wrist {
			t.Errorf("finger box %v reaches below the wrist line %.1f", box, wrist)
		}
	}
}
