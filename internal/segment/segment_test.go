package segment

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingercount/internal/background"
	"github.com/ayusman/fingercount/testdata"
)

func calibrated(t *testing.T, rows, cols int, value uint8) *background.Model {
	t.Helper()

	bg := background.New()
	frame := testdata.Blank(rows, cols, value)
	defer frame.Close()

	if _, err := bg.Accumulate(frame, background.DefaultWeight); err != nil {
		t.Fatalf("Accumulate() error = %v", err)
	}
	return bg
}

func TestSegment_NotReady(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	bg := background.New()
	defer bg.Close()

	frame := testdata.Blank(10, 10, 0)
	defer frame.Close()

	if _, _, err := Segment(bg, frame, DefaultThreshold); !errors.Is(err, ErrBackgroundNotReady) {
		t.Errorf("error = %v, want ErrBackgroundNotReady", err)
	}
	if _, _, err := Segment(nil, frame, DefaultThreshold); !errors.Is(err, ErrBackgroundNotReady) {
		t.Errorf("nil model: error = %v, want ErrBackgroundNotReady", err)
	}
}

func TestSegment_SingleBlock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	bg := calibrated(t, 300, 300, 0)
	defer bg.Close()

	block := image.Rect(100, 120, 150, 170)
	frame := testdata.Block(300, 300, block)
	defer frame.Close()

	hand, ok, err := Segment(bg, frame, DefaultThreshold)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if !ok {
		t.Fatal("Segment() found no hand, want the block")
	}
	defer hand.Close()

	if hand.Mask.Rows() != 300 || hand.Mask.Cols() != 300 {
		t.Errorf("mask size = %dx%d, want 300x300", hand.Mask.Cols(), hand.Mask.Rows())
	}
	if got := hand.Mask.GetUCharAt(130, 125); got != 255 {
		t.Errorf("mask inside block = %d, want 255", got)
	}
	if got := hand.Mask.GetUCharAt(10, 10); got != 0 {
		t.Errorf("mask outside block = %d, want 0", got)
	}

	bounds := boundsOf(hand.Contour)
	if bounds != block {
		t.Errorf("contour bounds = %v, want %v", bounds, block)
	}
}

func TestSegment_NoForeground(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	bg := calibrated(t, 100, 100, 90)
	defer bg.Close()

	tests := []struct {
		name  string
		value uint8
	}{
		{name: "identical to background", value: 90},
		{name: "difference equal to threshold", value: 90 + DefaultThreshold},
		{name: "small negative difference", value: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := testdata.Blank(100, 100, tt.value)
			defer frame.Close()

			_, ok, err := Segment(bg, frame, DefaultThreshold)
			if err != nil {
				t.Fatalf("Segment() error = %v", err)
			}
			if ok {
				t.Error("Segment() reported a hand for a frame matching the background")
			}
		})
	}
}

func TestSegment_PicksLargest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	bg := calibrated(t, 200, 200, 0)
	defer bg.Close()

	frame := testdata.Block(200, 200, image.Rect(10, 10, 20, 20))
	defer frame.Close()
	big := testdata.Block(200, 200, image.Rect(100, 100, 160, 180))
	defer big.Close()
	gocv.BitwiseOr(frame, big, &frame)

	hand, ok, err := Segment(bg, frame, DefaultThreshold)
	if err != nil || !ok {
		t.Fatalf("Segment() ok = %v, error = %v", ok, err)
	}
	defer hand.Close()

	if got, want := boundsOf(hand.Contour), image.Rect(100, 100, 160, 180); got != want {
		t.Errorf("largest contour bounds = %v, want %v", got, want)
	}
}

func TestSegment_SizeMismatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	bg := calibrated(t, 50, 50, 0)
	defer bg.Close()

	frame := testdata.Blank(40, 50, 0)
	defer frame.Close()

	if _, _, err := Segment(bg, frame, DefaultThreshold); !errors.Is(err, background.ErrSizeMismatch) {
		t.Errorf("error = %v, want ErrSizeMismatch", err)
	}
}

func TestSegment_ColorFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	bg := calibrated(t, 50, 50, 0)
	defer bg.Close()

	gray := testdata.Blank(50, 50, 0)
	defer gray.Close()
	bgr := testdata.ToBGR(gray)
	defer bgr.Close()

	if _, _, err := Segment(bg, bgr, DefaultThreshold); !errors.Is(err, background.ErrChannels) {
		t.Errorf("error = %v, want ErrChannels", err)
	}
}

func boundsOf(points []image.Point) image.Rectangle {
	if len(points) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	r.Max = r.Max.Add(image.Pt(1, 1))
	return r
}
