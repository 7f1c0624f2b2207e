package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingercount/internal/capture"
	"github.com/ayusman/fingercount/internal/config"
	"github.com/ayusman/fingercount/internal/logging"
	"github.com/ayusman/fingercount/internal/server"
	"github.com/ayusman/fingercount/internal/store"
	"github.com/ayusman/fingercount/testdata"
)

// testConfig counts over the whole synthetic frame without mirroring or blur
// so the drawn hand reaches the pipeline unchanged.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.ROI = config.ROI{Top: 0, Bottom: testdata.HandSize, Left: 0, Right: testdata.HandSize}
	cfg.CalibrationFrames = 3
	cfg.BlurSize = 1
	cfg.Flip = false
	cfg.Window = false
	return cfg
}

// cameraFrames returns BGR frames: calibration background, a dropped read,
// five fingers, one finger and an empty scene.
func cameraFrames(t *testing.T) []*gocv.Mat {
	t.Helper()

	var frames []*gocv.Mat
	add := func(gray gocv.Mat, n int) {
		bgr := testdata.ToBGR(gray)
		gray.Close()
		frames = append(frames, testdata.Sequence(bgr, n)...)
		bgr.Close()
	}

	add(testdata.Blank(testdata.HandSize, testdata.HandSize, 0), 3)
	frames = append(frames, nil)
	add(testdata.Hand(5), 2)
	add(testdata.Hand(1), 2)
	add(testdata.Blank(testdata.HandSize, testdata.HandSize, 0), 1)

	t.Cleanup(func() {
		for _, f := range frames {
			if f != nil {
				f.Close()
			}
		}
	})
	return frames
}

func TestApp_Run_JournalsCounts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	b := server.NewBroadcaster()
	app := New(Options{
		Config:      testConfig(),
		Logger:      logging.Discard(),
		Camera:      capture.NewMockCamera(cameraFrames(t), false),
		Store:       s,
		Broadcaster: b,
	})

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if app.Camera().IsOpen() {
		t.Error("camera should be closed after Run")
	}

	sessions, err := s.Sessions().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	sess := sessions[0]
	if sess.Active() || sess.Frames != 8 || sess.CalibrationFrames != 3 {
		t.Errorf("session = %+v, want ended after 8 frames", sess)
	}

	counts, err := s.Counts().ListBySession(sess.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	want := []store.Count{
		{Frame: 3, Hand: true, Fingers: 5},
		{Frame: 5, Hand: true, Fingers: 1},
		{Frame: 7, Hand: false},
	}
	if len(counts) != len(want) {
		t.Fatalf("counts = %+v, want %d rows", counts, len(want))
	}
	for i, c := range counts {
		if c.Frame != want[i].Frame || c.Hand != want[i].Hand || c.Fingers != want[i].Fingers {
			t.Errorf("counts[%d] = %+v, want %+v", i, c, want[i])
		}
	}

	status := b.Status()
	if status.Session != sess.ID || status.State != "detecting" || status.Hand || status.Frame != 7 {
		t.Errorf("broadcaster status = %+v", status)
	}
	if app.SessionID() != "" {
		t.Error("SessionID should be cleared after Run")
	}
}

func TestApp_Run_RecordingPaused(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	app := New(Options{
		Config: testConfig(),
		Logger: logging.Discard(),
		Camera: capture.NewMockCamera(cameraFrames(t), false),
		Store:  s,
	})
	app.SetRecording(false)

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	sessions, _ := s.Sessions().List()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	counts, _ := s.Counts().ListBySession(sessions[0].ID)
	if len(counts) != 0 {
		t.Errorf("paused app recorded %d counts", len(counts))
	}
}

func TestApp_Run_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Weight = 2

	cam := capture.NewMockCamera(nil, false)
	app := New(Options{Config: cfg, Logger: logging.Discard(), Camera: cam})

	if err := app.Run(context.Background()); !errors.Is(err, config.ErrInvalidWeight) {
		t.Errorf("Run() error = %v, want ErrInvalidWeight", err)
	}
	if cam.IsOpen() {
		t.Error("camera must not be opened for an invalid config")
	}
}

func TestApp_Run_ROIOutsideFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := testConfig()
	cfg.ROI = config.ROI{Top: 0, Bottom: 480, Left: 0, Right: 640}

	app := New(Options{
		Config: cfg,
		Logger: logging.Discard(),
		Camera: capture.NewMockCamera(cameraFrames(t), false),
	})

	err := app.Run(context.Background())
	if !errors.Is(err, capture.ErrROIOutOfBounds) {
		t.Errorf("Run() error = %v, want ErrROIOutOfBounds", err)
	}
}

func TestApp_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	app := New(Options{
		Config: testConfig(),
		Logger: logging.Discard(),
		Camera: capture.NewMockCamera(nil, true),
	})

	if err := app.Run(ctx); err != nil {
		t.Errorf("Run() error = %v, want nil on cancellation", err)
	}
}
