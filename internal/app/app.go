// Package app wires the camera, the counting session and its outputs together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ayusman/fingercount/internal/capture"
	"github.com/ayusman/fingercount/internal/config"
	"github.com/ayusman/fingercount/internal/server"
	"github.com/ayusman/fingercount/internal/session"
	"github.com/ayusman/fingercount/internal/store"
	"github.com/ayusman/fingercount/internal/tray"
)

// Options holds the collaborators of an App. Every field except Config is
// optional.
type Options struct {
	Config config.Config
	Logger *slog.Logger

	// Camera overrides the source selected by Config.
	Camera capture.Camera
	// Store enables the count journal.
	Store *store.Store
	// Broadcaster receives annotated frames for the HTTP server.
	Broadcaster *server.Broadcaster
	// Tray shows the count in the system tray.
	Tray *tray.Tray
}

// App is the main application that runs one counting session at a time.
type App struct {
	opts      Options
	logger    *slog.Logger
	camera    capture.Camera
	recording bool
	running   bool
	journal   *store.Journal
	mu        sync.RWMutex
}

// New creates a new App. It does not touch the camera until Run.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	camera := opts.Camera
	if camera == nil {
		camera = opts.Config.Camera()
	}

	a := &App{
		opts:      opts,
		logger:    logger.With("component", "app"),
		camera:    camera,
		recording: true,
	}

	if opts.Tray != nil {
		opts.Tray.OnToggle(a.SetRecording)
	}
	return a
}

// SetRecording enables or disables writing counts to the journal.
func (a *App) SetRecording(recording bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recording = recording
	if a.journal != nil {
		a.journal.SetPaused(!recording)
	}
	a.logger.Info("journal recording", "enabled", recording)
}

// IsRecording returns whether counts are written to the journal.
func (a *App) IsRecording() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.recording
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// SessionID returns the journal ID of the running session, or "".
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.journal == nil {
		return ""
	}
	return a.journal.SessionID()
}

// Run opens the camera and counts fingers until ctx is cancelled, the
// preview window is closed with Esc, or the camera stream ends. Only one
// Run may be active at a time.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	cfg := a.opts.Config
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	defer func() {
		if err := a.camera.Close(); err != nil {
			a.logger.Warn("error closing camera", "error", err)
		}
	}()
	a.camera.SetFPS(cfg.FPS)

	ctrl := session.New(cfg.Session(), a.opts.Logger)
	defer ctrl.Close()

	sinks, closeSinks, err := a.pipeline(ctrl.Config())
	if err != nil {
		return err
	}
	defer closeSinks()

	src := capture.NewSource(a.camera, cfg.Preprocessor())

	a.logger.Info("session started",
		"roi", cfg.ROI.Rect(),
		"calibration_frames", ctrl.Config().CalibrationFrames,
		"session", a.SessionID(),
	)
	err = ctrl.Run(ctx, src, sinks...)
	a.logger.Info("session stopped", "frames", ctrl.Frames())
	return err
}
