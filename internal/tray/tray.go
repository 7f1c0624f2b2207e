// Package tray shows the live finger count in the system tray.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/fingercount/internal/session"
)

// Tray represents the system tray application. It is a session.Sink: every
// update refreshes the tray title.
type Tray struct {
	calibrationFrames int

	onToggle  func(recording bool)
	onOpen    func()
	onQuit    func()
	recording bool
	ready     bool
	title     string
	status    string
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray with recording enabled. calibrationFrames is used
// for the progress shown while the background is averaged.
func New(calibrationFrames int) *Tray {
	return &Tray{
		calibrationFrames: calibrationFrames,
		recording:         true,
		title:             "…",
	}
}

// OnToggle sets the callback function to be called when recording is toggled.
func (t *Tray) OnToggle(fn func(recording bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback function to be called when the dashboard item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called and must run on the main thread.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	t.mu.Lock()
	systray.SetTitle(t.title)
	systray.SetTooltip("Finger Count")

	t.menuStatus = systray.AddMenuItem(statusText(session.Result{}, t.calibrationFrames), "Pipeline state")
	t.menuStatus.Disable()
	systray.AddSeparator()

	t.menuToggle = systray.AddMenuItem(toggleText(t.recording), "Record counts to the journal")
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Dashboard...", "Open the live view in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Finger Count")
	t.ready = true
	t.mu.Unlock()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = false
}

// Emit updates the tray title and status line for u.
func (t *Tray) Emit(u session.Update) error {
	title := titleText(u.Result)
	status := statusText(u.Result, t.calibrationFrames)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ready && title != t.title {
		systray.SetTitle(title)
	}
	if t.ready && status != t.status {
		t.menuStatus.SetTitle(status)
	}
	t.title = title
	t.status = status
	return nil
}

// Title returns the current tray title.
func (t *Tray) Title() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.title
}

// handleToggle handles the recording menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.recording = !t.recording
	recording := t.recording

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleText(recording))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(recording)
	}
}

// handleOpen handles the dashboard menu item click.
func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// IsRecording returns the current recording state.
func (t *Tray) IsRecording() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.recording
}

func titleText(r session.Result) string {
	switch {
	case r.State == session.Calibrating:
		return "…"
	case !r.Hand:
		return "✋ -"
	default:
		return fmt.Sprintf("✋ %d", r.Fingers)
	}
}

func statusText(r session.Result, calibrationFrames int) string {
	switch {
	case r.State == session.Calibrating:
		return fmt.Sprintf("Calibrating %d/%d", r.Index+1, calibrationFrames)
	case !r.Hand:
		return "No hand"
	default:
		return fmt.Sprintf("Fingers: %d", r.Fingers)
	}
}

func toggleText(recording bool) string {
	if recording {
		return "● Recording"
	}
	return "○ Paused"
}
