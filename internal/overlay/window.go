package overlay

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingercount/internal/session"
)

// Window titles.
const (
	FrameWindow = "Finger Count"
	MaskWindow  = "Thresholded"
)

// KeyEsc is the key code that ends the session.
const KeyEsc = 27

// WindowSink shows the annotated frame and the hand mask in two OpenCV
// windows. It expects Display to be annotated already (see Annotated).
type WindowSink struct {
	frame *gocv.Window
	mask  *gocv.Window
	mu    sync.Mutex
}

// NewWindowSink opens both windows. It must be called from the goroutine that
// runs the session, since HighGUI is not thread safe.
func NewWindowSink() *WindowSink {
	return &WindowSink{
		frame: gocv.NewWindow(FrameWindow),
		mask:  gocv.NewWindow(MaskWindow),
	}
}

// Emit shows u and polls the keyboard. Esc returns session.ErrStop.
func (w *WindowSink) Emit(u session.Update) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frame == nil {
		return session.ErrStop
	}

	w.frame.IMShow(u.Display)
	if u.Result.Hand {
		w.mask.IMShow(u.Result.Mask)
	}

	if key := w.frame.WaitKey(1); key&0xFF == KeyEsc {
		return session.ErrStop
	}
	return nil
}

// Close destroys both windows.
func (w *WindowSink) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frame == nil {
		return nil
	}
	w.frame.Close()
	w.mask.Close()
	w.frame = nil
	w.mask = nil
	return nil
}
