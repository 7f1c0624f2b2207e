package app

import (
	"github.com/ayusman/fingercount/internal/overlay"
	"github.com/ayusman/fingercount/internal/session"
	"github.com/ayusman/fingercount/internal/store"
)

// pipeline builds the sinks for one session. The returned func releases
// them and must be called after the session loop ends.
//
// Sink order:
//  1. Annotate the frame once, then show it in the preview window and hand it
//     to the HTTP broadcaster
//  2. Journal count changes
//  3. Update the tray title
func (a *App) pipeline(cfg session.Config) ([]session.Sink, func(), error) {
	var (
		sinks   []session.Sink
		closers []func()
		display []session.Sink
	)

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if a.opts.Config.Window {
		w := overlay.NewWindowSink()
		display = append(display, w)
		closers = append(closers, func() { w.Close() })
	}
	if a.opts.Broadcaster != nil {
		display = append(display, a.opts.Broadcaster)
	}
	if len(display) > 0 {
		sinks = append(sinks, overlay.Annotated(overlay.Options{}, display...))
	}

	if a.opts.Store != nil {
		j, err := store.NewJournal(a.opts.Store, cfg, a.opts.Logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}

		a.mu.Lock()
		a.journal = j
		j.SetPaused(!a.recording)
		a.mu.Unlock()

		if a.opts.Broadcaster != nil {
			a.opts.Broadcaster.SetSession(j.SessionID())
		}

		sinks = append(sinks, j)
		closers = append(closers, func() {
			if err := j.Close(); err != nil {
				a.logger.Warn("error ending journal session", "error", err)
			}
			a.mu.Lock()
			a.journal = nil
			a.mu.Unlock()
		})
	}

	if a.opts.Tray != nil {
		sinks = append(sinks, a.opts.Tray)
	}

	return sinks, closeAll, nil
}
