package store

import (
	"log/slog"
	"sync"

	"github.com/ayusman/fingercount/internal/session"
)

// Journal is a session.Sink that records a session and every change of the
// observed finger count. Frames with an unchanged count are not written.
// While paused, frames are counted but nothing is recorded.
type Journal struct {
	store   *Store
	session *Session
	logger  *slog.Logger

	mu      sync.Mutex
	frames  int
	seen    bool
	hand    bool
	fingers int
	paused  bool
	closed  bool
}

// NewJournal creates the session row for a run with cfg.
func NewJournal(s *Store, cfg session.Config, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sess := &Session{
		CalibrationFrames: cfg.CalibrationFrames,
		Threshold:         float64(cfg.Threshold),
		Weight:            cfg.Weight,
	}
	if err := s.Sessions().Create(sess); err != nil {
		return nil, err
	}

	return &Journal{
		store:   s,
		session: sess,
		logger:  logger.With("component", "journal", "session", sess.ID),
	}, nil
}

// SessionID returns the ID of the recorded session.
func (j *Journal) SessionID() string {
	return j.session.ID
}

// Emit records u if the hand appeared, disappeared or changed its count.
func (j *Journal) Emit(u session.Update) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	r := u.Result
	j.frames = r.Index + 1

	if j.paused || r.State != session.Detecting {
		return nil
	}
	if j.seen && r.Hand == j.hand && r.Fingers == j.fingers {
		return nil
	}

	c := &Count{
		SessionID:  j.session.ID,
		Frame:      r.Index,
		Hand:       r.Hand,
		Fingers:    r.Fingers,
		RecordedAt: u.Time,
	}
	if err := j.store.Counts().Record(c); err != nil {
		return err
	}

	j.seen = true
	j.hand = r.Hand
	j.fingers = r.Fingers
	j.logger.Debug("count changed", "frame", r.Index, "hand", r.Hand, "fingers", r.Fingers)
	return nil
}

// SetPaused stops or resumes recording. The first detecting frame after a
// resume is always recorded.
func (j *Journal) SetPaused(paused bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.paused && !paused {
		j.seen = false
	}
	j.paused = paused
}

// Close ends the session with the number of frames seen. It is safe to call
// more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.store.Sessions().End(j.session.ID, j.frames)
}
