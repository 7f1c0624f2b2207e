package server

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingercount/internal/session"
)

// Status is the latest pipeline output as served to HTTP clients.
type Status struct {
	Session   string `json:"session,omitempty"`
	State     string `json:"state"`
	Frame     int    `json:"frame"`
	Hand      bool   `json:"hand"`
	Fingers   int    `json:"fingers"`
	Timestamp int64  `json:"timestamp"`
}

// Broadcaster is a session.Sink that keeps the latest status and JPEG frame
// and wakes subscribed HTTP clients. Frames are only encoded while at least
// one stream client is connected.
type Broadcaster struct {
	mu      sync.RWMutex
	status  Status
	jpeg    []byte
	subs    map[chan struct{}]struct{}
	session string
	streams atomic.Int32
}

// NewBroadcaster returns a Broadcaster in the initial calibrating state.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		status: Status{State: session.Calibrating.String()},
		subs:   make(map[chan struct{}]struct{}),
	}
}

// SetSession tags subsequent statuses with a journal session ID.
func (b *Broadcaster) SetSession(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = id
	b.status.Session = id
}

// Emit records u and notifies subscribers.
func (b *Broadcaster) Emit(u session.Update) error {
	var jpeg []byte
	if b.streams.Load() > 0 && !u.Display.Empty() {
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, u.Display)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", u.Result.Index, err)
		}
		jpeg = bytes.Clone(buf.GetBytes())
		buf.Close()
	}

	ts := u.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.status = Status{
		Session:   b.session,
		State:     u.Result.State.String(),
		Frame:     u.Result.Index,
		Hand:      u.Result.Hand,
		Fingers:   u.Result.Fingers,
		Timestamp: ts.UnixMilli(),
	}
	if jpeg != nil {
		b.jpeg = jpeg
	}

	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Status returns the latest status.
func (b *Broadcaster) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Frame returns the latest encoded frame, or nil if none was encoded yet.
func (b *Broadcaster) Frame() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.jpeg
}

// Subscribe returns a channel that receives a signal after each Emit. Signals
// are coalesced; read Status or Frame for the data. Call cancel when done.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// watchFrames marks a stream client as connected until the returned func runs.
func (b *Broadcaster) watchFrames() func() {
	b.streams.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { b.streams.Add(-1) })
	}
}
