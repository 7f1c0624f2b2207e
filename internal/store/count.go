package store

import (
	"database/sql"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Count is a finger count observed from Frame onwards, until the next
// recorded change.
type Count struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Frame      int       `json:"frame"`
	Hand       bool      `json:"hand"`
	Fingers    int       `json:"fingers"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Histogram summarises how long each finger count was held in a session.
type Histogram struct {
	// Frames maps a finger count to the number of frames it was shown.
	Frames map[int]int `json:"frames"`
	// HandFrames is the number of detecting frames with a hand in view.
	HandFrames int `json:"hand_frames"`
	// Mean is the frame-weighted mean finger count.
	Mean float64 `json:"mean"`
	// Mode is the count shown for the most frames.
	Mode int `json:"mode"`
}

// CountRepository provides access to recorded counts.
type CountRepository struct {
	db *sql.DB
}

// Counts returns the count repository for this store.
func (s *Store) Counts() *CountRepository {
	return &CountRepository{db: s.db}
}

// Record inserts c and sets its ID.
func (r *CountRepository) Record(c *Count) error {
	if c.RecordedAt.IsZero() {
		c.RecordedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO counts (session_id, frame, hand, fingers, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		c.SessionID, c.Frame, c.Hand, c.Fingers, c.RecordedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// ListBySession returns the counts of a session in frame order.
func (r *CountRepository) ListBySession(sessionID string) ([]Count, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, frame, hand, fingers, recorded_at
		 FROM counts WHERE session_id = ? ORDER BY frame, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Frame, &c.Hand, &c.Fingers, &c.RecordedAt); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// Histogram returns the frame-weighted finger count distribution of a
// session. Each count lasts until the next one; the last lasts until the
// session's recorded frame total, or one frame if the session is still open.
func (r *CountRepository) Histogram(sessionID string) (*Histogram, error) {
	sess, err := (&SessionRepository{db: r.db}).GetByID(sessionID)
	if err != nil {
		return nil, err
	}

	counts, err := r.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}

	return buildHistogram(counts, sess.Frames), nil
}

func buildHistogram(counts []Count, totalFrames int) *Histogram {
	h := &Histogram{Frames: make(map[int]int)}

	var values, weights []float64
	for i, c := range counts {
		end := totalFrames
		if i+1 < len(counts) {
			end = counts[i+1].Frame
		}
		span := end - c.Frame
		if span < 1 {
			span = 1
		}
		if !c.Hand {
			continue
		}

		h.Frames[c.Fingers] += span
		h.HandFrames += span
		values = append(values, float64(c.Fingers))
		weights = append(weights, float64(span))
	}

	if len(values) == 0 {
		return h
	}

	h.Mean = stat.Mean(values, weights)
	mode, _ := stat.Mode(values, weights)
	h.Mode = int(mode)
	return h
}
