package session

import "time"

// Status is a point-in-time view of the controller.
type Status struct {
	Mode      string      `json:"mode"`
	Closed    bool        `json:"closed"`
	Live      *LiveStatus `json:"live,omitempty"`
	Recording *RecStatus  `json:"recording,omitempty"`
}

// LiveStatus describes the running segmenter.
type LiveStatus struct {
	SessionID  string    `json:"sessionId"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"startedAt"`
	Chunks     int64     `json:"chunks"`
	Speech     int64     `json:"speechChunks"`
	Utterances int64     `json:"utterances"`
}

// RecStatus describes the open push-to-talk recording.
type RecStatus struct {
	SessionID string    `json:"sessionId"`
	StartedAt time.Time `json:"startedAt"`
	Seconds   float64   `json:"seconds"`
}

// Status returns the current mode and activity.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{Mode: c.mode.String(), Closed: c.closed}
	if c.live != nil {
		stats := c.live.segmenter.Stats()
		st.Live = &LiveStatus{
			SessionID:  c.live.id,
			State:      c.live.segmenter.State().String(),
			StartedAt:  c.live.startedAt,
			Chunks:     stats.Chunks,
			Speech:     stats.Speech,
			Utterances: stats.Utterances,
		}
	}
	if c.recording != nil {
		st.Recording = &RecStatus{
			SessionID: c.recording.ID,
			StartedAt: c.recording.StartedAt,
			Seconds:   time.Since(c.recording.StartedAt).Seconds(),
		}
	}
	return st
}
