package segment

import (
	"time"

	"voice-dictation/internal/service/audio"
)

// Utterance is the ordered run of speech chunks awaiting a flush.
type Utterance struct {
	ID     string
	Chunks []audio.Chunk
}

func NewUtterance(id string) *Utterance {
	return &Utterance{ID: id}
}

func (u *Utterance) Append(c audio.Chunk) {
	u.Chunks = append(u.Chunks, c)
}

func (u *Utterance) Empty() bool {
	return len(u.Chunks) == 0
}

func (u *Utterance) Len() int {
	return len(u.Chunks)
}

// Paths returns member files in capture order.
func (u *Utterance) Paths() []string {
	out := make([]string, len(u.Chunks))
	for i, c := range u.Chunks {
		out[i] = c.Path
	}
	return out
}

func (u *Utterance) Bytes() int64 {
	var n int64
	for _, c := range u.Chunks {
		n += c.Size
	}
	return n
}

func (u *Utterance) Duration() time.Duration {
	var d time.Duration
	for _, c := range u.Chunks {
		d += c.Duration
	}
	return d
}
