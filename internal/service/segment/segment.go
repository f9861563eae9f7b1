package segment

import (
	"fmt"
	"sync/atomic"
)

// Generator hands out utterance IDs for one live session:
// "<session>-utt-1", "<session>-utt-2", ...
type Generator struct {
	sessionId string
	n         atomic.Uint64
}

func NewGenerator(sessionId string) *Generator {
	return &Generator{sessionId: sessionId}
}

func (g *Generator) Next() string {
	return fmt.Sprintf("%s-utt-%d", g.sessionId, g.n.Add(1))
}

// Issued reports how many IDs have been handed out.
func (g *Generator) Issued() uint64 {
	return g.n.Load()
}
