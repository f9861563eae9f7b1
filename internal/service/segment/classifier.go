package segment

import (
	"errors"
	"fmt"

	"voice-dictation/internal/service/audio"
)

// DefaultSpeechThreshold is the chunk size above which a 5 s, 16 kHz
// mono 16-bit capture is treated as speech.
const DefaultSpeechThreshold int64 = 100000

// ErrUnknownClassifier is returned for an unsupported classifier name.
var ErrUnknownClassifier = errors.New("unknown classifier")

// Class is the speech/silence decision for one chunk.
type Class int

const (
	Silence Class = iota
	Speech
)

func (c Class) String() string {
	if c == Speech {
		return "speech"
	}
	return "silence"
}

// Classifier decides whether a captured chunk contains speech.
type Classifier interface {
	Classify(chunk audio.Chunk) Class
}

// SizeClassifier marks a chunk as speech iff its file is strictly larger
// than Threshold bytes. It does not look at the audio itself.
type SizeClassifier struct {
	Threshold int64
}

func (c SizeClassifier) Classify(chunk audio.Chunk) Class {
	if chunk.Size > c.Threshold {
		return Speech
	}
	return Silence
}

// NewClassifier builds a classifier by name. Only "size" exists today.
func NewClassifier(name string, threshold int64) (Classifier, error) {
	if threshold <= 0 {
		threshold = DefaultSpeechThreshold
	}
	switch name {
	case "", "size":
		return SizeClassifier{Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownClassifier, name)
	}
}
