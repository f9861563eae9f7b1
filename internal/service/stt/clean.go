package stt

import (
	"regexp"
	"strings"
)

// NonSpeechMarkers are tags engines emit instead of text for non-speech audio.
var NonSpeechMarkers = []string{"[BLANK_AUDIO]", "[SOUND]", "[MUSIC]", "[NOISE]"}

var (
	bracketTag = regexp.MustCompile(`\[[^\[\]]*\]`)
	// logPrefix matches "function_name: ..." diagnostics such as
	// "load_backend:", "ggml_metal_init:" or "main:".
	logPrefix = regexp.MustCompile(`^[a-z][a-z0-9_]*:(\s|$)`)
)

// StripLogLines drops the diagnostic lines a command line engine
// interleaves with transcript text and joins what is left with spaces.
// A line is diagnostic when it starts with "[" (segment timestamps) or
// with an identifier followed by a colon. Transcript lines are indented,
// so spoken words like "system" or "note:" are kept.
func StripLogLines(output string) string {
	var kept []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(line, "[") || logPrefix.MatchString(line) {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, " ")
}

// Clean removes bracketed non-speech tags and collapses whitespace.
// Text that is only a marker cleans to "".
func Clean(text string) string {
	text = strings.TrimSpace(text)
	for _, m := range NonSpeechMarkers {
		if text == m {
			return ""
		}
	}
	text = bracketTag.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
