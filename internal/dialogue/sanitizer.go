package dialogue

import (
	"strings"

	"github.com/radio-t/doc-podcast/podcast"
)

// label pattern builders, tried in order during detection. Removal uses the
// bracketed/bold/at forms before the plain one so "@Alex:" is not left as a
// dangling "@" after "Alex:" is cut out.
var labelPatterns = []func(name string) string{
	func(n string) string { return n + ":" },
	func(n string) string { return "[" + n + "]:" },
	func(n string) string { return "**" + n + "**:" },
	func(n string) string { return "@" + n + ":" },
}

// Sanitizer parses raw model output: detects which host is speaking from a
// leading label, strips every label occurrence and formatting artifact, and
// normalizes whitespace. Detection and cleaning are separate steps so each
// can be tested on its own.
type Sanitizer struct{}

// NewSanitizer creates a new sanitizer
func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// Sanitize returns the detected speaker and the cleaned turn text. The
// expected speaker is used only when no label matches. Cleaning never yields
// an empty turn: if full cleaning would, the bold-stripped original is used
// instead, paired with the already-detected speaker.
func (s *Sanitizer) Sanitize(raw string, expected podcast.Speaker) (podcast.Speaker, string) {
	detected := s.Detect(raw, expected)
	cleaned := s.Clean(raw)
	if cleaned == "" {
		cleaned = strings.TrimSpace(strings.ReplaceAll(raw, "**", ""))
	}
	return detected, cleaned
}

// Detect finds the speaking host from a label at the start of the trimmed
// raw text. Patterns are tried in a fixed order, case-insensitively; the
// first match wins. A label further into the text is a mention, not an
// attribution, so with no leading match the expected speaker is returned.
func (s *Sanitizer) Detect(raw string, expected podcast.Speaker) podcast.Speaker {
	trimmed := strings.TrimSpace(raw)
	for _, pattern := range labelPatterns {
		for _, sp := range podcast.Speakers() {
			if hasPrefixFold(trimmed, pattern(sp.Name())) {
				return sp
			}
		}
	}
	return expected
}

// Clean removes every label occurrence for both hosts, strips bold markers
// and collapses all whitespace runs into single spaces.
func (s *Sanitizer) Clean(raw string) string {
	cleaned := raw
	// longer variants first so the plain "Name:" cut never leaves brackets
	// or markers behind
	for i := len(labelPatterns) - 1; i >= 0; i-- {
		for _, sp := range podcast.Speakers() {
			cleaned = removeAllFold(cleaned, labelPatterns[i](sp.Name()))
		}
	}
	cleaned = strings.ReplaceAll(cleaned, "**", "")
	return strings.Join(strings.Fields(cleaned), " ")
}

// hasPrefixFold reports whether s starts with prefix, case-insensitively.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// removeAllFold removes every case-insensitive occurrence of sub from s.
// Labels are ASCII so the lowered string keeps byte offsets aligned.
func removeAllFold(s, sub string) string {
	lower := strings.ToLower(s)
	lowerSub := strings.ToLower(sub)
	var b strings.Builder
	for {
		i := strings.Index(lower, lowerSub)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		s = s[i+len(sub):]
		lower = lower[i+len(lowerSub):]
	}
}
