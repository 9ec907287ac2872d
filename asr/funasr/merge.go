package funasr

import (
	"strings"
	"unicode/utf8"
)

// MergeResults folds a stream of result events into one transcript.
// Partials within a sentence replace each other with the more complete
// text, finished sentences are appended as stable segments, and repeated
// or overlapping segments are collapsed. When nothing stable survives the
// last non-empty text is returned.
func MergeResults(events []Event) string {
	var (
		segments    []string
		partial     string
		lastNonZero string
	)
	for _, ev := range events {
		if ev.Type != EventResult {
			continue
		}
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			continue
		}
		lastNonZero = text
		if ev.SentenceEnd {
			segments = appendStableSegment(segments, preferMoreComplete(partial, text))
			partial = ""
			continue
		}
		partial = preferMoreComplete(partial, text)
	}
	if partial != "" {
		segments = appendStableSegment(segments, partial)
	}

	if merged := strings.TrimSpace(strings.Join(segments, "")); merged != "" {
		return merged
	}
	return lastNonZero
}

func appendStableSegment(segments []string, candidate string) []string {
	text := strings.TrimSpace(candidate)
	if text == "" {
		return segments
	}
	if len(segments) == 0 {
		return append(segments, text)
	}

	last := len(segments) - 1
	prev := segments[last]
	switch {
	case strings.Contains(prev, text):
		return segments
	case strings.Contains(text, prev):
		segments[last] = text
		return segments
	}
	if n := longestSuffixPrefixOverlap(prev, text); n > 0 {
		segments[last] = prev + text[n:]
		return segments
	}
	return append(segments, text)
}

func preferMoreComplete(existing, incoming string) string {
	left, right := strings.TrimSpace(existing), strings.TrimSpace(incoming)
	switch {
	case left == "":
		return right
	case right == "", left == right:
		return left
	case strings.HasPrefix(right, left):
		return right
	case strings.HasPrefix(left, right):
		return left
	case strings.Contains(left, right):
		return left
	case strings.Contains(right, left):
		return right
	}
	if n := longestSuffixPrefixOverlap(left, right); n > 0 {
		return left + right[n:]
	}
	if utf8.RuneCountInString(right) >= utf8.RuneCountInString(left) {
		return right
	}
	return left
}

// longestSuffixPrefixOverlap returns the byte length of the longest prefix
// of right that is also a suffix of left. Only rune boundaries are tried.
func longestSuffixPrefixOverlap(left, right string) int {
	for n := min(len(left), len(right)); n > 0; n-- {
		if n < len(right) && !utf8.RuneStart(right[n]) {
			continue
		}
		if strings.HasSuffix(left, right[:n]) {
			return n
		}
	}
	return 0
}
