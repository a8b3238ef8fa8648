package wumanber

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Resolve reduces possibly overlapping matches to a leftmost-longest,
// non-overlapping set ordered by position. The input slice is reordered.
func Resolve(ms []Match) []Match {
	if len(ms) == 0 {
		return nil
	}
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Start != ms[j].Start {
			return ms[i].Start < ms[j].Start
		}
		return ms[i].End > ms[j].End
	})

	out := ms[:0]
	lastEnd := -1
	for _, m := range ms {
		if m.Start < lastEnd {
			continue
		}
		out = append(out, m)
		lastEnd = m.End
	}
	return out
}

// MaskSpans replaces every character covered by at least one span with repl.
// Overlapping spans are masked once, so a shorter span can never disturb the
// characters of a longer one.
func MaskSpans(text string, spans []Match, repl rune) string {
	return rewrite(text, spans, func(sb *strings.Builder) {
		sb.WriteRune(repl)
	})
}

// StripSpans removes every character covered by at least one span.
func StripSpans(text string, spans []Match) string {
	return rewrite(text, spans, func(*strings.Builder) {})
}

func rewrite(text string, spans []Match, covered func(*strings.Builder)) string {
	if len(spans) == 0 {
		return text
	}
	mask := make([]bool, len(text))
	for _, s := range spans {
		for i := max(s.Start, 0); i < s.End && i < len(text); i++ {
			mask[i] = true
		}
	}

	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		if mask[i] {
			covered(&sb)
		} else {
			sb.WriteString(text[i : i+size])
		}
		i += size
	}
	return sb.String()
}
