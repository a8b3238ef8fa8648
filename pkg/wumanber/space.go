package wumanber

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SpaceMode controls how whitespace inside patterns and text is canonicalized
// before comparison.
type SpaceMode int

const (
	// Strict compares patterns and text as they are.
	Strict SpaceMode = iota
	// IgnoreSpaces removes all whitespace from both sides.
	IgnoreSpaces
	// NormalizeSpaces collapses every run of whitespace into a single space.
	NormalizeSpaces
)

// spaceClass matches exactly the runes unicode.IsSpace reports as whitespace.
const spaceClass = `[\t\n\v\f\r\x{85}\p{Z}]`

func (m SpaceMode) String() string {
	switch m {
	case Strict:
		return "strict"
	case IgnoreSpaces:
		return "ignore"
	case NormalizeSpaces:
		return "normalize"
	}
	return fmt.Sprintf("SpaceMode(%d)", int(m))
}

// ParseSpaceMode maps a config value to a SpaceMode. Empty string means Strict.
func ParseSpaceMode(s string) (SpaceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "ignore", "ignore_spaces", "ignorespaces":
		return IgnoreSpaces, nil
	case "normalize", "normalize_spaces", "normalizespaces":
		return NormalizeSpaces, nil
	}
	return Strict, fmt.Errorf("unknown space mode %q", s)
}

// Apply canonicalizes s according to the mode.
func (m SpaceMode) Apply(s string) string {
	switch m {
	case IgnoreSpaces:
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, s)
	case NormalizeSpaces:
		var sb strings.Builder
		sb.Grow(len(s))
		inSpace := false
		for _, r := range s {
			if unicode.IsSpace(r) {
				if !inSpace {
					sb.WriteByte(' ')
				}
				inSpace = true
				continue
			}
			inSpace = false
			sb.WriteRune(r)
		}
		return sb.String()
	}
	return s
}

// spaceRegexp compiles a pattern (already passed through Apply) into an
// expression that finds it in untransformed text, so that non-strict modes can
// still report byte offsets into the original input. Every literal rune is
// quoted, so compilation cannot fail.
func (m SpaceMode) spaceRegexp(processed string) *regexp.Regexp {
	var sb strings.Builder
	switch m {
	case IgnoreSpaces:
		first := true
		for _, r := range processed {
			if !first {
				sb.WriteString(spaceClass + "*")
			}
			first = false
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	case NormalizeSpaces:
		for _, r := range processed {
			if r == ' ' {
				sb.WriteString(spaceClass + "+")
				continue
			}
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	default:
		sb.WriteString(regexp.QuoteMeta(processed))
	}
	return regexp.MustCompile(sb.String())
}

func runeCount(s string) int {
	return utf8.RuneCountInString(s)
}
