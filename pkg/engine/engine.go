// Package engine selects and drives a multi-pattern matching backend for a
// vocabulary: the block-hash matcher for small vocabularies, an Aho-Corasick
// automaton for medium ones and a single compiled alternation for very large
// ones.
//
// An Engine is immutable. Vocabulary changes go through Rebuild, which returns
// a new Engine, so readers holding the old one are never disturbed.
package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"wordguard/pkg/wumanber"
)

type Algorithm int

const (
	WuManber Algorithm = iota
	AhoCorasick
	Regex
)

const (
	smallVocabulary  = 100
	mediumVocabulary = 10_000
)

func (a Algorithm) String() string {
	switch a {
	case WuManber:
		return "wumanber"
	case AhoCorasick:
		return "aho-corasick"
	case Regex:
		return "regex"
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// ParseAlgorithm maps a config value to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wumanber", "wu-manber", "wm":
		return WuManber, nil
	case "aho-corasick", "ahocorasick", "ac":
		return AhoCorasick, nil
	case "regex", "regexp":
		return Regex, nil
	}
	return WuManber, fmt.Errorf("unknown algorithm %q", s)
}

// Recommend picks a backend from the vocabulary size.
func Recommend(n int) Algorithm {
	switch {
	case n <= smallVocabulary:
		return WuManber
	case n <= mediumVocabulary:
		return AhoCorasick
	default:
		return Regex
	}
}

// Match is a byte interval of the searched text and the term found there.
type Match = wumanber.Match

type Options struct {
	// Algorithm forces a backend when Forced is set; otherwise the backend
	// is re-selected with Recommend on every build.
	Algorithm Algorithm
	Forced    bool

	BlockSize int
	SpaceMode wumanber.SpaceMode
	Workers   int
}

type Engine struct {
	opts      Options
	algorithm Algorithm
	patterns  []string
	backend   backend
}

// New builds an engine over patterns. Backend construction failures are not
// returned: the engine degrades to the block-hash matcher, which accepts any
// pattern set.
func New(patterns []string, opts Options) *Engine {
	e := &Engine{opts: opts}
	for _, p := range patterns {
		if p != "" {
			e.patterns = append(e.patterns, p)
		}
	}

	alg := Recommend(len(e.patterns))
	if opts.Forced {
		alg = opts.Algorithm
	}

	b, err := e.build(alg)
	if err != nil {
		log.Warnf("[engine] failed to build %s backend for %d patterns, falling back to %s: %v", alg, len(e.patterns), WuManber, err)
		alg = WuManber
		b = e.newWuManber()
	}
	e.algorithm = alg
	e.backend = b

	log.Debugf("[engine] built %s backend for %d patterns", alg, len(e.patterns))
	return e
}

// Rebuild returns a new engine over patterns with the same options.
func (e *Engine) Rebuild(patterns []string) *Engine {
	return New(patterns, e.opts)
}

// RebuildWith returns a new engine over patterns forced to alg.
func (e *Engine) RebuildWith(patterns []string, alg Algorithm) *Engine {
	opts := e.opts
	opts.Algorithm = alg
	opts.Forced = true
	return New(patterns, opts)
}

func (e *Engine) build(alg Algorithm) (backend, error) {
	switch alg {
	case WuManber:
		return e.newWuManber(), nil
	case AhoCorasick:
		return newACBackend(e.patterns)
	case Regex:
		return newRegexBackend(e.patterns)
	}
	return nil, fmt.Errorf("unknown algorithm %d", int(alg))
}

func (e *Engine) newWuManber() backend {
	return wmBackend{m: wumanber.New(e.patterns,
		wumanber.WithBlockSize(e.opts.BlockSize),
		wumanber.WithSpaceMode(e.opts.SpaceMode),
		wumanber.WithWorkers(e.opts.Workers),
	)}
}

// Algorithm returns the backend in use, after any fallback.
func (e *Engine) Algorithm() Algorithm {
	return e.algorithm
}

// SpaceMode returns how whitespace is treated while matching.
func (e *Engine) SpaceMode() wumanber.SpaceMode {
	return e.opts.SpaceMode
}

func (e *Engine) Patterns() []string {
	return e.patterns
}

// MaxPatternLen is the character count of the longest pattern.
func (e *Engine) MaxPatternLen() int {
	n := 0
	for _, p := range e.patterns {
		n = max(n, utf8.RuneCountInString(p))
	}
	return n
}

// FindFirst returns the first term found in text.
func (e *Engine) FindFirst(text string) (string, bool) {
	if len(e.patterns) == 0 {
		return "", false
	}
	return e.backend.findFirst(text)
}

func (e *Engine) Contains(text string) bool {
	_, ok := e.FindFirst(text)
	return ok
}

// FindMatches returns leftmost-longest, non-overlapping matches in text order.
func (e *Engine) FindMatches(text string) []Match {
	if len(e.patterns) == 0 {
		return nil
	}
	return e.backend.findMatches(text)
}

// FindAll returns the term of every match, in text order.
func (e *Engine) FindAll(text string) []string {
	ms := e.FindMatches(text)
	if len(ms) == 0 {
		return nil
	}
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Pattern
	}
	return out
}

// Replace substitutes every matched character with repl, preserving the
// character length of each match.
func (e *Engine) Replace(text string, repl rune) string {
	return wumanber.MaskSpans(text, e.FindMatches(text), repl)
}

// Remove deletes every match from text.
func (e *Engine) Remove(text string) string {
	return wumanber.StripSpans(text, e.FindMatches(text))
}

type Stats struct {
	Algorithm    string `json:"algorithm"`
	PatternCount int    `json:"pattern_count"`
	MemoryBytes  int    `json:"memory_bytes"`
}

func (e *Engine) Stats() Stats {
	return Stats{
		Algorithm:    e.algorithm.String(),
		PatternCount: len(e.patterns),
		MemoryBytes:  e.estimateMemory(),
	}
}

func (e *Engine) estimateMemory() int {
	patternBytes := 0
	for _, p := range e.patterns {
		patternBytes += len(p)
	}
	return patternBytes + e.backend.memory(patternBytes)
}
