// Package wumanber implements a Wu-Manber style block-hash multi-pattern
// matcher that indexes text by Unicode characters rather than bytes.
//
// The matcher keeps two tables keyed by the hash of a block of B consecutive
// characters: the shift table holds the smallest distance from any occurrence
// of that block to the end of a pattern, and the suffix table lists the
// patterns whose trailing block hashes to the key. A Matcher is immutable once
// built and safe for concurrent use.
package wumanber

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// Match is a half-open byte interval [Start, End) of the searched text.
// Pattern is the vocabulary term that produced it.
type Match struct {
	Pattern string `json:"pattern"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

type Matcher struct {
	patterns  []string // vocabulary terms as supplied
	processed []string // terms after the space policy
	lengths   []int    // character count of processed terms
	lookup    map[string]struct{}

	minLen    int
	blockSize int
	shift     map[uint64]int
	suffix    map[uint64][]int

	mode    SpaceMode
	workers int
	exprs   []*regexp.Regexp // non-strict modes only
}

type Option func(*Matcher)

// WithBlockSize requests an explicit block size. Values below 1 select the
// derived default; values above the shortest pattern are clamped to it.
func WithBlockSize(b int) Option {
	return func(m *Matcher) {
		m.blockSize = b
	}
}

// WithSpaceMode sets the whitespace policy.
func WithSpaceMode(mode SpaceMode) Option {
	return func(m *Matcher) {
		m.mode = mode
	}
}

// WithWorkers distributes table construction over n goroutines.
func WithWorkers(n int) Option {
	return func(m *Matcher) {
		m.workers = n
	}
}

// New builds a matcher over patterns. It accepts any finite pattern set:
// patterns that become empty under the space policy are dropped and
// duplicates are indexed once.
func New(patterns []string, opts ...Option) *Matcher {
	m := &Matcher{
		lookup: make(map[string]struct{}, len(patterns)),
		shift:  make(map[uint64]int),
		suffix: make(map[uint64][]int),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, p := range patterns {
		pp := m.mode.Apply(p)
		if pp == "" {
			continue
		}
		if _, ok := m.lookup[pp]; ok {
			continue
		}
		m.lookup[pp] = struct{}{}
		n := runeCount(pp)
		m.patterns = append(m.patterns, p)
		m.processed = append(m.processed, pp)
		m.lengths = append(m.lengths, n)
		if m.minLen == 0 || n < m.minLen {
			m.minLen = n
		}
	}

	if len(m.processed) == 0 {
		m.blockSize = 1
		return m
	}

	requested := m.blockSize
	if requested < 1 {
		requested = max(m.minLen/2, 1)
	}
	m.blockSize = min(requested, m.minLen)

	if m.mode != Strict {
		m.exprs = make([]*regexp.Regexp, len(m.processed))
		for i, pp := range m.processed {
			m.exprs[i] = m.mode.spaceRegexp(pp)
		}
		return m
	}

	if m.workers > 1 && len(m.processed) > m.workers {
		m.buildTablesParallel()
	} else {
		m.buildTables()
	}

	return m
}

type tables struct {
	shift  map[uint64]int
	suffix map[uint64][]int
}

func (m *Matcher) buildTables() {
	t := tables{shift: m.shift, suffix: m.suffix}
	for idx := range m.processed {
		m.indexPattern(&t, idx)
	}
}

// buildTablesParallel splits the patterns into contiguous ranges, indexes
// each range into private tables and merges them in range order, which
// yields exactly the tables buildTables produces.
func (m *Matcher) buildTablesParallel() {
	n := len(m.processed)
	size := (n + m.workers - 1) / m.workers
	parts := make([]tables, 0, m.workers)
	for lo := 0; lo < n; lo += size {
		parts = append(parts, tables{shift: make(map[uint64]int), suffix: make(map[uint64][]int)})
	}

	var g errgroup.Group
	for w := range parts {
		lo := w * size
		hi := min(lo+size, n)
		t := &parts[w]
		g.Go(func() error {
			for idx := lo; idx < hi; idx++ {
				m.indexPattern(t, idx)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, t := range parts {
		for h, s := range t.shift {
			if cur, ok := m.shift[h]; !ok || s < cur {
				m.shift[h] = s
			}
		}
		for h, idxs := range t.suffix {
			m.suffix[h] = append(m.suffix[h], idxs...)
		}
	}
}

func (m *Matcher) indexPattern(t *tables, idx int) {
	p := m.processed[idx]
	offs := runeOffsets(p)
	n := len(offs) - 1
	b := m.blockSize
	// Skipping further than minLen-B+1 could step over a shorter pattern
	// ending between the two probes.
	maxShift := m.minLen - b + 1

	for i := 0; i+b <= n; i++ {
		h := xxhash.Sum64String(p[offs[i]:offs[i+b]])
		d := min(n-i-b, maxShift)
		if cur, ok := t.shift[h]; !ok || d < cur {
			t.shift[h] = d
		}
	}

	h := xxhash.Sum64String(p[offs[n-b]:])
	t.suffix[h] = append(t.suffix[h], idx)
}

// scan reports every verified occurrence in order of increasing end
// position until fn returns false. Strict mode only.
func (m *Matcher) scan(text string, fn func(idx, start, end int) bool) {
	if len(m.processed) == 0 || len(text) == 0 {
		return
	}
	offs := runeOffsets(text)
	n := len(offs) - 1
	if n < m.minLen {
		return
	}

	b := m.blockSize
	skip := max(1, m.minLen-b+1)

	for i := m.minLen - 1; i < n; {
		h := xxhash.Sum64String(text[offs[i+1-b]:offs[i+1]])
		s, ok := m.shift[h]
		switch {
		case !ok:
			i += skip
		case s == 0:
			for _, idx := range m.suffix[h] {
				l := m.lengths[idx]
				if l > i+1 {
					continue
				}
				start, end := offs[i+1-l], offs[i+1]
				if text[start:end] == m.processed[idx] {
					if !fn(idx, start, end) {
						return
					}
				}
			}
			i++
		default:
			i += s
		}
	}
}

// Search returns the first pattern found in text.
func (m *Matcher) Search(text string) (string, bool) {
	if m.mode != Strict {
		t := m.mode.Apply(text)
		for idx, pp := range m.processed {
			if strings.Contains(t, pp) {
				return m.patterns[idx], true
			}
		}
		return "", false
	}

	found := -1
	m.scan(text, func(idx, _, _ int) bool {
		found = idx
		return false
	})
	if found < 0 {
		return "", false
	}
	return m.patterns[found], true
}

// Contains reports whether any pattern occurs in text.
func (m *Matcher) Contains(text string) bool {
	_, ok := m.Search(text)
	return ok
}

// FindMatches returns non-overlapping matches, preferring the leftmost and
// then the longest occurrence, ordered by position.
func (m *Matcher) FindMatches(text string) []Match {
	var all []Match
	if m.mode != Strict {
		for idx, re := range m.exprs {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				all = append(all, Match{Pattern: m.patterns[idx], Start: loc[0], End: loc[1]})
			}
		}
	} else {
		m.scan(text, func(idx, start, end int) bool {
			all = append(all, Match{Pattern: m.patterns[idx], Start: start, End: end})
			return true
		})
	}
	return Resolve(all)
}

// SearchAll returns the pattern of every match, in text order.
func (m *Matcher) SearchAll(text string) []string {
	ms := m.FindMatches(text)
	if len(ms) == 0 {
		return nil
	}
	out := make([]string, len(ms))
	for i, mt := range ms {
		out[i] = mt.Pattern
	}
	return out
}

// ReplaceAll replaces every matched character with repl, so each match of
// L characters becomes L copies of repl.
func (m *Matcher) ReplaceAll(text string, repl rune) string {
	return MaskSpans(text, m.FindMatches(text), repl)
}

// RemoveAll deletes every match from text.
func (m *Matcher) RemoveAll(text string) string {
	return StripSpans(text, m.FindMatches(text))
}

func (m *Matcher) Patterns() []string {
	return m.patterns
}

func (m *Matcher) BlockSize() int {
	return m.blockSize
}

// MinLen is the character count of the shortest processed pattern.
func (m *Matcher) MinLen() int {
	return m.minLen
}

func (m *Matcher) Mode() SpaceMode {
	return m.mode
}

// MemoryStats is a rough estimate of the memory held by a Matcher.
type MemoryStats struct {
	Patterns      int `json:"patterns"`
	PatternBytes  int `json:"pattern_bytes"`
	ShiftEntries  int `json:"shift_entries"`
	SuffixEntries int `json:"suffix_entries"`
	TotalBytes    int `json:"total_bytes"`
}

func (m *Matcher) Stats() MemoryStats {
	st := MemoryStats{
		Patterns:     len(m.patterns),
		ShiftEntries: len(m.shift),
	}
	for i := range m.patterns {
		st.PatternBytes += len(m.patterns[i]) + len(m.processed[i])
	}
	suffixBytes := 0
	for _, idxs := range m.suffix {
		st.SuffixEntries += len(idxs)
		suffixBytes += 8 + 24 + 8*len(idxs)
	}
	st.TotalBytes = st.PatternBytes + 16*st.ShiftEntries + suffixBytes + 8*len(m.lengths)
	return st
}

// runeOffsets returns the byte offset of every character of s followed by len(s).
func runeOffsets(s string) []int {
	offs := make([]int, 0, len(s)+1)
	for i := 0; i < len(s); {
		offs = append(offs, i)
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return append(offs, len(s))
}
