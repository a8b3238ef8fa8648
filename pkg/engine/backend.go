package engine

import (
	"fmt"
	"regexp"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"wordguard/pkg/wumanber"
)

// backend is implemented only by the three types below, so an Engine always
// carries exactly one of them.
type backend interface {
	findFirst(text string) (string, bool)
	findMatches(text string) []Match
	memory(patternBytes int) int
}

type wmBackend struct {
	m *wumanber.Matcher
}

func (b wmBackend) findFirst(text string) (string, bool) {
	return b.m.Search(text)
}

func (b wmBackend) findMatches(text string) []Match {
	return b.m.FindMatches(text)
}

func (b wmBackend) memory(int) int {
	return b.m.Stats().TotalBytes
}

type acBackend struct {
	ac ahocorasick.AhoCorasick
}

// newACBackend converts a panic inside the automaton builder into an error so
// the engine can fall back.
func newACBackend(patterns []string) (b backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = fmt.Errorf("aho-corasick build: %v", r)
		}
	}()

	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		MatchKind: ahocorasick.LeftMostLongestMatch,
		DFA:       true,
	})
	return acBackend{ac: builder.Build(patterns)}, nil
}

func (b acBackend) findFirst(text string) (string, bool) {
	m := b.ac.Iter(text).Next()
	if m == nil {
		return "", false
	}
	return text[m.Start():m.End()], true
}

// findMatches keeps the first of every run of overlapping matches. The
// iterator resumes one byte after each match start, so it yields the longest
// match at every position that has one, in position order.
func (b acBackend) findMatches(text string) []Match {
	var (
		out     []Match
		lastEnd = -1
	)
	it := b.ac.Iter(text)
	for m := it.Next(); m != nil; m = it.Next() {
		if m.Start() < lastEnd {
			continue
		}
		out = append(out, Match{Pattern: text[m.Start():m.End()], Start: m.Start(), End: m.End()})
		lastEnd = m.End()
	}
	return out
}

func (b acBackend) memory(patternBytes int) int {
	return 2 * patternBytes
}

type regexBackend struct {
	re *regexp.Regexp
}

// newRegexBackend compiles the vocabulary into one escaped alternation.
// Compilation fails on patterns that are not valid UTF-8.
func newRegexBackend(patterns []string) (backend, error) {
	quoted := make([]string, len(patterns))
	for i, p := range patterns {
		quoted[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile(strings.Join(quoted, "|"))
	if err != nil {
		return nil, err
	}
	re.Longest()
	return regexBackend{re: re}, nil
}

func (b regexBackend) findFirst(text string) (string, bool) {
	loc := b.re.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return text[loc[0]:loc[1]], true
}

func (b regexBackend) findMatches(text string) []Match {
	locs := b.re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Match, len(locs))
	for i, loc := range locs {
		out[i] = Match{Pattern: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]}
	}
	return out
}

func (b regexBackend) memory(patternBytes int) int {
	return 2 * patternBytes
}
