package filter

import (
	"bufio"
	"io"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"wordguard/pkg/wumanber"
)

// FindFirst returns the first vocabulary term found in text, trying exact
// matches before disguised ones.
func (f *Filter) FindFirst(text string) (string, bool) {
	s := f.snap.Load()
	clean := f.RemoveNoise(text)

	if w, ok := s.engine.FindFirst(clean); ok {
		return w, true
	}
	if found := s.detector.Detect(clean, s.words); len(found) > 0 {
		return found[0], true
	}
	return "", false
}

// Validate reports whether text contains a vocabulary term and which one.
func (f *Filter) Validate(text string) (bool, string) {
	w, ok := f.FindFirst(text)
	return ok, w
}

// FindAll returns every vocabulary term found in text, exactly or in disguise,
// sorted and without duplicates.
func (f *Filter) FindAll(text string) []string {
	s := f.snap.Load()
	clean := f.RemoveNoise(text)

	key := cacheKey{version: s.version, text: clean}
	if found, ok := f.cache.Get(key); ok {
		return slices.Clone(found)
	}

	var found []string
	if len(clean) > f.parallelThreshold {
		found = f.findAllParallel(s, clean)
	} else {
		found = findAllSequential(s, clean)
	}

	f.cache.Add(key, slices.Clone(found))
	return found
}

func findAllSequential(s *snapshot, text string) []string {
	found := s.engine.FindAll(text)
	found = append(found, s.detector.Detect(text, s.words)...)
	return dedupSort(found)
}

// findAllParallel matches character chunks and runs evasion detection over
// whitespace separated segments, all concurrently.
func (f *Filter) findAllParallel(s *snapshot, text string) []string {
	var (
		g       errgroup.Group
		matches []wumanber.Match
	)
	g.Go(func() error {
		matches = f.parallelMatches(s, text)
		return nil
	})

	segments := strings.Fields(text)
	evasions := make([][]string, len(segments)+1)
	for i, seg := range segments {
		g.Go(func() error {
			evasions[i] = s.detector.Detect(seg, s.words)
			return nil
		})
	}
	// Words that contain whitespace can only be seen across segments.
	if spaced := wordsWithSpace(s.words); len(spaced) > 0 {
		g.Go(func() error {
			evasions[len(segments)] = s.detector.Detect(text, spaced)
			return nil
		})
	}
	_ = g.Wait()

	var found []string
	for _, m := range matches {
		found = append(found, m.Pattern)
	}
	for _, ws := range evasions {
		found = append(found, ws...)
	}
	return dedupSort(found)
}

// parallelMatches splits text into character chunks and matches them
// concurrently. Each chunk is extended by the longest pattern length minus
// one so that matches crossing a chunk boundary are still seen; the merged
// spans are then resolved as a whole.
func (f *Filter) parallelMatches(s *snapshot, text string) []wumanber.Match {
	offs := runeOffsets(text)
	n := len(offs) - 1
	size := max(n/f.workers, minChunkRunes)
	overlap := max(s.maxRunes-1, 0)
	spaced := s.engine.SpaceMode() != wumanber.Strict

	var chunks [][2]int
	for lo := 0; lo < n; lo += size {
		chunks = append(chunks, [2]int{lo, chunkEnd(text, offs, min(lo+size, n), overlap, spaced)})
	}

	spans := make([][]wumanber.Match, len(chunks))
	var g errgroup.Group
	g.SetLimit(f.workers)
	for i, c := range chunks {
		g.Go(func() error {
			base := offs[c[0]]
			ms := s.engine.FindMatches(text[base:offs[c[1]]])
			for j := range ms {
				ms[j].Start += base
				ms[j].End += base
			}
			spans[i] = ms
			return nil
		})
	}
	_ = g.Wait()

	var all []wumanber.Match
	for _, ms := range spans {
		all = append(all, ms...)
	}
	return wumanber.Resolve(all)
}

// chunkEnd returns the rune index at which a chunk ending at hi stops once
// it has taken overlap more characters. When whitespace inside a match is
// free, only non-space characters count towards the overlap, and a trailing
// run of whitespace is taken whole.
func chunkEnd(text string, offs []int, hi, overlap int, spaced bool) int {
	n := len(offs) - 1
	if !spaced {
		return min(hi+overlap, n)
	}

	isSpace := func(i int) bool {
		r, _ := utf8.DecodeRuneInString(text[offs[i]:])
		return unicode.IsSpace(r)
	}
	for ; overlap > 0 && hi < n; hi++ {
		if !isSpace(hi) {
			overlap--
		}
	}
	for hi < n && isSpace(hi) {
		hi++
	}
	return hi
}

// FindAllLayered matches longer terms first and blanks each claimed region
// so that shorter terms cannot match inside it. Disguised terms are then
// looked for in what remains.
func (f *Filter) FindAllLayered(text string) []string {
	s := f.snap.Load()
	remaining := f.RemoveNoise(text)

	words := slices.Clone(s.words)
	sort.SliceStable(words, func(i, j int) bool {
		return utf8.RuneCountInString(words[i]) > utf8.RuneCountInString(words[j])
	})

	var found []string
	for _, w := range words {
		if strings.Contains(remaining, w) {
			found = append(found, w)
			remaining = strings.ReplaceAll(remaining, w, strings.Repeat(" ", len(w)))
		}
	}
	found = append(found, s.detector.Detect(remaining, words)...)
	return dedupSort(found)
}

// FindAllBatch runs FindAll over every text concurrently. The result at
// index i belongs to texts[i].
func (f *Filter) FindAllBatch(texts []string) [][]string {
	out := make([][]string, len(texts))
	var g errgroup.Group
	g.SetLimit(f.workers)
	for i, t := range texts {
		g.Go(func() error {
			out[i] = f.FindAll(t)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// FindAllStream runs FindAll over every line read from r and merges the
// results.
func (f *Filter) FindAllStream(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var found []string
	for sc.Scan() {
		found = append(found, f.FindAll(sc.Text())...)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return dedupSort(found), nil
}

// Replace masks every exact and disguised occurrence in the noise-stripped
// text with repl, one repl per masked character.
func (f *Filter) Replace(text string, repl rune) string {
	clean := f.RemoveNoise(text)
	return wumanber.MaskSpans(clean, f.spans(clean), repl)
}

// Filter removes every exact and disguised occurrence from the noise-stripped
// text.
func (f *Filter) Filter(text string) string {
	clean := f.RemoveNoise(text)
	return wumanber.StripSpans(clean, f.spans(clean))
}

// spans returns the union of exact and disguised occurrences. Masking works
// on the union, so a shorter term cannot disturb the region of a longer one.
func (f *Filter) spans(text string) []wumanber.Match {
	s := f.snap.Load()
	ms := s.engine.FindMatches(text)
	for _, sp := range s.detector.Locate(text, s.words) {
		ms = append(ms, wumanber.Match{Pattern: sp.Word, Start: sp.Start, End: sp.End})
	}
	return ms
}

func wordsWithSpace(words []string) []string {
	var out []string
	for _, w := range words {
		if strings.IndexFunc(w, unicode.IsSpace) >= 0 {
			out = append(out, w)
		}
	}
	return out
}

func dedupSort(found []string) []string {
	if len(found) == 0 {
		return nil
	}
	sort.Strings(found)
	return slices.Compact(found)
}

func runeOffsets(s string) []int {
	offs := make([]int, 0, len(s)+1)
	for i := range s {
		offs = append(offs, i)
	}
	return append(offs, len(s))
}
