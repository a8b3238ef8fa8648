// Package variant detects disguised vocabulary terms: phonetic spellings
// (pinyin romanization of Han characters) and visually similar character
// substitutions.
//
// Both checks cost O(words x text) and are meant as a secondary pass over
// short, noise-stripped text after exact matching.
package variant

import (
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mozillazg/go-pinyin"
)

// Span is a byte interval [Start, End) of the text where Word was found in
// disguised form.
type Span struct {
	Word  string `json:"word"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Detector is not safe for concurrent mutation. Callers that share one across
// goroutines must stop calling AddWord once it is published; Clone gives a
// private copy to extend.
type Detector struct {
	codes   map[rune]string
	similar map[rune][]rune
	args    pinyin.Args
}

// NewDetector returns a detector primed with the romanization of words.
func NewDetector(words ...string) *Detector {
	d := &Detector{
		codes:   make(map[rune]string),
		similar: similarTable,
		args:    pinyin.NewArgs(),
	}
	for _, w := range words {
		d.AddWord(w)
	}
	return d
}

// AddWord records the phonetic code of every romanizable character of word.
func (d *Detector) AddWord(word string) {
	for _, r := range word {
		if _, ok := d.codes[r]; ok {
			continue
		}
		if code, ok := d.romanize(r); ok {
			d.codes[r] = code
		}
	}
}

// Clone returns a detector with a private copy of the phonetic map.
func (d *Detector) Clone() *Detector {
	codes := make(map[rune]string, len(d.codes))
	for r, c := range d.codes {
		codes[r] = c
	}
	return &Detector{codes: codes, similar: d.similar, args: d.args}
}

// Len is the number of characters with a recorded phonetic code.
func (d *Detector) Len() int {
	return len(d.codes)
}

// Code returns the phonetic code of r, or r itself when it has none.
func (d *Detector) Code(r rune) string {
	if code, ok := d.codes[r]; ok {
		return code
	}
	if code, ok := d.romanize(r); ok {
		return code
	}
	return string(r)
}

// Similar reports whether c is listed as a look-alike of the vocabulary character w.
func (d *Detector) Similar(w, c rune) bool {
	return w == c || slices.Contains(d.similar[w], c)
}

func (d *Detector) romanize(r rune) (string, bool) {
	if r < utf8.RuneSelf {
		return "", false
	}
	pys := pinyin.SinglePinyin(r, d.args)
	if len(pys) == 0 || pys[0] == "" {
		return "", false
	}
	return pys[0], true
}

// Phonetic renders s as the concatenation of its characters' codes.
func (d *Detector) Phonetic(s string) string {
	var sb strings.Builder
	for _, r := range s {
		sb.WriteString(d.Code(r))
	}
	return sb.String()
}

// Detect returns, sorted and without duplicates, every word present in text
// either phonetically or through look-alike characters.
func (d *Detector) Detect(text string, words []string) []string {
	if text == "" || len(words) == 0 {
		return nil
	}
	textCode := d.Phonetic(text)
	textRunes := []rune(text)

	var found []string
	for _, w := range words {
		if w == "" {
			continue
		}
		if strings.Contains(textCode, d.Phonetic(w)) || d.hasLookalike(textRunes, []rune(w)) {
			found = append(found, w)
		}
	}
	sort.Strings(found)
	return slices.Compact(found)
}

// Locate returns the byte spans of text that are disguised occurrences of
// words, ordered by position. A phonetic occurrence that starts or ends inside
// a character's code is widened to cover that whole character.
func (d *Detector) Locate(text string, words []string) []Span {
	if text == "" || len(words) == 0 {
		return nil
	}

	// offs[i] is the byte offset of the i-th character in text; starts[i] the
	// offset of its code in the rendering. Both end with a sentinel.
	var (
		sb     strings.Builder
		offs   []int
		starts []int
		runes  []rune
	)
	for i, r := range text {
		offs = append(offs, i)
		starts = append(starts, sb.Len())
		runes = append(runes, r)
		sb.WriteString(d.Code(r))
	}
	offs = append(offs, len(text))
	starts = append(starts, sb.Len())
	rendered := sb.String()

	var spans []Span
	for _, w := range words {
		if w == "" {
			continue
		}
		code := d.Phonetic(w)
		for from := 0; from <= len(rendered)-len(code); {
			k := strings.Index(rendered[from:], code)
			if k < 0 {
				break
			}
			a := from + k
			b := a + len(code)
			first := sort.SearchInts(starts, a+1) - 1
			last := sort.SearchInts(starts, b) - 1
			spans = append(spans, Span{Word: w, Start: offs[first], End: offs[last+1]})
			_, size := utf8.DecodeRuneInString(rendered[a:])
			from = a + size
		}

		wr := []rune(w)
		for i := 0; i+len(wr) <= len(runes); i++ {
			if d.lookalikeAt(runes[i:i+len(wr)], wr) {
				spans = append(spans, Span{Word: w, Start: offs[i], End: offs[i+len(wr)]})
			}
		}
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		if spans[i].End != spans[j].End {
			return spans[i].End > spans[j].End
		}
		return spans[i].Word < spans[j].Word
	})
	return slices.Compact(spans)
}

func (d *Detector) hasLookalike(text, word []rune) bool {
	for i := 0; i+len(word) <= len(text); i++ {
		if d.lookalikeAt(text[i:i+len(word)], word) {
			return true
		}
	}
	return false
}

func (d *Detector) lookalikeAt(window, word []rune) bool {
	for i, w := range word {
		if !d.Similar(w, window[i]) {
			return false
		}
	}
	return true
}
