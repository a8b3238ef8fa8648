package wumanber

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Search(t *testing.T) {
	m := New([]string{"赌博", "色情", "诈骗"}, WithBlockSize(2))

	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"No match", "正常内容", "", false},
		{"Match in the middle", "含有赌博内容", "赌博", true},
		{"Match after single char", "有色情图片", "色情", true},
		{"Text shorter than patterns", "赌", "", false},
		{"Empty text", "", "", false},
		{"Mixed with ascii", "abc诈骗xyz", "诈骗", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Search(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatcher_VariedLength(t *testing.T) {
	m := New([]string{"赌", "赌博", "赌博机"}, WithBlockSize(1))

	for _, text := range []string{"赌", "赌博", "赌博机"} {
		assert.True(t, m.Contains(text), text)
	}

	ms := m.FindMatches("赌博机")
	require.Len(t, ms, 1)
	assert.Equal(t, Match{Pattern: "赌博机", Start: 0, End: 9}, ms[0])

	assert.Equal(t, []string{"赌博", "赌"}, m.SearchAll("赌博 赌"))
}

func TestMatcher_FindMatches(t *testing.T) {
	m := New([]string{"赌博"}, WithBlockSize(2))

	ms := m.FindMatches("赌博 赌博")
	require.Len(t, ms, 2)
	assert.Equal(t, 0, ms[0].Start)
	assert.Equal(t, 6, ms[0].End)
	assert.Equal(t, 7, ms[1].Start)
	assert.Equal(t, 13, ms[1].End)
}

func TestMatcher_FindMatchesMixedWidth(t *testing.T) {
	m := New([]string{"abc", "中文"})
	text := "x中文abc"

	ms := m.FindMatches(text)
	require.Len(t, ms, 2)
	assert.Equal(t, Match{Pattern: "中文", Start: 1, End: 7}, ms[0])
	assert.Equal(t, Match{Pattern: "abc", Start: 7, End: 10}, ms[1])
	for _, mt := range ms {
		assert.Equal(t, mt.Pattern, text[mt.Start:mt.End])
	}
}

func TestMatcher_ReplaceAll(t *testing.T) {
	m := New([]string{"赌博", "色情"}, WithBlockSize(2))

	assert.Equal(t, "禁止**和**内容", m.ReplaceAll("禁止赌博和色情内容", '*'))
	assert.Equal(t, "禁止和内容", m.RemoveAll("禁止赌博和色情内容"))
	assert.Equal(t, "正常内容", m.ReplaceAll("正常内容", '*'))
}

func TestMatcher_LargeVocabulary(t *testing.T) {
	patterns := make([]string, 10_000)
	for i := range patterns {
		patterns[i] = fmt.Sprintf("敏感词%d", i)
	}
	m := New(patterns, WithBlockSize(3))

	got, ok := m.Search("这是一个包含敏感词1234的文本")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(got, "敏感词1"))

	assert.Equal(t, []string{"敏感词1234"}, m.SearchAll("这是一个包含敏感词1234的文本"))
}

func TestMatcher_Empty(t *testing.T) {
	m := New(nil)

	_, ok := m.Search("anything")
	assert.False(t, ok)
	assert.Empty(t, m.FindMatches("anything"))
	assert.Equal(t, 1, m.BlockSize())

	m = New([]string{"", "   "}, WithSpaceMode(IgnoreSpaces))
	assert.Empty(t, m.Patterns())
	assert.False(t, m.Contains("   "))
}

func TestMatcher_Duplicates(t *testing.T) {
	m := New([]string{"spam", "spam", "eggs"})

	assert.Equal(t, []string{"spam", "eggs"}, m.Patterns())
	assert.Equal(t, []string{"spam", "eggs"}, m.SearchAll("spam and eggs"))
}

func TestMatcher_BlockSizeSafety(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	alphabet := []rune("ab中文é")

	for iter := 0; iter < 200; iter++ {
		patterns := randomPatterns(rnd, alphabet, 1+rnd.Intn(8), 1+rnd.Intn(6))
		requested := rnd.Intn(10)
		m := New(patterns, WithBlockSize(requested))

		require.LessOrEqual(t, m.BlockSize(), m.MinLen(), "patterns %q block %d", patterns, requested)
		require.GreaterOrEqual(t, m.BlockSize(), 1)
	}

	m := New([]string{"赌博", "赌博机"}, WithBlockSize(10))
	assert.Equal(t, 2, m.BlockSize())
	m = New([]string{"abcdef", "ghijkl"})
	assert.Equal(t, 3, m.BlockSize())
}

func TestMatcher_SpaceModes(t *testing.T) {
	strict := New([]string{"hello world"})
	assert.True(t, strict.Contains("say hello world"))
	assert.False(t, strict.Contains("say helloworld"))

	ignore := New([]string{"hello world"}, WithSpaceMode(IgnoreSpaces))
	assert.True(t, ignore.Contains("say hello world"))
	assert.True(t, ignore.Contains("say helloworld"))

	ms := ignore.FindMatches("say helloworld now")
	require.Len(t, ms, 1)
	assert.Equal(t, Match{Pattern: "hello world", Start: 4, End: 14}, ms[0])
	assert.Equal(t, "say ********** now", ignore.ReplaceAll("say helloworld now", '*'))

	normalize := New([]string{"hello world"}, WithSpaceMode(NormalizeSpaces))
	assert.True(t, normalize.Contains("hello \t  world"))
	assert.False(t, normalize.Contains("helloworld"))

	ms = normalize.FindMatches("hello　　world!")
	require.Len(t, ms, 1)
	assert.Equal(t, 0, ms[0].Start)
	assert.Equal(t, len("hello　　world"), ms[0].End)
}

func TestSpaceMode_Apply(t *testing.T) {
	assert.Equal(t, "ab", IgnoreSpaces.Apply(" a \t b\n"))
	assert.Equal(t, " a b ", NormalizeSpaces.Apply(" a \t b\n"))
	assert.Equal(t, " a \t b\n", Strict.Apply(" a \t b\n"))

	mode, err := ParseSpaceMode("normalize")
	require.NoError(t, err)
	assert.Equal(t, NormalizeSpaces, mode)
	_, err = ParseSpaceMode("squash")
	assert.Error(t, err)
}

func TestMatcher_ParallelBuildIsDeterministic(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	patterns := randomPatterns(rnd, []rune("abcdefg中文字词"), 500, 8)

	seq := New(patterns)
	par := New(patterns, WithWorkers(4))

	assert.Equal(t, seq.shift, par.shift)
	assert.Equal(t, seq.suffix, par.suffix)
	assert.Equal(t, seq.Stats(), par.Stats())
}

// TestMatcher_AgainstNaive compares the block-hash scan with a brute force
// search over every start position.
func TestMatcher_AgainstNaive(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	alphabet := []rune("ab中文é")

	for iter := 0; iter < 500; iter++ {
		patterns := randomPatterns(rnd, alphabet, 1+rnd.Intn(6), 1+rnd.Intn(4))
		text := randomString(rnd, alphabet, rnd.Intn(40))
		m := New(patterns, WithBlockSize(rnd.Intn(4)), WithWorkers(rnd.Intn(3)))

		want := naiveMatches(m.Patterns(), text)
		got := m.FindMatches(text)
		require.Equal(t, want, got, "patterns %q text %q block %d", patterns, text, m.BlockSize())

		_, ok := m.Search(text)
		require.Equal(t, len(want) > 0, ok)
	}
}

func TestMatcher_Stats(t *testing.T) {
	m := New([]string{"赌博", "色情"})
	st := m.Stats()

	assert.Equal(t, 2, st.Patterns)
	assert.Equal(t, 2*(len("赌博")+len("色情")), st.PatternBytes)
	assert.Equal(t, 2, st.SuffixEntries)
	assert.Greater(t, st.TotalBytes, st.PatternBytes)
}

func TestMaskSpans(t *testing.T) {
	text := "abcdef"
	spans := []Match{{Start: 1, End: 4}, {Start: 2, End: 3}, {Start: 5, End: 6}}

	assert.Equal(t, "a***e*", MaskSpans(text, spans, '*'))
	assert.Equal(t, "ae", StripSpans(text, spans))
	assert.Equal(t, text, MaskSpans(text, nil, '*'))
}

func naiveMatches(patterns []string, text string) []Match {
	var all []Match
	for i := range text {
		for _, p := range patterns {
			if strings.HasPrefix(text[i:], p) {
				all = append(all, Match{Pattern: p, Start: i, End: i + len(p)})
			}
		}
	}
	return Resolve(all)
}

func randomPatterns(rnd *rand.Rand, alphabet []rune, n, maxLen int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = randomString(rnd, alphabet, 1+rnd.Intn(maxLen))
	}
	return out
}

func randomString(rnd *rand.Rand, alphabet []rune, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteRune(alphabet[rnd.Intn(len(alphabet))])
	}
	return sb.String()
}
