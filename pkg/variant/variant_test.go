package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetector_Detect(t *testing.T) {
	d := NewDetector("赌博", "测试", "скрепа")
	words := []string{"赌博", "测试", "скрепа"}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"Clean text", "正常内容", nil},
		{"Pinyin between words", "含有 dubo 内容", []string{"赌博"}},
		{"Pinyin only", "ceshi", []string{"测试"}},
		{"Homophone characters", "渡波", []string{"赌博"}},
		{"Similar shape", "这是赌傅", []string{"赌博"}},
		{"Latin look-alikes", "это cкpeпа", []string{"скрепа"}},
		{"Several words", "dubo ceshi", []string{"测试", "赌博"}},
		{"Verbatim counts too", "赌博", []string{"赌博"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Detect(tt.text, words))
		})
	}
}

func TestDetector_DetectEmpty(t *testing.T) {
	d := NewDetector()

	assert.Nil(t, d.Detect("", []string{"赌博"}))
	assert.Nil(t, d.Detect("dubo", nil))
	assert.Nil(t, d.Detect("dubo", []string{""}))
}

func TestDetector_Code(t *testing.T) {
	d := NewDetector("赌博")

	assert.Equal(t, "du", d.Code('赌'))
	assert.Equal(t, "bo", d.Code('博'))
	assert.Equal(t, "a", d.Code('a'))
	assert.Equal(t, "к", d.Code('к'))
	assert.Equal(t, "dubo", d.Phonetic("赌博"))
}

func TestDetector_Similar(t *testing.T) {
	d := NewDetector()

	assert.True(t, d.Similar('博', '傅'))
	assert.True(t, d.Similar('х', 'x'))
	assert.True(t, d.Similar('x', 'ⲭ'))
	assert.True(t, d.Similar('z', 'z'))
	assert.False(t, d.Similar('博', '赌'))
}

func TestDetector_Locate(t *testing.T) {
	d := NewDetector("赌博", "赌")

	spans := d.Locate("含有 dubo 内容", []string{"赌博"})
	require.Len(t, spans, 1)
	assert.Equal(t, Span{Word: "赌博", Start: 7, End: 11}, spans[0])

	spans = d.Locate("赌傅", []string{"赌博"})
	require.Len(t, spans, 1)
	assert.Equal(t, Span{Word: "赌博", Start: 0, End: 6}, spans[0])

	// "端" romanizes to "duan"; the hit on "du" widens to the whole character.
	spans = d.Locate("端", []string{"赌"})
	require.Len(t, spans, 1)
	assert.Equal(t, Span{Word: "赌", Start: 0, End: 3}, spans[0])

	assert.Empty(t, d.Locate("正常内容", []string{"赌博"}))
}

func TestDetector_Clone(t *testing.T) {
	d := NewDetector()
	c := d.Clone()
	c.AddWord("赌博")

	assert.Empty(t, d.codes)
	assert.Len(t, c.codes, 2)
}
