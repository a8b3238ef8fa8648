// Package filter detects, replaces and strips vocabulary terms and their
// disguised spellings in free text.
//
// A Filter publishes its vocabulary together with the matching engine and the
// evasion detector built from it as one immutable snapshot. Queries load the
// current snapshot and never block; vocabulary changes build a new snapshot
// and swap it in.
package filter

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"

	"wordguard/pkg/dict"
	"wordguard/pkg/engine"
	"wordguard/pkg/variant"
	"wordguard/pkg/wumanber"
)

// DefaultNoisePattern strips every character that is not a letter, mark,
// digit, connector, whitespace or CJK ideograph.
const DefaultNoisePattern = `[^\p{L}\p{M}\p{N}\p{Pc}\s\p{Z}\x{4e00}-\x{9fff}]`

const (
	DefaultCacheSize         = 1000
	DefaultParallelThreshold = 1000

	minChunkRunes = 100
)

var (
	ErrInvalidNoisePattern = errors.New("invalid noise pattern")
	ErrInvalidCacheSize    = errors.New("invalid cache size")
)

type Options struct {
	Words []string

	// Algorithm pins the matching backend when ForceAlgorithm is set.
	Algorithm      engine.Algorithm
	ForceAlgorithm bool
	BlockSize      int
	SpaceMode      wumanber.SpaceMode

	NoisePattern string
	CacheSize    int

	// ParallelThreshold is the stripped text length, in bytes, above which
	// FindAll scans chunks concurrently.
	ParallelThreshold int
	Workers           int
}

func DefaultOptions() Options {
	return Options{
		SpaceMode:         wumanber.Strict,
		NoisePattern:      DefaultNoisePattern,
		CacheSize:         DefaultCacheSize,
		ParallelThreshold: DefaultParallelThreshold,
		Workers:           runtime.GOMAXPROCS(0),
	}
}

type snapshot struct {
	version  uint64
	words    []string
	engine   *engine.Engine
	detector *variant.Detector
	maxRunes int
}

type cacheKey struct {
	version uint64
	text    string
}

type Filter struct {
	mu    sync.Mutex
	snap  atomic.Pointer[snapshot]
	noise atomic.Pointer[regexp.Regexp]
	cache *lru.Cache[cacheKey, []string]

	cacheSize         int
	parallelThreshold int
	workers           int
}

// New builds a filter. Zero values in opts take their defaults; a negative
// cache size or a noise pattern that does not compile is rejected.
func New(opts Options) (*Filter, error) {
	def := DefaultOptions()
	if opts.NoisePattern == "" {
		opts.NoisePattern = def.NoisePattern
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = def.CacheSize
	}
	if opts.ParallelThreshold <= 0 {
		opts.ParallelThreshold = def.ParallelThreshold
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}

	if opts.CacheSize < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCacheSize, opts.CacheSize)
	}
	noise, err := regexp.Compile(opts.NoisePattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNoisePattern, err)
	}
	cache, err := lru.New[cacheKey, []string](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCacheSize, err)
	}

	f := &Filter{
		cache:             cache,
		cacheSize:         opts.CacheSize,
		parallelThreshold: opts.ParallelThreshold,
		workers:           opts.Workers,
	}
	f.noise.Store(noise)

	words := normalizeWords(nil, opts.Words)
	eng := engine.New(words, engine.Options{
		Algorithm: opts.Algorithm,
		Forced:    opts.ForceAlgorithm,
		BlockSize: opts.BlockSize,
		SpaceMode: opts.SpaceMode,
		Workers:   opts.Workers,
	})
	f.snap.Store(newSnapshot(1, words, eng, variant.NewDetector(words...)))

	log.Debugf("[filter] created with %d words, %s backend", len(words), eng.Algorithm())
	return f, nil
}

func newSnapshot(version uint64, words []string, eng *engine.Engine, d *variant.Detector) *snapshot {
	return &snapshot{
		version:  version,
		words:    words,
		engine:   eng,
		detector: d,
		maxRunes: eng.MaxPatternLen(),
	}
}

// nextDetector extends a copy of the current detector when the vocabulary
// only grew. Otherwise it starts over so that codes of removed words are
// dropped.
func nextDetector(old *snapshot, words []string) *variant.Detector {
	kept := make(map[string]struct{}, len(words))
	for _, w := range words {
		kept[w] = struct{}{}
	}
	for _, w := range old.words {
		if _, ok := kept[w]; !ok {
			return variant.NewDetector(words...)
		}
	}

	d := old.detector.Clone()
	for _, w := range words {
		d.AddWord(w)
	}
	return d
}

// normalizeWords appends the non-empty words of add that are not yet present.
func normalizeWords(base, add []string) []string {
	seen := make(map[string]struct{}, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, w := range list {
			if w == "" {
				continue
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}

// update rebuilds the snapshot from the vocabulary returned by next. The
// engine is rebuilt with the previous options unless rebuild overrides it.
func (f *Filter) update(next func(words []string) []string, rebuild func(old *engine.Engine, words []string) *engine.Engine) {
	f.mu.Lock()
	defer f.mu.Unlock()

	old := f.snap.Load()
	words := next(old.words)
	if rebuild == nil {
		rebuild = (*engine.Engine).Rebuild
	}
	eng := rebuild(old.engine, words)

	f.snap.Store(newSnapshot(old.version+1, words, eng, nextDetector(old, words)))
	f.cache.Purge()

	log.Debugf("[filter] vocabulary v%d: %d words, %s backend", old.version+1, len(words), eng.Algorithm())
}

func (f *Filter) AddWord(word string) {
	f.AddWords(word)
}

func (f *Filter) AddWords(words ...string) {
	f.update(func(cur []string) []string {
		return normalizeWords(cur, words)
	}, nil)
}

func (f *Filter) RemoveWord(word string) {
	f.RemoveWords(word)
}

func (f *Filter) RemoveWords(words ...string) {
	f.update(func(cur []string) []string {
		out := make([]string, 0, len(cur))
		for _, w := range cur {
			if !slices.Contains(words, w) {
				out = append(out, w)
			}
		}
		return out
	}, nil)
}

// Reset replaces the whole vocabulary.
func (f *Filter) Reset(words []string) {
	f.update(func([]string) []string {
		return normalizeWords(nil, words)
	}, nil)
}

// Load adds one word per line read from r. Blank lines are skipped.
func (f *Filter) Load(r io.Reader) error {
	words, err := dict.ReadWords(r)
	if err != nil {
		return err
	}
	f.AddWords(words...)
	return nil
}

// SetAlgorithm pins the matching backend for this and all later rebuilds.
func (f *Filter) SetAlgorithm(alg engine.Algorithm) {
	f.update(func(cur []string) []string {
		return cur
	}, func(old *engine.Engine, words []string) *engine.Engine {
		return old.RebuildWith(words, alg)
	})
}

// Words returns a copy of the vocabulary in insertion order.
func (f *Filter) Words() []string {
	return slices.Clone(f.snap.Load().words)
}

// Algorithm returns the backend in use after any build fallback.
func (f *Filter) Algorithm() engine.Algorithm {
	return f.snap.Load().engine.Algorithm()
}

// RemoveNoise strips the characters matched by the noise pattern.
func (f *Filter) RemoveNoise(text string) string {
	return f.noise.Load().ReplaceAllString(text, "")
}

func (f *Filter) NoisePattern() string {
	return f.noise.Load().String()
}

// SetNoisePattern replaces the noise pattern. The current pattern is kept
// when p does not compile.
func (f *Filter) SetNoisePattern(p string) error {
	re, err := regexp.Compile(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNoisePattern, err)
	}
	f.noise.Store(re)
	return nil
}

func (f *Filter) ClearCache() {
	f.cache.Purge()
}

type Stats struct {
	engine.Stats
	Version       uint64 `json:"version"`
	CacheEntries  int    `json:"cache_entries"`
	CacheCapacity int    `json:"cache_capacity"`
	NoisePattern  string `json:"noise_pattern"`
	PhoneticChars int    `json:"phonetic_chars"`
}

func (f *Filter) Stats() Stats {
	s := f.snap.Load()
	return Stats{
		Stats:         s.engine.Stats(),
		Version:       s.version,
		CacheEntries:  f.cache.Len(),
		CacheCapacity: f.cacheSize,
		NoisePattern:  f.NoisePattern(),
		PhoneticChars: s.detector.Len(),
	}
}
