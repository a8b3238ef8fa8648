// Package memdb keeps vocabulary changes in memory so that words added at
// runtime survive dictionary reloads when no database is configured.
package memdb

import (
	"context"
	"sort"
	"sync"
	"time"
)

type Store struct {
	mu    sync.Mutex
	words map[string]time.Time
}

func New() *Store {
	db := Store{
		words: make(map[string]time.Time),
	}

	return &db
}

func (db *Store) AddWords(ctx context.Context, words []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now()
	for _, w := range words {
		if _, ok := db.words[w]; ok || w == "" {
			continue
		}
		db.words[w] = now
	}

	return nil
}

func (db *Store) RemoveWords(ctx context.Context, words []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, w := range words {
		delete(db.words, w)
	}

	return nil
}

// Words returns the stored words, oldest first.
func (db *Store) Words(ctx context.Context) ([]string, error) {
	type entry struct {
		word  string
		added time.Time
	}

	db.mu.Lock()
	entries := make([]entry, 0, len(db.words))
	for w, t := range db.words {
		entries = append(entries, entry{w, t})
	}
	db.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].added.Equal(entries[j].added) {
			return entries[i].word < entries[j].word
		}
		return entries[i].added.Before(entries[j].added)
	})

	words := make([]string, len(entries))
	for i, e := range entries {
		words[i] = e.word
	}
	return words, nil
}

func (db *Store) String() string {
	return "memdb"
}
