// Package postgres keeps the vocabulary in a Postgres table so that words
// added at runtime survive restarts.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, conStr string) (*Store, error) {
	db, err := pgxpool.Connect(ctx, conStr)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

// Words returns the stored vocabulary in insertion order.
func (s *Store) Words(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT word
		FROM banned_words
		ORDER BY created, word
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return words, nil
}

// AddWords inserts words within a single transaction. Words already stored
// are left untouched.
func (s *Store) AddWords(ctx context.Context, words []string) error {
	return s.batch(ctx, words, `
		INSERT INTO banned_words (word)
		VALUES ($1)
		ON CONFLICT (word) DO NOTHING
	`)
}

// RemoveWords deletes words within a single transaction.
func (s *Store) RemoveWords(ctx context.Context, words []string) error {
	return s.batch(ctx, words, `DELETE FROM banned_words WHERE word = $1`)
}

func (s *Store) batch(ctx context.Context, words []string, query string) error {
	if len(words) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := new(pgx.Batch)
	for _, w := range words {
		batch.Queue(query, w)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// String names the store in dictionary load logs.
func (s *Store) String() string {
	return "postgres"
}
