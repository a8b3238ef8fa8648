// Package dict reads vocabularies from line-delimited text, from the JSON word
// list format and from HTTP endpoints serving either.
package dict

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultTimeout = 5 * time.Second

var ErrUnexpectedStatus = errors.New("unexpected status")

// Source yields a vocabulary.
type Source interface {
	Words(ctx context.Context) ([]string, error)
}

// Word is an entry of a JSON word list. Only Text is used for matching.
type Word struct {
	Text       string   `json:"text"`
	Pattern    string   `json:"pattern,omitempty"`
	Exceptions []string `json:"exceptions,omitempty"`
}

// ReadWords returns one word per line of r. Surrounding whitespace, including
// a trailing carriage return, is trimmed and blank lines are skipped.
func ReadWords(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// ReadJSON returns the text of every entry of a JSON word list.
func ReadJSON(r io.Reader) ([]string, error) {
	var entries []Word
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, err
	}
	words := make([]string, 0, len(entries))
	for _, e := range entries {
		if w := strings.TrimSpace(e.Text); w != "" {
			words = append(words, w)
		}
	}
	return words, nil
}

// FileSource reads a local word list. Files with a .json extension are
// decoded as JSON word lists, anything else as plain lines.
type FileSource struct {
	Path string
}

func (s FileSource) Words(context.Context) ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(s.Path), ".json") {
		return ReadJSON(f)
	}
	return ReadWords(f)
}

// HTTPSource downloads a word list. A JSON content type selects the JSON
// word list format, anything else is read as plain lines.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s HTTPSource) Words(ctx context.Context) ([]string, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, s.URL, resp.StatusCode)
	}

	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt == "application/json" {
		return ReadJSON(resp.Body)
	}
	return ReadWords(resp.Body)
}

// Load concatenates the words of every source in order. A failing source
// aborts the load.
func Load(ctx context.Context, sources ...Source) ([]string, error) {
	var words []string
	for _, src := range sources {
		ws, err := src.Words(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", describe(src), err)
		}
		log.Debugf("[dict] loaded %d words from %s", len(ws), describe(src))
		words = append(words, ws...)
	}
	return words, nil
}

func describe(src Source) string {
	switch s := src.(type) {
	case FileSource:
		return s.Path
	case HTTPSource:
		return s.URL
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprintf("%T", src)
}
