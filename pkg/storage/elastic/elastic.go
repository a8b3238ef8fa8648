// Package elastic indexes moderation verdicts in Elasticsearch.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"wordguard/pkg/models"
)

var ErrIndexFailed = errors.New("failed to index document")

type Index struct {
	es   *elasticsearch.Client
	name string
}

func New(nodes []string, name string) (*Index, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: nodes})
	if err != nil {
		return nil, err
	}
	return &Index{es: es, name: name}, nil
}

// document is the indexed form of a verdict.
type document struct {
	models.Verdict
	Author string `json:"author"`
	Text   string `json:"text"`
}

// Store indexes the verdict of c under the comment ID, replacing any earlier
// verdict for the same comment.
func (x *Index) Store(ctx context.Context, c models.Comment, v models.Verdict) error {
	body, err := json.Marshal(document{Verdict: v, Author: c.Author, Text: c.Text})
	if err != nil {
		return err
	}

	res, err := x.es.Index(
		x.name,
		bytes.NewReader(body),
		x.es.Index.WithDocumentID(c.ID.String()),
		x.es.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrIndexFailed, res.Status())
	}
	return nil
}

// String names the index in moderation logs.
func (x *Index) String() string {
	return "elasticsearch:" + x.name
}
