package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"wordguard/pkg/models"
)

func TestMain(m *testing.M) {
	log.SetLevel(log.PanicLevel)
	goleak.VerifyTestMain(m)
}

// sliceReader hands out its messages and then reports io.EOF.
type sliceReader struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

// blockingReader waits for the context to end.
type blockingReader struct{}

func (blockingReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

type memWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *memWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) verdicts(t *testing.T) map[uuid.UUID]models.Verdict {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[uuid.UUID]models.Verdict, len(w.msgs))
	for _, m := range w.msgs {
		var v models.Verdict
		require.NoError(t, json.Unmarshal(m.Value, &v))
		assert.Equal(t, v.CommentID.Bytes(), m.Key)
		out[v.CommentID] = v
	}
	return out
}

type containsMatcher []string

func (cm containsMatcher) FindAll(text string) []string {
	var found []string
	for _, w := range cm {
		if strings.Contains(text, w) {
			found = append(found, w)
		}
	}
	return found
}

type memSink struct {
	mu      sync.Mutex
	entries []models.Verdict
	err     error
}

func (s *memSink) Store(ctx context.Context, c models.Comment, v models.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, v)
	return nil
}

func (s *memSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func comment(t *testing.T, text string) (models.Comment, kafka.Message) {
	c := models.Comment{
		ID:     uuid.Must(uuid.NewV4()),
		PostID: uuid.Must(uuid.NewV4()),
		Author: "tester",
		Text:   text,
	}
	b, err := json.Marshal(c)
	require.NoError(t, err)
	return c, kafka.Message{Value: b}
}

func TestModerator_Run(t *testing.T) {
	clean, m1 := comment(t, "正常内容")
	banned, m2 := comment(t, "这里有赌博和色情")
	r := &sliceReader{msgs: []kafka.Message{m1, {Value: []byte("{not json")}, m2}}
	w := &memWriter{}
	sink, failing := &memSink{}, &memSink{err: errors.New("unavailable")}

	mod := New(r, w, containsMatcher{"赌博", "色情"}, 3, sink, failing)
	require.NoError(t, mod.Run(context.Background()))

	got := w.verdicts(t)
	require.Len(t, got, 2, "malformed messages must be skipped")

	assert.False(t, got[clean.ID].Banned)
	assert.Empty(t, got[clean.ID].Words)

	v := got[banned.ID]
	assert.True(t, v.Banned)
	assert.Equal(t, banned.PostID, v.PostID)
	assert.Equal(t, []string{"赌博", "色情"}, v.Words)

	require.Equal(t, 1, sink.len(), "only banned comments reach the sinks")
	assert.Equal(t, banned.ID, sink.entries[0].CommentID)
	assert.Equal(t, 0, failing.len())
}

func TestModerator_WriteFailure(t *testing.T) {
	_, m := comment(t, "赌博")
	sink := &memSink{}
	mod := New(&sliceReader{msgs: []kafka.Message{m}}, &memWriter{err: errors.New("broker down")},
		containsMatcher{"赌博"}, 1, sink)

	require.NoError(t, mod.Run(context.Background()))
	assert.Equal(t, 0, sink.len(), "verdicts that were not published are not stored")
}

func TestModerator_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mod := New(blockingReader{}, &memWriter{}, containsMatcher{}, 0)

	done := make(chan error, 1)
	go func() { done <- mod.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
