// Package stream moderates comments arriving on a Kafka topic and publishes
// a verdict for each of them.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"wordguard/pkg/models"
)

const writeTimeout = 10 * time.Second

type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Matcher finds vocabulary terms in text. *filter.Filter implements it.
type Matcher interface {
	FindAll(text string) []string
}

// Sink receives every rejected comment with its verdict.
type Sink interface {
	Store(ctx context.Context, c models.Comment, v models.Verdict) error
}

type Moderator struct {
	r       Reader
	w       Writer
	m       Matcher
	sinks   []Sink
	workers int
}

func New(r Reader, w Writer, m Matcher, workers int, sinks ...Sink) *Moderator {
	if workers < 1 {
		workers = 1
	}
	return &Moderator{r: r, w: w, m: m, sinks: sinks, workers: workers}
}

// Run reads comments until ctx is cancelled or the reader is exhausted and
// hands them to a pool of workers. It returns once every worker has finished.
func (mod *Moderator) Run(ctx context.Context) error {
	jobs := make(chan kafka.Message, mod.workers*5)

	var wg sync.WaitGroup
	wg.Add(mod.workers)
	for workerID := 0; workerID < mod.workers; workerID++ {
		go func(id int) {
			defer wg.Done()
			mod.worker(ctx, jobs, id)
		}(workerID)
	}

	log.Info("[moderator] accepting comments...")
	for {
		msg, err := mod.r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				break
			}
			log.Errorf("[moderator] failed to read message from Kafka: %v", err)
			continue
		}
		log.Debugf("[moderator] received message at offset %d", msg.Offset)

		select {
		case jobs <- msg:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	close(jobs)
	wg.Wait()
	return nil
}

func (mod *Moderator) worker(ctx context.Context, jobs <-chan kafka.Message, workerID int) {
	for {
		select {
		case <-ctx.Done():
			log.Infof("[moderator][workerID:%d] context cancelled, exiting worker", workerID)
			return

		case msg, ok := <-jobs:
			if !ok {
				log.Infof("[moderator][workerID:%d] jobs channel closed, exiting worker", workerID)
				return
			}
			if err := mod.handle(ctx, msg); err != nil {
				log.Errorf("[moderator][workerID:%d] %v", workerID, err)
			}
		}
	}
}

// handle moderates one message. Malformed messages are reported and
// dropped; sink failures are logged without failing the verdict.
func (mod *Moderator) handle(ctx context.Context, msg kafka.Message) error {
	var c models.Comment
	if err := json.Unmarshal(msg.Value, &c); err != nil {
		return fmt.Errorf("failed to unmarshal comment at offset %d: %w", msg.Offset, err)
	}

	v := models.NewVerdict(c, mod.m.FindAll(c.Text))
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict for comment %v: %w", c.ID, err)
	}

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := mod.w.WriteMessages(wctx, kafka.Message{Key: c.ID.Bytes(), Value: b}); err != nil {
		return fmt.Errorf("failed to write verdict for comment %v: %w", c.ID, err)
	}

	if v.Banned {
		for _, s := range mod.sinks {
			if err := s.Store(ctx, c, v); err != nil {
				log.Errorf("[moderator] %v failed to store comment %v: %v", s, c.ID, err)
			}
		}
		log.Infof("[moderator] comment %v rejected: %v", c.ID, v.Words)
	}

	return nil
}
