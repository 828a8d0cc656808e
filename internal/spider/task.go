package spider

import (
	"context"

	"github.com/rohmanhakim/render-fetch/internal/envelope"
	"github.com/rohmanhakim/render-fetch/internal/metadata"
)

// Task is a fetch running in the background. Tasks across the whole
// spider share one concurrency bound.
type Task struct {
	url    string
	done   chan struct{}
	result envelope.Envelope
}

// Task starts fetching rawURL and returns immediately.
func (s *Spider) Task(ctx context.Context, rawURL string) *Task {
	t := &Task{
		url:  rawURL,
		done: make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		if err := s.tasks.Acquire(ctx, 1); err != nil {
			s.logger.Warn().
				Str("url", rawURL).
				Str(string(metadata.AttrErrorKind), string(envelope.KindTransport)).
				Err(err).
				Msg("task canceled before start")
			s.recordFailure("Spider.Task", rawURL, "", envelope.KindTransport, err)
			t.result = envelope.Failed(err, envelope.KindTransport)
			return
		}
		defer s.tasks.Release(1)
		t.result = s.Get(ctx, rawURL)
	}()
	return t
}

func (t *Task) URL() string {
	return t.url
}

// Done is closed once the result is available.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes.
func (t *Task) Wait() envelope.Envelope {
	<-t.done
	return t.result
}

// Gather waits for every task and returns their envelopes in the order
// the tasks were given.
func Gather(tasks ...*Task) []envelope.Envelope {
	results := make([]envelope.Envelope, len(tasks))
	for i, t := range tasks {
		results[i] = t.Wait()
	}
	return results
}
