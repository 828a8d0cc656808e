package metadata

import (
	"time"

	"github.com/rs/zerolog"
)

/*
Metadata Collected
- Fetch timestamps and durations
- HTTP status codes
- Attempt counts
- Content hashes
- Batch summaries

Metadata is write-only.
No component may read metadata to influence fetch decisions.
*/

/*
Recorder captures structured fetch events as zerolog lines.
It must not:
- perform I/O decisions
- affect control flow
Ordering guarantees:
- Events from one goroutine are written in the order they are recorded.
- No global ordering across concurrent fetches is guaranteed.
*/
type Recorder struct {
	workerId string
	logger   zerolog.Logger
}

func NewRecorder(logger zerolog.Logger, workerId string) *Recorder {
	return &Recorder{
		workerId: workerId,
		logger:   logger.With().Str("component", "metadata").Str("worker_id", workerId).Logger(),
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	event := r.logger.Warn()
	if cause == CauseUnknown {
		event = r.logger.Error()
	}
	event = event.
		Time("observed_at", observedAt).
		Str("package", packageName).
		Str("action", action).
		Stringer("cause", cause).
		Str("error", errorString)
	for _, attr := range attrs {
		event = event.Str(string(attr.Key), attr.Value)
	}
	event.Msg("error recorded")
}

func (r *Recorder) RecordFetch(event FetchEvent) {
	r.logger.Info().
		Str("url", event.fetchUrl).
		Str("strategy", event.strategy).
		Int("http_status", event.httpStatus).
		Dur("duration", event.duration).
		Str("content_type", event.contentType).
		Str("content_hash", event.contentHash).
		Int("attempts", event.attempts).
		Msg("fetch recorded")
}

/*
RecordBatch records the summary of one completed fan-out.

Contract:
  - MUST be called once per batch, after every fetch of it has returned.
  - Recorded stats MUST NOT influence control flow.
*/
func (r *Recorder) RecordBatch(
	batchId string,
	total int,
	failed int,
	duration time.Duration,
) {
	r.logger.Info().
		Str(string(AttrBatchID), batchId).
		Int("total", total).
		Int("failed", failed).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("batch recorded")
}

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(event FetchEvent)
}

type BatchFinalizer interface {
	RecordBatch(
		batchId string,
		total int,
		failed int,
		duration time.Duration,
	)
}

// NoopSink implements MetadataSink and BatchFinalizer but does nothing.
// Callers (or tests) decide whether to inject a Recorder or a NoopSink.

type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {

}

func (n *NoopSink) RecordFetch(event FetchEvent) {}

func (n *NoopSink) RecordBatch(batchId string, total int, failed int, duration time.Duration) {}
