package spider

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rohmanhakim/render-fetch/internal/config"
	"github.com/rohmanhakim/render-fetch/internal/envelope"
	"github.com/rohmanhakim/render-fetch/internal/fetcher"
	"github.com/rohmanhakim/render-fetch/internal/metadata"
	"github.com/rohmanhakim/render-fetch/pkg/retry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

/*
Responsibilities

- Turn URLs into fetcher.Requests configured from config.Config
- Run many fetches at once, bounded by the configured concurrency
- Absorb every failure into an envelope so one fetch never aborts another
- Keep results in submission order

Failure isolation

The spider is the only layer that swallows errors. Each one is logged with
its kind (transport, content, unexpected) and kept on the envelope.
Panics inside a fetch are recovered and reported as unexpected.
*/

type Spider struct {
	client    fetcher.Transport
	cfg       config.Config
	logger    zerolog.Logger
	sink      metadata.MetadataSink
	finalizer metadata.BatchFinalizer
	rendering bool
	browser   bool
	// bounds Tasks, which are not tied to a batch
	tasks *semaphore.Weighted
}

type Option func(*Spider)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithMetadataSink records fetch events. A sink that also implements
// metadata.BatchFinalizer receives batch summaries.
func WithMetadataSink(sink metadata.MetadataSink) Option {
	return func(s *Spider) {
		if sink == nil {
			return
		}
		s.sink = sink
		if finalizer, ok := sink.(metadata.BatchFinalizer); ok {
			s.finalizer = finalizer
		}
	}
}

// WithDirect sends requests straight to the origin instead of through
// the rendering service.
func WithDirect() Option {
	return func(s *Spider) {
		s.rendering = false
	}
}

// WithBrowser asks the rendering service for browser-rendered HTML.
func WithBrowser() Option {
	return func(s *Spider) {
		s.browser = true
	}
}

// New returns a Spider that fetches through the rendering service unless
// WithDirect is given. A zero Config is replaced by config.WithDefault.
func New(client fetcher.Transport, cfg config.Config, opts ...Option) *Spider {
	if cfg == (config.Config{}) {
		cfg, _ = config.WithDefault().Build()
	}
	s := &Spider{
		client:    client,
		cfg:       cfg,
		logger:    zerolog.Nop(),
		sink:      &metadata.NoopSink{},
		finalizer: &metadata.NoopSink{},
		rendering: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "spider").Logger()
	s.tasks = semaphore.NewWeighted(int64(max(cfg.Concurrency(), 1)))
	return s
}

// NewRequest builds a request carrying the spider's configuration. opts
// are applied last and may override any of it.
func (s *Spider) NewRequest(rawURL string, opts ...fetcher.Option) *fetcher.Request {
	base := []fetcher.Option{
		fetcher.WithTimeout(s.cfg.Timeout()),
		fetcher.WithVerifyTLS(s.cfg.VerifyTLS()),
		fetcher.WithMaxAttempts(s.cfg.MaxAttempt()),
		fetcher.WithRandomSeed(s.cfg.RandomSeed()),
		fetcher.WithBackoffs(s.cfg.DirectBackoff(), s.cfg.RenderingBackoff()),
		fetcher.WithRenderingEndpoint(s.cfg.ZyteEndpoint()),
		fetcher.WithMetadataSink(s.sink),
	}
	if s.rendering {
		base = append(base, fetcher.WithRendering(s.cfg.ZyteAPIKey()))
	}
	if s.browser {
		base = append(base, fetcher.WithBrowser())
	}
	return fetcher.NewRequest(s.client, rawURL, append(base, opts...)...)
}

// Get fetches one URL. It never fails; check IsSuccess on the envelope.
func (s *Spider) Get(ctx context.Context, rawURL string) envelope.Envelope {
	return s.fetch(ctx, s.NewRequest(rawURL), "", s.logger)
}

// Fetch sends a caller-built request with the same isolation as Get.
func (s *Spider) Fetch(ctx context.Context, req *fetcher.Request) envelope.Envelope {
	return s.fetch(ctx, req, "", s.logger)
}

// FetchAll fetches every URL concurrently and returns one envelope per URL,
// in the order given.
func (s *Spider) FetchAll(ctx context.Context, urls []string) []envelope.Envelope {
	batchId := uuid.NewString()
	logger := s.logger.With().Str(string(metadata.AttrBatchID), batchId).Logger()
	startTime := time.Now()

	logger.Debug().Int("urls", len(urls)).Int("concurrency", s.cfg.Concurrency()).Msg("batch started")

	results := make([]envelope.Envelope, len(urls))
	var g errgroup.Group
	g.SetLimit(max(s.cfg.Concurrency(), 1))
	for i, rawURL := range urls {
		g.Go(func() error {
			results[i] = s.fetch(ctx, s.NewRequest(rawURL), batchId, logger)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, env := range results {
		if !env.IsSuccess() {
			failed++
		}
	}
	duration := time.Since(startTime)
	s.finalizer.RecordBatch(batchId, len(urls), failed, duration)
	logger.Info().
		Int("total", len(urls)).
		Int("failed", failed).
		Dur("duration", duration).
		Msg("batch finished")

	return results
}

func (s *Spider) fetch(ctx context.Context, req *fetcher.Request, batchId string, logger zerolog.Logger) (env envelope.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while fetching %s: %v", req.URL(), r)
			logger.Error().
				Str("url", req.URL()).
				Str(string(metadata.AttrErrorKind), string(envelope.KindUnexpected)).
				Str("stack", string(debug.Stack())).
				Err(err).
				Msg("fetch panicked")
			s.recordFailure("Spider.fetch", req.URL(), batchId, envelope.KindUnexpected, err)
			env = envelope.Failed(err, envelope.KindUnexpected)
		}
	}()

	result := req.Do(ctx)
	if result.IsSuccess() {
		logger.Debug().
			Str("url", req.URL()).
			Int("status", result.Value().StatusCode()).
			Int("attempts", result.Attempts()).
			Msg("fetched")
		return envelope.New(result.Value())
	}

	err := result.Err()
	kind := Classify(err)
	event := logger.Warn()
	if kind == envelope.KindUnexpected {
		event = logger.Error()
	}
	event.
		Str("url", req.URL()).
		Str("strategy", req.Strategy().Name()).
		Str(string(metadata.AttrErrorKind), string(kind)).
		Int("attempts", result.Attempts()).
		Err(err).
		Msg("fetch failed")

	return envelope.Failed(err, kind)
}

// recordFailure reports failures the fetcher never saw: recovered panics
// and tasks that could not start.
func (s *Spider) recordFailure(action, rawURL, batchId string, kind envelope.FailureKind, err error) {
	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrURL, rawURL),
		metadata.NewAttr(metadata.AttrErrorKind, string(kind)),
	}
	if batchId != "" {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrBatchID, batchId))
	}
	cause := metadata.CauseUnknown
	if kind == envelope.KindTransport {
		cause = metadata.CauseNetworkFailure
	}
	s.sink.RecordError(time.Now(), "spider", action, cause, err.Error(), attrs)
}

// Classify names the kind of a fetch failure.
func Classify(err error) envelope.FailureKind {
	if err == nil {
		return envelope.KindNone
	}
	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.Cause {
		case fetcher.ErrCauseExtraction, fetcher.ErrCauseBodyTooLarge:
			return envelope.KindContent
		}
		return envelope.KindTransport
	}
	var retryErr *retry.RetryError
	if errors.As(err, &retryErr) {
		if retryErr.Cause == retry.ErrZeroAttempt {
			return envelope.KindUnexpected
		}
		return envelope.KindTransport
	}
	return envelope.KindUnexpected
}
