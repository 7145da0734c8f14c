// Package workflow orchestrates one report run: plan, gather, validate,
// synthesize, cache. Callers consume a run as an event stream.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/huhu-tiger/reportgen/config"
	"github.com/huhu-tiger/reportgen/internal/httpx"
	"github.com/huhu-tiger/reportgen/internal/ingest"
	"github.com/huhu-tiger/reportgen/internal/llm"
	"github.com/huhu-tiger/reportgen/internal/planner"
	"github.com/huhu-tiger/reportgen/internal/search"
	"github.com/huhu-tiger/reportgen/internal/synthesis"
	"github.com/huhu-tiger/reportgen/internal/telemetry"
	"github.com/huhu-tiger/reportgen/internal/vision"
	"github.com/huhu-tiger/reportgen/models"
)

// Options are the per-run knobs. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// UseCache consults and fills the per-topic report cache.
	UseCache bool
	// NewsPerKeyword caps news results requested per keyword.
	NewsPerKeyword int
	// ImagePage selects the image-search result page.
	ImagePage int
	// MaxKeywordsUsed bounds how many planned keywords are searched, 1 to
	// models.MaxKeywords.
	MaxKeywordsUsed int
	// FanOut bounds concurrent keyword gathers and image validations.
	FanOut int
}

func DefaultOptions() Options {
	return Options{
		UseCache:        true,
		NewsPerKeyword:  10,
		ImagePage:       2,
		MaxKeywordsUsed: 1,
		FanOut:          5,
	}
}

func (o Options) normalized() Options {
	if o.NewsPerKeyword <= 0 {
		o.NewsPerKeyword = 10
	}
	if o.ImagePage <= 0 {
		o.ImagePage = 2
	}
	if o.MaxKeywordsUsed < 1 || o.MaxKeywordsUsed > models.MaxKeywords {
		o.MaxKeywordsUsed = 1
	}
	if o.FanOut <= 0 {
		o.FanOut = 5
	}
	return o
}

// Workflow wires the pipeline stages together. One Workflow serves many runs;
// all of its state is shared safely across concurrent runs.
type Workflow struct {
	cfg      *config.Config
	logger   *log.Logger
	metrics  *telemetry.Metrics
	registry *llm.Registry
	llm      *llm.Client
	ingestor *ingest.Ingestor
	language string
	cache    reportCache
	tracer   trace.Tracer
}

// New assembles a Workflow from configuration. The prometheus registerer may
// be nil to disable metrics.
func New(cfg *config.Config, logger *log.Logger, promReg prometheus.Registerer) (*Workflow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("workflow: nil config")
	}
	if err := cfg.Requests.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[WORKFLOW] ", log.LstdFlags)
	}

	metrics := telemetry.NewMetrics(promReg)
	limiter := httpx.NewLimiter(cfg.Requests.MaxConcurrent)
	hc := httpx.NewClient(cfg.Requests.Timeout, limiter)
	llmClient := llm.NewClient(hc.HTTPClient(), metrics)
	registry := llm.NewRegistry(cfg.LLM)

	news, images := search.NewProviders(cfg.Sources, hc, metrics, logger)
	validator := vision.NewValidator(registry, llmClient, metrics, nil)

	return &Workflow{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		registry: registry,
		llm:      llmClient,
		ingestor: ingest.New(news, images, validator, nil),
		language: cfg.Sources.Image.Language,
		cache:    newCache(cfg.Cache, logger),
		tracer:   otel.Tracer("reportgen/workflow"),
	}, nil
}

// Run starts one report run and returns its event stream. Every stream ends
// with exactly one terminal event (ReportReady, RunError or RunCancelled)
// before the channel closes. Cancelling ctx stops the run; non-terminal
// events are dropped once ctx is cancelled, and the buffered slot lets the
// terminal event through even when a consumer stops reading after
// cancelling, so the run goroutine does not leak.
func (w *Workflow) Run(ctx context.Context, topic string, opts Options) <-chan Event {
	ch := make(chan Event, 1)
	go func() {
		defer close(ch)
		w.run(ctx, topic, opts, func(ev Event) {
			if ev.Kind.Terminal() {
				ch <- ev
				return
			}
			if ctx.Err() != nil {
				return
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		})
	}()
	return ch
}

// run drives the pipeline and emits events synchronously, which keeps the
// event order deterministic relative to stage completion.
func (w *Workflow) run(ctx context.Context, topic string, opts Options, emit func(Event)) {
	runID := uuid.NewString()
	opts = opts.normalized()
	topic = strings.TrimSpace(topic)

	ctx, span := w.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.topic", topic),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Printf("run %s panicked: %v", runID, r)
			w.metrics.RecordRun("error")
			emit(Event{Kind: EventRunError, RunID: runID, Err: &RunError{
				Kind: ErrKindInternal,
				Err:  fmt.Errorf("panic: %v", r),
			}})
		}
	}()

	w.logger.Printf("run %s started for topic %q", runID, topic)

	if opts.UseCache {
		if entry, ok := w.cache.Get(ctx, topic); ok {
			w.logger.Printf("run %s served from cache", runID)
			w.metrics.RecordRun("cache_hit")
			emit(Event{
				Kind:      EventReportReady,
				RunID:     runID,
				Report:    entry.Report,
				Corpus:    entry.Corpus,
				FromCache: true,
			})
			return
		}
	}

	plan, err := w.plan(ctx, topic)
	if err != nil {
		w.finishWithError(ctx, runID, err, emit)
		return
	}
	emit(Event{Kind: EventPlanReady, RunID: runID, Plan: &plan})
	if w.cancelled(ctx, runID, emit) {
		return
	}

	keywords := plan.Keywords
	if len(keywords) > opts.MaxKeywordsUsed {
		keywords = keywords[:opts.MaxKeywordsUsed]
	}

	corpus, err := w.gather(ctx, runID, keywords, opts, emit)
	if err != nil {
		w.finishWithError(ctx, runID, err, emit)
		return
	}
	if w.cancelled(ctx, runID, emit) {
		return
	}

	report, err := w.synthesize(ctx, runID, topic, corpus, emit)
	if err != nil {
		w.finishWithError(ctx, runID, err, emit)
		return
	}
	if w.cancelled(ctx, runID, emit) {
		return
	}

	if opts.UseCache {
		w.cache.Put(ctx, topic, cachedReport{Report: report, Corpus: corpus})
	}
	w.metrics.RecordRun("success")
	w.logger.Printf("run %s finished, report is %d bytes", runID, len(report))
	emit(Event{Kind: EventReportReady, RunID: runID, Report: report, Corpus: corpus})
}

func (w *Workflow) plan(ctx context.Context, topic string) (models.KeywordPlan, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.plan")
	defer span.End()

	p, err := planner.New(w.registry, w.llm, nil)
	if err != nil {
		recordSpanError(span, err)
		return models.KeywordPlan{}, err
	}
	plan, err := p.Plan(ctx, topic)
	if err != nil {
		recordSpanError(span, err)
		return models.KeywordPlan{}, err
	}
	span.SetAttributes(attribute.Int("plan.keyword_count", len(plan.Keywords)))
	return plan, nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (w *Workflow) gather(ctx context.Context, runID string, keywords []string, opts Options, emit func(Event)) (*models.RunCorpus, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.gather",
		trace.WithAttributes(attribute.Int("gather.keyword_count", len(keywords))))
	defer span.End()

	corpus, err := w.ingestor.Gather(ctx, keywords, ingest.Params{
		NewsPerKeyword: opts.NewsPerKeyword,
		ImagePage:      opts.ImagePage,
		Language:       w.language,
		FanOut:         opts.FanOut,
	}, func(p ingest.Progress) {
		emit(Event{Kind: EventCorpusProgress, RunID: runID, Progress: &p})
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("corpus.news_count", len(corpus.News())),
		attribute.Int("corpus.image_count", len(corpus.Images())),
	)
	return corpus, nil
}

func (w *Workflow) synthesize(ctx context.Context, runID, topic string, corpus *models.RunCorpus, emit func(Event)) (string, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.synthesize")
	defer span.End()

	s, err := synthesis.New(w.registry, w.llm, nil)
	if err != nil {
		recordSpanError(span, err)
		return "", err
	}
	report, err := s.Write(ctx, topic, corpus, func(delta string) {
		emit(Event{Kind: EventReportDelta, RunID: runID, Delta: delta})
	})
	if err != nil {
		recordSpanError(span, err)
		return "", err
	}
	return report, nil
}

func (w *Workflow) cancelled(ctx context.Context, runID string, emit func(Event)) bool {
	if ctx.Err() == nil {
		return false
	}
	w.logger.Printf("run %s cancelled", runID)
	w.metrics.RecordRun("cancelled")
	emit(Event{Kind: EventRunCancelled, RunID: runID})
	return true
}

func (w *Workflow) finishWithError(ctx context.Context, runID string, err error, emit func(Event)) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		w.logger.Printf("run %s cancelled", runID)
		w.metrics.RecordRun("cancelled")
		emit(Event{Kind: EventRunCancelled, RunID: runID})
		return
	}
	rerr := &RunError{Kind: classify(err), Err: err}
	w.logger.Printf("run %s failed: %v", runID, rerr)
	w.metrics.RecordRun("error")
	emit(Event{Kind: EventRunError, RunID: runID, Err: rerr})
}

func classify(err error) string {
	var (
		perr *planner.Error
		cerr *llm.NotConfiguredError
		serr *synthesis.Error
	)
	switch {
	case errors.As(err, &perr):
		return ErrKindPlanner
	case errors.As(err, &cerr):
		return ErrKindConfig
	case errors.As(err, &serr):
		return ErrKindSynthesis
	default:
		return ErrKindInternal
	}
}
