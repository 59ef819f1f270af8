// Package pipeline turns one user query into a reply by running intent
// extraction, ticker resolution and the metric or summary branch.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NutanNimkar/FinChat/internal/apperr"
	"github.com/NutanNimkar/FinChat/internal/assistant"
	"github.com/NutanNimkar/FinChat/internal/finance"
	"github.com/NutanNimkar/FinChat/internal/metrics"
)

const (
	NeedCompanyResponse = "Which company's financial data would you like?"
	NoSummaryResponse   = "No summary found"
	defaultTimeRange    = "latest"
)

// Terminal states, also used as the latency metric label.
const (
	StateCasual      = "casual_reply"
	StateNeedCompany = "need_company"
	StateRespond     = "respond"
)

type IntentExtractor interface {
	Extract(ctx context.Context, query string, history []assistant.ConversationTurn) assistant.Intent
}

type TickerResolver interface {
	Resolve(ctx context.Context, names []string) finance.TickerMap
}

type TranscriptLocator interface {
	Locate(ctx context.Context, ticker, timeRange string) finance.LocateResult
}

type MetricReader interface {
	Lookup(ctx context.Context, ticker, metric string) string
}

type Summarizer interface {
	Synthesize(ctx context.Context, transcript, query, company, ticker string, history []assistant.ConversationTurn) (string, bool)
}

type Request struct {
	Query              string
	History            []assistant.ConversationTurn
	MentionedCompanies []string
}

// Reply is either a single Response (casual and clarifying turns) or a list
// of Results with the companies the caller should remember.
type Reply struct {
	Response           string
	Results            []string
	MentionedCompanies []string
}

func (r Reply) IsResponse() bool {
	return r.Results == nil
}

type Orchestrator struct {
	extract     IntentExtractor
	resolve     TickerResolver
	locate      TranscriptLocator
	metric      MetricReader
	summarize   Summarizer
	concurrency int
	logger      *zap.Logger
	metrics     *metrics.Recorder
}

type Option func(*Orchestrator)

// WithConcurrency sets how many companies are summarized at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = r }
}

func New(extract IntentExtractor, resolve TickerResolver, locate TranscriptLocator, metric MetricReader, summarize Summarizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		extract:     extract,
		resolve:     resolve,
		locate:      locate,
		metric:      metric,
		summarize:   summarize,
		concurrency: 1,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle runs one query. The only error it returns is an invalid request;
// collaborator failures become text in the reply.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (Reply, error) {
	if strings.TrimSpace(req.Query) == "" {
		return Reply{}, apperr.InvalidRequest("No query provided")
	}
	started := time.Now()

	var intent assistant.Structured
	switch in := o.extract.Extract(ctx, req.Query, req.History).(type) {
	case assistant.Casual:
		o.metrics.QueryFinished(StateCasual, started)
		return Reply{Response: in.Response}, nil
	case assistant.Structured:
		intent = in
	default:
		return Reply{}, apperr.Internal(fmt.Errorf("unexpected intent type %T", in))
	}

	companies := intent.Companies
	if len(companies) == 0 && len(req.MentionedCompanies) > 0 {
		companies = []string{req.MentionedCompanies[len(req.MentionedCompanies)-1]}
		o.logger.Debug("using last mentioned company", zap.String("company", companies[0]))
	}
	if len(companies) == 0 {
		o.metrics.QueryFinished(StateNeedCompany, started)
		return Reply{Response: NeedCompanyResponse}, nil
	}

	tickers := o.resolve.Resolve(ctx, companies)
	o.logger.Info("dispatching query",
		zap.String("kind", string(intent.Kind)),
		zap.Strings("companies", companies),
		zap.Int("resolved", len(tickers)))

	results := []string{}
	if intent.WantsMetric() {
		ticker, _ := tickers.Lookup(companies[0])
		results = append(results, o.metric.Lookup(ctx, ticker, intent.Metric))
	}
	if intent.Kind == assistant.IntentSummarization {
		timeRange := intent.TimeRange
		if timeRange == "" {
			timeRange = defaultTimeRange
		}
		summaries, err := o.summaries(ctx, tickers, timeRange, req)
		if err != nil {
			return Reply{}, apperr.Internal(err)
		}
		results = append(results, summaries...)
	}

	o.metrics.QueryFinished(StateRespond, started)
	return Reply{Results: results, MentionedCompanies: companies}, nil
}

// summaries produces one message per resolved company, in company order,
// with at most o.concurrency companies in flight.
func (o *Orchestrator) summaries(ctx context.Context, tickers finance.TickerMap, timeRange string, req Request) ([]string, error) {
	out := make([]string, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, entry := range tickers {
		g.Go(func() error {
			out[i] = o.summarizeCompany(gctx, entry, timeRange, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) summarizeCompany(ctx context.Context, entry finance.TickerEntry, timeRange string, req Request) string {
	found := o.locate.Locate(ctx, entry.Ticker, timeRange)
	if len(found.Transcripts) == 0 {
		return fmt.Sprintf("No earnings call data available for %s (%s).", entry.Company, entry.Ticker)
	}
	reply, ok := o.summarize.Synthesize(ctx, strings.Join(found.Transcripts, "\n\n"), req.Query, entry.Company, entry.Ticker, req.History)
	if !ok {
		return NoSummaryResponse
	}
	return reply
}
