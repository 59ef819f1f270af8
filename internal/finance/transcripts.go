package finance

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/NutanNimkar/FinChat/internal/fmp"
	"github.com/NutanNimkar/FinChat/internal/metrics"
)

const (
	// A span search collects every hit, so it is kept short.
	multiPeriodAttempts = 4
	// A single-period search stops at the first hit and can afford to dig deeper.
	singlePeriodAttempts = 8
)

// multiPeriodKeywords mark a time range that spans several quarters.
var multiPeriodKeywords = []string{"last", "few", "past", "previous", "two", "three", "four"}

type TranscriptFetcher interface {
	EarningsCallTranscript(ctx context.Context, ticker string, year, quarter int) ([]fmp.Transcript, error)
}

// IsMultiPeriod reports whether timeRange asks for more than one quarter.
// Everything else, "latest" and "" included, is a single-period request.
func IsMultiPeriod(timeRange string) bool {
	tr := strings.ToLower(timeRange)
	for _, kw := range multiPeriodKeywords {
		if strings.Contains(tr, kw) {
			return true
		}
	}
	return false
}

// LocateResult lists transcripts most recent first, with the period each
// came from.
type LocateResult struct {
	Transcripts []string
	Periods     []Period
	Attempts    int
}

type Locator struct {
	fetch   TranscriptFetcher
	clock   Clock
	logger  *zap.Logger
	metrics *metrics.Recorder
}

func NewLocator(fetch TranscriptFetcher, clock Clock, logger *zap.Logger, rec *metrics.Recorder) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{fetch: fetch, clock: clock, logger: logger, metrics: rec}
}

// Locate walks backwards from the current quarter probing for earnings call
// transcripts. A failed probe counts as an empty quarter. An empty result
// means nothing was found in the probed window, not an error.
func (l *Locator) Locate(ctx context.Context, ticker, timeRange string) LocateResult {
	multi := IsMultiPeriod(timeRange)
	maxAttempts := singlePeriodAttempts
	if multi {
		maxAttempts = multiPeriodAttempts
	}
	log := l.logger.With(zap.String("ticker", ticker), zap.String("timeRange", timeRange), zap.Bool("multi", multi))

	var res LocateResult
	period := CurrentQuarter(l.clock())
	for res.Attempts < maxAttempts {
		if ctx.Err() != nil {
			log.Debug("transcript search canceled", zap.Int("attempts", res.Attempts))
			break
		}
		content, ok := l.probe(ctx, log, ticker, period)
		res.Attempts++
		if ok {
			res.Transcripts = append(res.Transcripts, content)
			res.Periods = append(res.Periods, period)
			log.Info("found earnings call", zap.Stringer("period", period))
			if !multi {
				break
			}
		}
		period = period.Previous()
	}
	if len(res.Transcripts) == 0 {
		log.Info("no earnings call found", zap.Int("attempts", res.Attempts))
	}
	return res
}

func (l *Locator) probe(ctx context.Context, log *zap.Logger, ticker string, p Period) (string, bool) {
	transcripts, err := l.fetch.EarningsCallTranscript(ctx, ticker, p.Year, p.Quarter)
	if err != nil {
		l.metrics.TranscriptProbe("error")
		log.Warn("transcript fetch failed", zap.Stringer("period", p), zap.Error(err))
		return "", false
	}
	if len(transcripts) == 0 || strings.TrimSpace(transcripts[0].Content) == "" {
		l.metrics.TranscriptProbe("miss")
		log.Debug("no transcript for period", zap.Stringer("period", p))
		return "", false
	}
	l.metrics.TranscriptProbe("hit")
	return transcripts[0].Content, true
}
