package finance

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/NutanNimkar/FinChat/internal/fmp"
)

// metricFields maps metric phrases (lower case) to income statement fields.
var metricFields = map[string]string{
	"revenue":                            "revenue",
	"net income":                         "netIncome",
	"eps":                                "eps",
	"ebitda":                             "ebitda",
	"earnings before interest and taxes": "ebitda",
	"gross profit":                       "grossProfit",
	"cost and expenses":                  "costAndExpenses",
	"operating income":                   "operatingIncome",
}

type StatementFetcher interface {
	IncomeStatements(ctx context.Context, ticker, period string) ([]fmp.IncomeStatement, error)
}

// MetricField returns the provider field for a metric phrase.
func MetricField(metric string) (string, bool) {
	f, ok := metricFields[strings.ToLower(strings.TrimSpace(metric))]
	return f, ok
}

type MetricLookup struct {
	statements StatementFetcher
	printer    *message.Printer
	logger     *zap.Logger
}

func NewMetricLookup(statements StatementFetcher, logger *zap.Logger) *MetricLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricLookup{
		statements: statements,
		printer:    message.NewPrinter(language.AmericanEnglish),
		logger:     logger,
	}
}

// Lookup reads metric from the most recent annual income statement and
// returns a message ready to show the user. It never returns an error:
// unsupported metrics, missing data and provider failures all become text.
func (m *MetricLookup) Lookup(ctx context.Context, ticker, metric string) string {
	field, ok := MetricField(metric)
	if !ok {
		return fmt.Sprintf("Metric '%s' is not supported.", metric)
	}
	if ticker == "" {
		return fmt.Sprintf("No data available for %s.", metric)
	}

	statements, err := m.statements.IncomeStatements(ctx, ticker, "annual")
	if err != nil {
		m.logger.Warn("income statement fetch failed", zap.String("ticker", ticker), zap.String("metric", metric), zap.Error(err))
		return fmt.Sprintf("Error retrieving %s for %s.", metric, ticker)
	}
	if len(statements) == 0 {
		return fmt.Sprintf("No data available for %s of %s.", metric, ticker)
	}
	value, ok := statements[0].Number(field)
	if !ok || value == 0 {
		return fmt.Sprintf("No data available for %s of %s.", metric, ticker)
	}
	return fmt.Sprintf("%s: %s", metric, m.FormatNumber(value))
}

// FormatNumber groups thousands and keeps at most three fraction digits.
func (m *MetricLookup) FormatNumber(v float64) string {
	return m.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}
