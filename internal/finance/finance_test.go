package finance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/NutanNimkar/FinChat/internal/fmp"
	"github.com/NutanNimkar/FinChat/internal/metrics"
)

type fakeProvider struct {
	search      map[string][]fmp.SearchResult
	searchErr   map[string]error
	transcripts map[Period]string
	failPeriods map[Period]bool
	statements  []fmp.IncomeStatement
	statErr     error

	searchQueries []string
	probes        []Period
	statementHits int
}

func (f *fakeProvider) SearchCompanies(ctx context.Context, query string) ([]fmp.SearchResult, error) {
	f.searchQueries = append(f.searchQueries, query)
	if err := f.searchErr[query]; err != nil {
		return nil, err
	}
	return f.search[query], nil
}

func (f *fakeProvider) EarningsCallTranscript(ctx context.Context, ticker string, year, quarter int) ([]fmp.Transcript, error) {
	p := Period{Year: year, Quarter: quarter}
	f.probes = append(f.probes, p)
	if f.failPeriods[p] {
		return nil, errors.New("provider exploded")
	}
	content, ok := f.transcripts[p]
	if !ok {
		return []fmp.Transcript{}, nil
	}
	return []fmp.Transcript{{Symbol: ticker, Year: year, Quarter: quarter, Content: content}}, nil
}

func (f *fakeProvider) IncomeStatements(ctx context.Context, ticker, period string) ([]fmp.IncomeStatement, error) {
	f.statementHits++
	return f.statements, f.statErr
}

func fixedClock(year int, month time.Month) Clock {
	return func() time.Time { return time.Date(year, month, 10, 0, 0, 0, 0, time.UTC) }
}

// ---- Resolver ----

func TestResolveUsesAlias(t *testing.T) {
	p := &fakeProvider{search: map[string][]fmp.SearchResult{
		"Alphabet Inc.": {{Symbol: "GOOGL", ExchangeShortName: "NASDAQ"}},
	}}
	r := NewResolver(p, zaptest.NewLogger(t))

	got := r.Resolve(context.Background(), []string{"google"})
	assert.Equal(t, []string{"Alphabet Inc."}, p.searchQueries)
	ticker, ok := got.Lookup("google")
	assert.True(t, ok)
	assert.Equal(t, "GOOGL", ticker)
}

func TestResolveAliasIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, "Tesla Inc.", NormalizeCompanyName("TESLA"))
	assert.Equal(t, "Advanced Micro Devices Inc.", NormalizeCompanyName(" amd "))
	assert.Equal(t, "Palantir", NormalizeCompanyName("Palantir"))
}

func TestResolveFiltersExchangesAndKeepsProviderOrder(t *testing.T) {
	p := &fakeProvider{search: map[string][]fmp.SearchResult{
		"Shopify": {
			{Symbol: "SHOP.TO", ExchangeShortName: "TSX"},
			{Symbol: "SHOP", ExchangeShortName: "NYSE"},
			{Symbol: "SHOPX", ExchangeShortName: "NASDAQ"},
		},
		"Nestle": {{Symbol: "NSRGY", ExchangeShortName: "OTC"}},
	}}
	r := NewResolver(p, nil)

	got := r.Resolve(context.Background(), []string{"Shopify", "Nestle"})
	require.Len(t, got, 1)
	assert.Equal(t, TickerEntry{Company: "Shopify", Ticker: "SHOP"}, got[0])
	_, ok := got.Lookup("Nestle")
	assert.False(t, ok, "unlisted company is absent, not an error value")
}

func TestResolveSkipsFailuresAndKeepsGoing(t *testing.T) {
	p := &fakeProvider{
		search: map[string][]fmp.SearchResult{
			"Apple Inc.": {{Symbol: "AAPL", ExchangeShortName: "NASDAQ"}},
		},
		searchErr: map[string]error{"Tesla Inc.": errors.New("timeout")},
	}
	r := NewResolver(p, zaptest.NewLogger(t))

	got := r.Resolve(context.Background(), []string{"tesla", "", "apple", "apple"})
	assert.Equal(t, []string{"Tesla Inc.", "Apple Inc."}, p.searchQueries, "blank and repeated names are not searched")
	assert.Equal(t, []string{"apple"}, got.Companies())
}

func TestTickerMapMarshalKeepsOrder(t *testing.T) {
	m := TickerMap{{Company: "tesla", Ticker: "TSLA"}, {Company: "apple", Ticker: "AAPL"}}
	b, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"tesla":"TSLA","apple":"AAPL"}`, string(b))

	b, err = TickerMap{}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}

// ---- Locator ----

func TestIsMultiPeriod(t *testing.T) {
	for _, tr := range []string{"last two quarters", "Past year", "previous", "FEW quarters", "three", "four quarters"} {
		assert.True(t, IsMultiPeriod(tr), tr)
	}
	for _, tr := range []string{"latest", "", "Q3 2024", "recent"} {
		assert.False(t, IsMultiPeriod(tr), tr)
	}
}

func TestLocateSingleGivesUpAfterEightProbes(t *testing.T) {
	p := &fakeProvider{}
	rec := metrics.New()
	l := NewLocator(p, fixedClock(2024, time.February), zaptest.NewLogger(t), rec)

	res := l.Locate(context.Background(), "TSLA", "latest")
	assert.Empty(t, res.Transcripts)
	assert.Equal(t, 8, res.Attempts)
	require.Len(t, p.probes, 8)
	assert.Equal(t, Period{2024, 1}, p.probes[0])
	assert.Equal(t, Period{2022, 2}, p.probes[7])
}

func TestLocateMultiGivesUpAfterFourProbes(t *testing.T) {
	p := &fakeProvider{}
	l := NewLocator(p, fixedClock(2024, time.February), nil, nil)

	res := l.Locate(context.Background(), "TSLA", "last few quarters")
	assert.Empty(t, res.Transcripts)
	assert.Len(t, p.probes, 4)
}

func TestLocateSingleStopsAtFirstHit(t *testing.T) {
	p := &fakeProvider{transcripts: map[Period]string{
		{2024, 3}: "Q3 call",
		{2024, 2}: "Q2 call",
	}}
	l := NewLocator(p, fixedClock(2024, time.November), nil, nil)

	res := l.Locate(context.Background(), "TSLA", "")
	assert.Equal(t, []string{"Q3 call"}, res.Transcripts)
	assert.Equal(t, []Period{{2024, 3}}, res.Periods)
	assert.Equal(t, []Period{{2024, 4}, {2024, 3}}, p.probes)
}

func TestLocateMultiCollectsMostRecentFirst(t *testing.T) {
	p := &fakeProvider{transcripts: map[Period]string{
		{2024, 1}: "Q1 call",
		{2023, 4}: "Q4 call",
		{2023, 2}: "too old",
	}}
	l := NewLocator(p, fixedClock(2024, time.May), nil, nil)

	res := l.Locate(context.Background(), "TSLA", "last two quarters")
	assert.Equal(t, []string{"Q1 call", "Q4 call"}, res.Transcripts)
	assert.Equal(t, 4, res.Attempts)
}

func TestLocateSwallowsProbeFailures(t *testing.T) {
	p := &fakeProvider{
		failPeriods: map[Period]bool{{2025, 2}: true, {2025, 1}: true},
		transcripts: map[Period]string{{2024, 4}: "found it", {2024, 3}: "   "},
	}
	l := NewLocator(p, fixedClock(2025, time.April), zaptest.NewLogger(t), metrics.New())

	res := l.Locate(context.Background(), "TSLA", "latest")
	assert.Equal(t, []string{"found it"}, res.Transcripts)
	assert.Equal(t, 3, res.Attempts)
}

func TestLocateSkipsBlankContent(t *testing.T) {
	p := &fakeProvider{transcripts: map[Period]string{{2024, 4}: "", {2024, 3}: "real"}}
	l := NewLocator(p, fixedClock(2024, time.December), nil, nil)

	res := l.Locate(context.Background(), "TSLA", "latest")
	assert.Equal(t, []string{"real"}, res.Transcripts)
}

func TestLocateStopsWhenContextCanceled(t *testing.T) {
	p := &fakeProvider{}
	l := NewLocator(p, fixedClock(2024, time.December), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := l.Locate(ctx, "TSLA", "latest")
	assert.Empty(t, res.Transcripts)
	assert.Empty(t, p.probes)
}

// ---- Metric lookup ----

func TestMetricLookupUnsupportedMakesNoFetch(t *testing.T) {
	p := &fakeProvider{}
	m := NewMetricLookup(p, nil)

	assert.Equal(t, "Metric 'market cap' is not supported.", m.Lookup(context.Background(), "TSLA", "market cap"))
	assert.Zero(t, p.statementHits)
}

func TestMetricLookupFormatsValue(t *testing.T) {
	p := &fakeProvider{statements: []fmp.IncomeStatement{
		{"revenue": 97690000000.0, "netIncome": 1234567.891, "ebitda": 13558000000.0},
		{"revenue": 1.0},
	}}
	m := NewMetricLookup(p, zaptest.NewLogger(t))
	ctx := context.Background()

	assert.Equal(t, "Revenue: 97,690,000,000", m.Lookup(ctx, "TSLA", "Revenue"))
	assert.Equal(t, "net income: 1,234,567.891", m.Lookup(ctx, "TSLA", "net income"))
	assert.Equal(t, "earnings before interest and taxes: 13,558,000,000",
		m.Lookup(ctx, "TSLA", "earnings before interest and taxes"))
}

func TestMetricLookupNoData(t *testing.T) {
	ctx := context.Background()

	m := NewMetricLookup(&fakeProvider{}, nil)
	assert.Equal(t, "No data available for revenue of TSLA.", m.Lookup(ctx, "TSLA", "revenue"))

	m = NewMetricLookup(&fakeProvider{statements: []fmp.IncomeStatement{{"revenue": 0.0}}}, nil)
	assert.Equal(t, "No data available for revenue of TSLA.", m.Lookup(ctx, "TSLA", "revenue"))

	m = NewMetricLookup(&fakeProvider{statements: []fmp.IncomeStatement{{"eps": 1.5}}}, nil)
	assert.Equal(t, "No data available for gross profit of TSLA.", m.Lookup(ctx, "TSLA", "gross profit"))
}

func TestMetricLookupUnresolvedTicker(t *testing.T) {
	p := &fakeProvider{}
	m := NewMetricLookup(p, nil)
	assert.Equal(t, "No data available for eps.", m.Lookup(context.Background(), "", "eps"))
	assert.Zero(t, p.statementHits)
}

func TestMetricLookupProviderError(t *testing.T) {
	p := &fakeProvider{statErr: fmt.Errorf("wrapped: %w", &fmp.APIError{StatusCode: 500})}
	m := NewMetricLookup(p, zaptest.NewLogger(t))
	assert.Equal(t, "Error retrieving ebitda for TSLA.", m.Lookup(context.Background(), "TSLA", "ebitda"))
}
