package finance

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/NutanNimkar/FinChat/internal/fmp"
)

// companyAliases normalizes common names to the form the provider's search
// ranks best. Keys are lower case.
var companyAliases = map[string]string{
	"google":    "Alphabet Inc.",
	"alphabet":  "Alphabet Inc.",
	"microsoft": "Microsoft Corporation",
	"amazon":    "AMAZON",
	"meta":      "META",
	"tesla":     "Tesla Inc.",
	"nvidia":    "NVIDIA Corporation",
	"amd":       "Advanced Micro Devices Inc.",
	"apple":     "Apple Inc.",
	"netflix":   "Netflix Inc.",
	"uber":      "UBER",
	"lyft":      "Lyft Inc.",
}

// allowedExchanges excludes OTC and foreign listings.
var allowedExchanges = map[string]bool{
	"NASDAQ": true,
	"NYSE":   true,
}

type CompanySearcher interface {
	SearchCompanies(ctx context.Context, query string) ([]fmp.SearchResult, error)
}

// NormalizeCompanyName applies the alias table, falling back to the name as given.
func NormalizeCompanyName(name string) string {
	if alias, ok := companyAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return alias
	}
	return name
}

type TickerEntry struct {
	Company string
	Ticker  string
}

// TickerMap maps company names, as supplied, to tickers. It keeps input
// order. Names that did not resolve are absent.
type TickerMap []TickerEntry

func (m TickerMap) Lookup(company string) (string, bool) {
	for _, e := range m {
		if e.Company == company {
			return e.Ticker, true
		}
	}
	return "", false
}

func (m TickerMap) Companies() []string {
	out := make([]string, 0, len(m))
	for _, e := range m {
		out = append(out, e.Company)
	}
	return out
}

// MarshalJSON renders the map as a JSON object in input order.
func (m TickerMap) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(e.Company)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Ticker)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

type Resolver struct {
	search CompanySearcher
	logger *zap.Logger
}

func NewResolver(search CompanySearcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{search: search, logger: logger}
}

// Resolve looks each name up in order, one provider call per name. The
// first NASDAQ/NYSE listing in the provider's order wins. Names with no
// listing, or whose search failed, are left out.
func (r *Resolver) Resolve(ctx context.Context, names []string) TickerMap {
	out := make(TickerMap, 0, len(names))
	for _, company := range names {
		if strings.TrimSpace(company) == "" {
			continue
		}
		if _, done := out.Lookup(company); done {
			continue
		}
		query := NormalizeCompanyName(company)
		results, err := r.search.SearchCompanies(ctx, query)
		if err != nil {
			r.logger.Warn("company search failed", zap.String("company", company), zap.String("query", query), zap.Error(err))
			continue
		}
		ticker := firstListed(results)
		if ticker == "" {
			r.logger.Info("no listed ticker", zap.String("company", company), zap.Int("results", len(results)))
			continue
		}
		r.logger.Debug("resolved ticker", zap.String("company", company), zap.String("ticker", ticker))
		out = append(out, TickerEntry{Company: company, Ticker: ticker})
	}
	return out
}

func firstListed(results []fmp.SearchResult) string {
	for _, res := range results {
		if allowedExchanges[res.ExchangeShortName] && res.Symbol != "" {
			return res.Symbol
		}
	}
	return ""
}
