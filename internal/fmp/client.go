package fmp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/NutanNimkar/FinChat/internal/metrics"
)

const (
	DefaultBaseURL   = "https://financialmodelingprep.com"
	DefaultTimeout   = 20 * time.Second
	DefaultRateLimit = 5
)

// Client talks to the Financial Modeling Prep REST API. It keeps a very
// small surface area tailored to the lookups the assistant needs.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	metrics    *metrics.Recorder
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRateLimit caps outbound requests per second. Zero or less disables limiting.
func WithRateLimit(perSecond int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ---- Helpers ----

func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, out any) (err error) {
	defer func() { c.metrics.ProviderRequest(endpoint, err) }()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.logger.Debug("fmp request", zap.String("endpoint", endpoint), zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fmp %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: strings.TrimSpace(string(b))}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fmp %s: read body: %w", endpoint, err)
	}
	// FMP answers some failures with 200 and an {"Error Message": "..."} object.
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var apiErr struct {
			Message string `json:"Error Message"`
		}
		if json.Unmarshal(trimmed, &apiErr) == nil && apiErr.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: apiErr.Message}
		}
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("fmp %s: decode: %w", endpoint, err)
	}
	return nil
}

// ---- Implementations ----

// SearchCompanies runs the provider's name search. Results keep the
// provider's relevance order.
func (c *Client) SearchCompanies(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	var out []SearchResult
	if err := c.getJSON(ctx, "search", "/api/v3/search", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EarningsCallTranscript returns the transcripts published for one fiscal
// quarter. An empty slice means the provider has nothing for that period.
func (c *Client) EarningsCallTranscript(ctx context.Context, ticker string, year, quarter int) ([]Transcript, error) {
	params := url.Values{}
	params.Set("year", strconv.Itoa(year))
	params.Set("quarter", strconv.Itoa(quarter))
	var out []Transcript
	path := "/api/v3/earning_call_transcript/" + url.PathEscape(ticker)
	if err := c.getJSON(ctx, "earning_call_transcript", path, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IncomeStatements returns statements newest first. period is "annual" or "quarter".
func (c *Client) IncomeStatements(ctx context.Context, ticker, period string) ([]IncomeStatement, error) {
	params := url.Values{}
	params.Set("period", period)
	var out []IncomeStatement
	path := "/api/v3/income-statement/" + url.PathEscape(ticker)
	if err := c.getJSON(ctx, "income_statement", path, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}
