package fmp

import (
	"encoding/json"
	"fmt"
)

// SearchResult is one hit from the name search endpoint.
type SearchResult struct {
	Symbol            string `json:"symbol"`
	Name              string `json:"name"`
	Currency          string `json:"currency"`
	StockExchange     string `json:"stockExchange"`
	ExchangeShortName string `json:"exchangeShortName"`
}

type Transcript struct {
	Symbol  string `json:"symbol"`
	Quarter int    `json:"quarter"`
	Year    int    `json:"year"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

// IncomeStatement keeps every field the provider sends so callers can
// address line items by their provider name (revenue, netIncome, eps, ...).
type IncomeStatement map[string]any

// Number returns the numeric value of field. ok is false when the field is
// absent or not a number.
func (s IncomeStatement) Number(field string) (float64, bool) {
	switch v := s[field].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func (s IncomeStatement) String(field string) string {
	if v, ok := s[field].(string); ok {
		return v
	}
	return ""
}

type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fmp %s failed (%d): %s", e.Endpoint, e.StatusCode, e.Message)
}
