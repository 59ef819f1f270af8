package types

import (
	"github.com/NutanNimkar/FinChat/internal/assistant"
	"github.com/NutanNimkar/FinChat/internal/finance"
)

type ConversationTurn = assistant.ConversationTurn

type QueryRequest struct {
	Query              string             `json:"query" validate:"required"`
	Conversation       []ConversationTurn `json:"conversation,omitempty" validate:"omitempty,dive"`
	MentionedCompanies []string           `json:"mentionedCompanies,omitempty"`
}

// QueryResponse is the reply to a data query.
type QueryResponse struct {
	Results            []string `json:"results"`
	MentionedCompanies []string `json:"mentionedCompanies"`
}

// ResponseOnly carries casual and clarifying replies.
type ResponseOnly struct {
	Response string `json:"response"`
}

type TranscriptsResponse struct {
	Data []string `json:"data"`
}

type MetricResponse struct {
	Data string `json:"data"`
}

type TickerResponse struct {
	Ticker finance.TickerMap `json:"ticker"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
