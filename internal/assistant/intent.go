package assistant

type IntentKind string

const (
	IntentFinancialMetrics IntentKind = "financial_metrics"
	IntentSummarization    IntentKind = "summarization"
)

func (k IntentKind) Valid() bool {
	return k == IntentFinancialMetrics || k == IntentSummarization
}

// Intent is what the extractor understood from a query. It is either
// Casual or Structured; callers type-switch on it.
type Intent interface {
	OriginalQuery() string
	isIntent()
}

// Casual is small talk. Response is shown to the user as is.
type Casual struct {
	Query    string
	Response string
}

func (c Casual) OriginalQuery() string { return c.Query }
func (Casual) isIntent() {}

// Structured is a request for financial data.
type Structured struct {
	Query      string
	FollowUp   bool
	Companies  []string
	Executives []string
	Topics     []string
	TimeRange  string
	Metric     string
	Kind       IntentKind
}

func (s Structured) OriginalQuery() string { return s.Query }
func (Structured) isIntent() {}

// WantsMetric reports whether the metric branch applies.
func (s Structured) WantsMetric() bool {
	return s.Kind == IntentFinancialMetrics && s.Metric != ""
}

// ConversationTurn is one prior exchange. AI is empty when the reply was
// never produced.
type ConversationTurn struct {
	User string `json:"user"`
	AI   string `json:"ai,omitempty"`
}
