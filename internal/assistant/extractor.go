package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/NutanNimkar/FinChat/internal/metrics"
)

// DefaultCasualResponse is used when the model flags a query as casual but
// does not supply a reply.
const DefaultCasualResponse = "Sure! Let me know how I can assist further."

const intentSchema = `{
  "type": "object",
  "properties": {
    "originalQuery":   {"type": ["string", "null"]},
    "casual":          {"type": ["boolean", "null"]},
    "isFollowUp":      {"type": ["boolean", "null"]},
    "companies":       {"type": ["array", "null"], "items": {"type": "string"}},
    "executives":      {"type": ["array", "null"], "items": {"type": "string"}},
    "topics":          {"type": ["array", "null"], "items": {"type": "string"}},
    "timeRange":       {"type": ["string", "null"]},
    "financialMetric": {"type": ["string", "null"]},
    "intent":          {"enum": ["financial_metrics", "summarization", "", null]},
    "response":        {"type": ["string", "null"]}
  }
}`

type rawIntent struct {
	OriginalQuery   string   `json:"originalQuery"`
	Casual          bool     `json:"casual"`
	IsFollowUp      bool     `json:"isFollowUp"`
	Companies       []string `json:"companies"`
	Executives      []string `json:"executives"`
	Topics          []string `json:"topics"`
	TimeRange       string   `json:"timeRange"`
	FinancialMetric string   `json:"financialMetric"`
	Intent          string   `json:"intent"`
	Response        string   `json:"response"`
}

type extractData struct {
	Query   string
	History string
}

// Extractor turns a free-text query plus prior turns into an Intent.
type Extractor struct {
	llm     Completer
	prompt  *Prompt
	schema  *gojsonschema.Schema
	logger  *zap.Logger
	metrics *metrics.Recorder
}

func NewExtractor(llm Completer, spec *PromptSpec, logger *zap.Logger, rec *metrics.Recorder) (*Extractor, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(intentSchema))
	if err != nil {
		return nil, fmt.Errorf("compile intent schema: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{llm: llm, prompt: &spec.Extract, schema: schema, logger: logger, metrics: rec}, nil
}

// Extract never fails. Anything the model gets wrong degrades to a casual
// intent that echoes the query back.
func (e *Extractor) Extract(ctx context.Context, query string, history []ConversationTurn) Intent {
	prompt, err := e.prompt.render(extractData{Query: query, History: renderHistory(history)})
	if err != nil {
		return e.fallback(query, "render", err)
	}
	raw, err := e.llm.Complete(ctx, e.prompt.request(prompt, true))
	if err != nil {
		return e.fallback(query, "llm_error", err)
	}
	doc, ok := extractJSONObject(raw)
	if !ok {
		return e.fallback(query, "parse", fmt.Errorf("no JSON object in %d bytes of output", len(raw)))
	}
	result, err := e.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return e.fallback(query, "parse", err)
	}
	if !result.Valid() {
		return e.fallback(query, "schema", schemaError(result.Errors()))
	}
	var ri rawIntent
	if err := json.Unmarshal(doc, &ri); err != nil {
		return e.fallback(query, "parse", err)
	}

	if ri.Casual {
		resp := strings.TrimSpace(ri.Response)
		if resp == "" {
			resp = DefaultCasualResponse
		}
		return Casual{Query: query, Response: resp}
	}
	kind := IntentKind(ri.Intent)
	if !kind.Valid() {
		return e.fallback(query, "intent", fmt.Errorf("missing intent"))
	}
	intent := Structured{
		Query:      query,
		FollowUp:   ri.IsFollowUp,
		Companies:  cleanList(ri.Companies),
		Executives: cleanList(ri.Executives),
		Topics:     cleanList(ri.Topics),
		TimeRange:  strings.TrimSpace(ri.TimeRange),
		Metric:     strings.TrimSpace(ri.FinancialMetric),
		Kind:       kind,
	}
	e.logger.Debug("extracted intent",
		zap.String("kind", string(intent.Kind)),
		zap.Strings("companies", intent.Companies),
		zap.String("metric", intent.Metric),
		zap.String("timeRange", intent.TimeRange),
		zap.Bool("followUp", intent.FollowUp))
	return intent
}

func (e *Extractor) fallback(query, reason string, err error) Intent {
	e.metrics.IntentFallback(reason)
	e.logger.Warn("intent extraction fell back to casual", zap.String("reason", reason), zap.Error(err))
	return Casual{Query: query, Response: query}
}

// extractJSONObject accepts the model output as is, without Markdown fences,
// or as the outermost {...} slice of surrounding prose.
func extractJSONObject(raw string) ([]byte, bool) {
	s := stripFences(raw)
	if s == "" {
		return nil, false
	}
	if json.Valid([]byte(s)) {
		return []byte(s), true
	}
	first := strings.IndexByte(s, '{')
	last := strings.LastIndexByte(s, '}')
	if first >= 0 && last > first {
		candidate := []byte(s[first : last+1])
		if json.Valid(candidate) {
			return candidate, true
		}
	}
	return nil, false
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func schemaError(errs []gojsonschema.ResultError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("intent does not match schema: %s", strings.Join(msgs, "; "))
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
