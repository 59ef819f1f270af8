package assistant

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// maxTranscriptRunes bounds how much of a transcript goes into one prompt.
const maxTranscriptRunes = 4000

type synthesizeData struct {
	Company    string
	Ticker     string
	Transcript string
	History    string
	Query      string
}

// Synthesizer answers a query from earnings call transcript text.
type Synthesizer struct {
	llm    Completer
	prompt *Prompt
	logger *zap.Logger
}

func NewSynthesizer(llm Completer, spec *PromptSpec, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{llm: llm, prompt: &spec.Summarize, logger: logger}
}

// Synthesize returns false when the model failed or said nothing.
func (s *Synthesizer) Synthesize(ctx context.Context, transcript, query, company, ticker string, history []ConversationTurn) (string, bool) {
	log := s.logger.With(zap.String("company", company), zap.String("ticker", ticker))
	prompt, err := s.prompt.render(synthesizeData{
		Company:    company,
		Ticker:     ticker,
		Transcript: truncateRunes(transcript, maxTranscriptRunes),
		History:    renderHistory(history),
		Query:      query,
	})
	if err != nil {
		log.Error("render summary prompt", zap.Error(err))
		return "", false
	}
	out, err := s.llm.Complete(ctx, s.prompt.request(prompt, false))
	if err != nil {
		log.Warn("summary generation failed", zap.Error(err))
		return "", false
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", false
	}
	return out, true
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
