package assistant

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

type Prompt struct {
	Template    string  `yaml:"template"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	tmpl *template.Template
}

// PromptSpec holds the two prompts the assistant sends to the LLM.
type PromptSpec struct {
	Extract   Prompt `yaml:"extract"`
	Summarize Prompt `yaml:"summarize"`
}

// LoadPromptSpec reads a prompt spec from path, or the built-in one when
// path is empty. Templates are parsed up front so a bad file fails at startup.
func LoadPromptSpec(path string) (*PromptSpec, error) {
	b := defaultPrompts
	if path != "" {
		var err error
		b, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompt spec: %w", err)
		}
	}
	return ParsePromptSpec(b)
}

func ParsePromptSpec(b []byte) (*PromptSpec, error) {
	var spec PromptSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, fmt.Errorf("parse prompt spec: %w", err)
	}
	if err := spec.Extract.parse("extract"); err != nil {
		return nil, err
	}
	if err := spec.Summarize.parse("summarize"); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (p *Prompt) parse(name string) error {
	if strings.TrimSpace(p.Template) == "" {
		return fmt.Errorf("prompt %q has no template", name)
	}
	t, err := template.New(name).Option("missingkey=error").Parse(p.Template)
	if err != nil {
		return fmt.Errorf("parse %s template: %w", name, err)
	}
	p.tmpl = t
	return nil
}

func (p *Prompt) render(data any) (string, error) {
	var b bytes.Buffer
	if err := p.tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (p *Prompt) request(prompt string, json bool) CompletionRequest {
	return CompletionRequest{
		Prompt:      prompt,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		JSON:        json,
	}
}

// renderHistory formats prior turns as "User: ...\nAI: ..." lines.
func renderHistory(history []ConversationTurn) string {
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, fmt.Sprintf("User: %s\nAI: %s", turn.User, turn.AI))
	}
	return strings.Join(lines, "\n")
}
