package usecases

import (
	"fmt"
	"os"
	"strings"
	"text/template"
)

// DefaultPrompt grounds the model on the retrieved passages only.
const DefaultPrompt = `
You are a medical assistant.
Use ONLY the following context to answer the user's question.
If the answer cannot be found in the context, reply with:
"I could not find that information in the provided document."
But you can answer the normal conversations like greetings.

Context:
{{.Context}}

Question:
{{.Question}}

Answer:
`

// NotFoundAnswer is the reply the prompt asks for when the context has no answer.
const NotFoundAnswer = "I could not find that information in the provided document."

// PromptTemplate renders the question and retrieved context into a single prompt.
type PromptTemplate struct {
	tmpl *template.Template
}

type promptData struct {
	Context  string
	Question string
}

// NewPromptTemplate parses text. An empty text selects DefaultPrompt.
func NewPromptTemplate(text string) (*PromptTemplate, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultPrompt
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt template: %w", err)
	}
	return &PromptTemplate{tmpl: tmpl}, nil
}

// LoadPromptFile reads a template from disk. An empty path selects DefaultPrompt.
func LoadPromptFile(path string) (*PromptTemplate, error) {
	if path == "" {
		return NewPromptTemplate("")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt file: %w", err)
	}
	return NewPromptTemplate(string(data))
}

// MustDefaultPrompt returns the built-in template.
func MustDefaultPrompt() *PromptTemplate {
	p, err := NewPromptTemplate(DefaultPrompt)
	if err != nil {
		panic(err)
	}
	return p
}

// Render fills in the context and question.
func (p *PromptTemplate) Render(context, question string) (string, error) {
	var sb strings.Builder
	if err := p.tmpl.Execute(&sb, promptData{Context: context, Question: question}); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return sb.String(), nil
}
