// Package portstest provides in-memory implementations of the domain ports for tests.
package portstest

import (
	"context"
	"strings"
	"sync"

	"github.com/0xcro3dile/medrag-go/internal/domain/ports"
)

// Embedder maps text to a small bag-of-letters vector, so texts sharing letters score as similar.
type Embedder struct {
	Err error
}

// ModelName returns a fixed name.
func (e *Embedder) ModelName() string { return "letters" }

// Embed returns a 26-dimensional letter histogram.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	vec[0] += 0.01 // never the zero vector
	return vec, nil
}

// EmbedBatch embeds each text in turn.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// LLM answers every prompt with Answer and records the prompts it saw.
type LLM struct {
	Answer string
	Err    error

	mu      sync.Mutex
	prompts []string
}

// ModelName returns a fixed name.
func (l *LLM) ModelName() string { return "scripted" }

// Generate returns Answer or Err.
func (l *LLM) Generate(ctx context.Context, prompt string) (string, error) {
	l.mu.Lock()
	l.prompts = append(l.prompts, prompt)
	l.mu.Unlock()
	if l.Err != nil {
		return "", l.Err
	}
	return l.Answer, nil
}

// GenerateStream emits Answer word by word followed by a Done token.
func (l *LLM) GenerateStream(ctx context.Context, prompt string) (<-chan ports.StreamToken, error) {
	answer, err := l.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	words := strings.SplitAfter(answer, " ")
	ch := make(chan ports.StreamToken, len(words)+1)
	for _, w := range words {
		ch <- ports.StreamToken{Content: w}
	}
	ch <- ports.StreamToken{Done: true}
	close(ch)
	return ch, nil
}

// Prompts returns the prompts received so far.
func (l *LLM) Prompts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.prompts...)
}
