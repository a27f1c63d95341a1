// Package tokenizer counts model tokens for prompt budgeting.
package tokenizer

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used by the current OpenAI-compatible chat models.
const DefaultEncoding = "cl100k_base"

// Counter implements ports.TokenCounter with tiktoken.
// When the encoding cannot be loaded it estimates four characters per token.
type Counter struct {
	encoding string
	logger   *slog.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewCounter creates a counter for the named encoding. The encoding is loaded on first use.
func NewCounter(encoding string, logger *slog.Logger) *Counter {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Counter{
		encoding: encoding,
		logger:   logger.With(slog.String("component", "tokenizer")),
	}
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	c.once.Do(c.load)
	if c.enc == nil {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

func (c *Counter) load() {
	enc, err := tiktoken.GetEncoding(c.encoding)
	if err != nil {
		c.logger.Warn("token encoding unavailable, estimating", slog.String("encoding", c.encoding), slog.Any("error", err))
		return
	}
	c.enc = enc
}

// Estimate approximates a token count as one token per four characters, rounded up.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
