// Package parser provides document parsing adapters.
// Parsers implement ports.DocumentParser and return the text of each page.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"
)

// NativePDFParser extracts page text in-process.
type NativePDFParser struct {
	logger *slog.Logger
}

// NewNativePDFParser creates a pure-Go PDF parser.
func NewNativePDFParser(logger *slog.Logger) *NativePDFParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &NativePDFParser{logger: logger.With(slog.String("component", "parser"), slog.String("parser", "native"))}
}

// Parse returns one string per page. Pages without a content stream yield "".
func (p *NativePDFParser) Parse(ctx context.Context, data []byte, filename string) (pages []string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("parsing %s: %v", filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}

	n := reader.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			p.logger.Warn("skipping unreadable page", slog.String("file", filename), slog.Int("page", i), slog.Any("error", err))
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	p.logger.Debug("parsed pdf", slog.String("file", filename), slog.Int("pages", n))
	return pages, nil
}

// SupportedFormats returns formats this parser handles.
func (p *NativePDFParser) SupportedFormats() []string {
	return []string{"pdf"}
}
