// Package loader turns files into document pages.
// Loaders implement ports.DocumentLoader; sources implement ports.DocumentSource.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
	"github.com/0xcro3dile/medrag-go/internal/domain/ports"
)

// TextLoader loads plain text documents (.txt, .md) as a single page.
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) ([]entities.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	modTime := fileModTime(path)
	return []entities.Document{{
		ID:        generateDocID(path, 0),
		Name:      filepath.Base(path),
		Source:    path,
		Content:   string(content),
		CreatedAt: modTime,
		UpdatedAt: time.Now(),
	}}, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// PDFLoader loads a PDF as one document per page.
type PDFLoader struct {
	parser ports.DocumentParser
}

// NewPDFLoader creates a PDF loader backed by parser.
func NewPDFLoader(parser ports.DocumentParser) *PDFLoader {
	return &PDFLoader{parser: parser}
}

// Load parses the PDF at path.
func (l *PDFLoader) Load(ctx context.Context, path string) ([]entities.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return pagesToDocuments(ctx, l.parser, data, path, fileModTime(path))
}

// SupportedExtensions returns file extensions.
func (l *PDFLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}

// MultiLoader dispatches on file extension.
type MultiLoader struct {
	loaders map[string]ports.DocumentLoader
}

// NewMultiLoader creates a loader for text files and, through parser, PDFs.
func NewMultiLoader(parser ports.DocumentParser) *MultiLoader {
	m := &MultiLoader{loaders: make(map[string]ports.DocumentLoader)}
	m.Register(NewTextLoader())
	if parser != nil {
		m.Register(NewPDFLoader(parser))
	}
	return m
}

// Register adds a loader for all of its extensions.
func (m *MultiLoader) Register(l ports.DocumentLoader) {
	for _, ext := range l.SupportedExtensions() {
		m.loaders[ext] = l
	}
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) ([]entities.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := m.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("no loader for %q files", ext)
	}
	return loader.Load(ctx, path)
}

// SupportedExtensions returns all supported extensions, sorted.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether path has a registered extension.
func (m *MultiLoader) Supports(path string) bool {
	_, ok := m.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// DirectorySource loads every file in dir matching glob, in name order.
type DirectorySource struct {
	dir    string
	glob   string
	loader ports.DocumentLoader
	logger *slog.Logger
}

// NewDirectorySource creates a DocumentSource over a local directory.
func NewDirectorySource(dir, glob string, loader ports.DocumentLoader, logger *slog.Logger) *DirectorySource {
	if glob == "" {
		glob = "*.pdf"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectorySource{
		dir:    dir,
		glob:   glob,
		loader: loader,
		logger: logger.With(slog.String("component", "loader"), slog.String("dir", dir)),
	}
}

// Load reads all matching files. Files that fail to load are logged and skipped.
func (s *DirectorySource) Load(ctx context.Context) ([]entities.Document, error) {
	if _, err := os.Stat(s.dir); err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}

	paths, err := filepath.Glob(filepath.Join(s.dir, s.glob))
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", s.glob, err)
	}
	sort.Strings(paths)

	var docs []entities.Document
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			continue
		}

		pages, err := s.loader.Load(ctx, path)
		if err != nil {
			s.logger.Warn("skipping file", slog.String("path", path), slog.Any("error", err))
			continue
		}
		s.logger.Info("loaded file", slog.String("path", path), slog.Int("pages", len(pages)))
		docs = append(docs, pages...)
	}
	return docs, nil
}

// pagesToDocuments parses data and returns one document per page.
func pagesToDocuments(ctx context.Context, parser ports.DocumentParser, data []byte, source string, modTime time.Time) ([]entities.Document, error) {
	pages, err := parser.Parse(ctx, data, filepath.Base(source))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	docs := make([]entities.Document, 0, len(pages))
	for i, text := range pages {
		docs = append(docs, entities.Document{
			ID:        generateDocID(source, i),
			Name:      filepath.Base(source),
			Source:    source,
			Page:      i,
			Content:   cleanPDFContent(text),
			CreatedAt: modTime,
			UpdatedAt: now,
		})
	}
	return docs, nil
}

func fileModTime(path string) time.Time {
	if info, err := os.Stat(path); err == nil {
		return info.ModTime()
	}
	return time.Now()
}

// generateDocID creates a deterministic ID for a page of a source.
func generateDocID(source string, page int) string {
	hash := sha256.Sum256([]byte(source + "#" + strconv.Itoa(page)))
	return hex.EncodeToString(hash[:8])
}

// cleanPDFContent drops control characters left over from extraction, keeping line structure.
func cleanPDFContent(content string) string {
	var cleaned strings.Builder
	cleaned.Grow(len(content))
	for _, r := range content {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) && r != unicode.ReplacementChar {
			cleaned.WriteRune(r)
		}
	}
	return cleaned.String()
}
