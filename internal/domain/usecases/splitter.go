package usecases

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

// Default window sizes, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 40
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts text into windows of at most chunkSize characters.
// It prefers paragraph breaks, then line breaks, then spaces, and only
// falls back to single characters for runs with no separator at all.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter creates a Splitter. Non-positive sizes fall back to the defaults and
// an overlap that does not fit inside a window is clamped.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// ChunkSize returns the maximum window length.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the carried-over length between windows.
func (s *Splitter) Overlap() int { return s.overlap }

// SplitText returns the windows for text.
func (s *Splitter) SplitText(text string) []string {
	return s.split(text, s.separators)
}

// SplitDocuments splits every page and returns chunks carrying the page metadata.
func (s *Splitter) SplitDocuments(docs []entities.Document) []entities.Chunk {
	var chunks []entities.Chunk
	for _, doc := range docs {
		for i, text := range s.SplitText(doc.Content) {
			chunks = append(chunks, entities.Chunk{
				ID:         ChunkID(text),
				DocumentID: doc.ID,
				Source:     doc.Source,
				Page:       doc.Page,
				Content:    text,
				Index:      i,
			})
		}
	}
	return chunks
}

// ChunkID is the md5 hex digest of the chunk text.
func ChunkID(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var (
		final []string
		good  []string
	)
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge joins small pieces into windows, carrying up to overlap characters
// from the tail of one window into the head of the next.
func (s *Splitter) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.chunkSize && len(current) > 0 {
			if doc := joinTrim(current); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if doc := joinTrim(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepSeparator splits text on sep and glues each separator to the start
// of the piece that follows it. An empty sep splits into characters.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func joinTrim(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
