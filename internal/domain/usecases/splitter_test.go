package usecases

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

func TestSplitter_ShortTextIsOneChunk(t *testing.T) {
	s := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)

	chunks := s.SplitText("  Fever is a temporary rise in body temperature.\n")

	assert.Equal(t, []string{"Fever is a temporary rise in body temperature."}, chunks)
}

func TestSplitter_EmptyText(t *testing.T) {
	s := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)

	assert.Empty(t, s.SplitText(""))
	assert.Empty(t, s.SplitText("   \n\n  "))
}

func TestSplitter_PrefersParagraphs(t *testing.T) {
	s := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	p1 := strings.Repeat("a", 600)
	p2 := strings.Repeat("b", 600)

	chunks := s.SplitText(p1 + "\n\n" + p2)

	assert.Equal(t, []string{p1, p2}, chunks)
}

func TestSplitter_OverlapBetweenWindows(t *testing.T) {
	s := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)

	chunks := s.SplitText(numberedWords(400))

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), DefaultChunkSize)
		if i == 0 {
			continue
		}
		prev := strings.Fields(chunks[i-1])
		last := prev[len(prev)-1]
		head := c
		if len(head) > DefaultChunkOverlap {
			head = head[:DefaultChunkOverlap]
		}
		assert.Contains(t, head, last, "window %d should start with the tail of window %d", i, i-1)
	}
}

func TestSplitter_CharacterFallback(t *testing.T) {
	s := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)

	chunks := s.SplitText(strings.Repeat("x", 2500))

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 580)
}

func TestSplitter_CountsRunes(t *testing.T) {
	s := NewSplitter(10, 0)

	chunks := s.SplitText(strings.Repeat("é", 25))

	require.Len(t, chunks, 3)
	assert.Equal(t, 10, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 5, utf8.RuneCountInString(chunks[2]))
}

func TestSplitter_Defaults(t *testing.T) {
	s := NewSplitter(0, -1)
	assert.Equal(t, DefaultChunkSize, s.ChunkSize())
	assert.Equal(t, DefaultChunkOverlap, s.Overlap())

	clamped := NewSplitter(100, 100)
	assert.Equal(t, 25, clamped.Overlap())
}

func TestSplitter_SplitDocuments(t *testing.T) {
	s := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	docs := []entities.Document{
		{ID: "d1", Source: "data/book.pdf", Page: 0, Content: "first page"},
		{ID: "d2", Source: "data/book.pdf", Page: 1, Content: "second page"},
	}

	chunks := s.SplitDocuments(docs)

	require.Len(t, chunks, 2)
	assert.Equal(t, "d2", chunks[1].DocumentID)
	assert.Equal(t, 1, chunks[1].Page)
	assert.Equal(t, "data/book.pdf", chunks[1].Source)
	assert.Equal(t, 0, chunks[1].Index)
	assert.Equal(t, ChunkID("second page"), chunks[1].ID)
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "0cc175b9c0f1b6a831c399e269772661", ChunkID("a"))
	assert.Equal(t, ChunkID("same text"), ChunkID("same text"))
	assert.NotEqual(t, ChunkID("same text"), ChunkID("other text"))
}
