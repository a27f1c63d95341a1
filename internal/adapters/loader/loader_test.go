package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeParser treats the file bytes as pages separated by "|".
type fakeParser struct {
	err   error
	calls []string
}

func (p *fakeParser) Parse(ctx context.Context, data []byte, filename string) ([]string, error) {
	p.calls = append(p.calls, filename)
	if p.err != nil {
		return nil, p.err
	}
	return strings.Split(string(data), "|"), nil
}

func (p *fakeParser) SupportedFormats() []string { return []string{"pdf"} }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTextLoader_LoadTxtFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "test.txt", "Hello World")

	docs, err := NewTextLoader().Load(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Hello World", docs[0].Content)
	assert.Equal(t, "test.txt", docs[0].Name)
	assert.Equal(t, path, docs[0].Source)
	assert.Equal(t, 0, docs[0].Page)
}

func TestTextLoader_SupportedExtensions(t *testing.T) {
	assert.Contains(t, NewTextLoader().SupportedExtensions(), ".txt")
}

func TestPDFLoader_OneDocumentPerPage(t *testing.T) {
	path := writeFile(t, t.TempDir(), "book.pdf", "first\x00 page|second page")
	parser := &fakeParser{}

	docs, err := NewPDFLoader(parser).Load(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "first page", docs[0].Content, "control characters are dropped")
	assert.Equal(t, 1, docs[1].Page)
	assert.Equal(t, path, docs[1].Source)
	assert.NotEqual(t, docs[0].ID, docs[1].ID)
	assert.Equal(t, []string{"book.pdf"}, parser.calls)
}

func TestMultiLoader_DispatchByExtension(t *testing.T) {
	dir := t.TempDir()
	txtPath := writeFile(t, dir, "test.txt", "txt content")
	mdPath := writeFile(t, dir, "test.md", "# Markdown")
	pdfPath := writeFile(t, dir, "test.PDF", "a|b")

	loader := NewMultiLoader(&fakeParser{})

	txt, err := loader.Load(context.Background(), txtPath)
	require.NoError(t, err)
	md, err := loader.Load(context.Background(), mdPath)
	require.NoError(t, err)
	pdf, err := loader.Load(context.Background(), pdfPath)
	require.NoError(t, err)

	assert.Equal(t, "txt content", txt[0].Content)
	assert.Equal(t, "# Markdown", md[0].Content)
	assert.Len(t, pdf, 2)
	assert.True(t, loader.Supports("x.pdf"))
	assert.False(t, loader.Supports("x.docx"))

	_, err = loader.Load(context.Background(), filepath.Join(dir, "slides.pptx"))
	assert.Error(t, err)
}

func TestMultiLoader_WithoutParser(t *testing.T) {
	loader := NewMultiLoader(nil)

	assert.Equal(t, []string{".markdown", ".md", ".txt"}, loader.SupportedExtensions())
}

func TestLoader_NonexistentFile(t *testing.T) {
	_, err := NewTextLoader().Load(context.Background(), "/nonexistent/file.txt")
	assert.Error(t, err)
}

func TestDirectorySource_GlobAndOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.pdf", "b1|b2")
	writeFile(t, dir, "a.pdf", "a1")
	writeFile(t, dir, "notes.txt", "ignored by glob")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0755))

	source := NewDirectorySource(dir, "", NewMultiLoader(&fakeParser{}), nil)
	docs, err := source.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a1", docs[0].Content)
	assert.Equal(t, "b1", docs[1].Content)
	assert.Equal(t, "b2", docs[2].Content)
}

func TestDirectorySource_SkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.pdf", "x")
	writeFile(t, dir, "ok.txt", "fine")

	loader := NewMultiLoader(&fakeParser{err: errors.New("bad xref")})
	docs, err := NewDirectorySource(dir, "*", loader, nil).Load(context.Background())

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "fine", docs[0].Content)
}

func TestDirectorySource_MissingDir(t *testing.T) {
	_, err := NewDirectorySource("/nonexistent/data", "*.pdf", NewMultiLoader(nil), nil).Load(context.Background())
	assert.ErrorContains(t, err, "data directory")
}

// fakeS3 serves ListObjectsV2 and GetObject for a single bucket.
func fakeS3(t *testing.T, bucket string, objects map[string]string) *httptest.Server {
	t.Helper()
	modified := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/"+bucket || r.URL.Path == "/"+bucket+"/" {
			prefix := r.URL.Query().Get("prefix")
			var sb strings.Builder
			sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
			sb.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
			fmt.Fprintf(&sb, "<Name>%s</Name><Prefix>%s</Prefix><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>", bucket, prefix)
			count := 0
			for key, body := range objects {
				if !strings.HasPrefix(key, prefix) {
					continue
				}
				count++
				fmt.Fprintf(&sb, `<Contents><Key>%s</Key><LastModified>%s</LastModified><ETag>"etag"</ETag><Size>%d</Size><StorageClass>STANDARD</StorageClass></Contents>`,
					key, modified.Format("2006-01-02T15:04:05.000Z"), len(body))
			}
			fmt.Fprintf(&sb, "<KeyCount>%d</KeyCount></ListBucketResult>", count)
			w.Header().Set("Content-Type", "application/xml")
			w.Write([]byte(sb.String()))
			return
		}

		key := strings.TrimPrefix(r.URL.Path, "/"+bucket+"/")
		body, ok := objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"etag"`)
		w.Header().Set("Content-Type", "application/pdf")
		http.ServeContent(w, r, key, modified, bytes.NewReader([]byte(body)))
	}))
}

func TestBucketSource_Load(t *testing.T) {
	server := fakeS3(t, "medical", map[string]string{
		"books/b.pdf":     "b1|b2",
		"books/a.pdf":     "a1",
		"books/notes.txt": "skip",
		"other/c.pdf":     "outside prefix",
	})
	defer server.Close()

	source, err := NewBucketSource(BucketConfig{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "medical",
		Prefix:    "books/",
	}, &fakeParser{}, nil)
	require.NoError(t, err)

	docs, err := source.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a1", docs[0].Content)
	assert.Equal(t, "medical/books/a.pdf", docs[0].Source)
	assert.Equal(t, "b2", docs[2].Content)
	assert.Equal(t, 1, docs[2].Page)
}

func TestNewBucketSource_RequiresBucket(t *testing.T) {
	_, err := NewBucketSource(BucketConfig{Endpoint: "localhost:9000"}, &fakeParser{}, nil)
	assert.Error(t, err)
}
