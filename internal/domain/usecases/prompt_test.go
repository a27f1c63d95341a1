package usecases

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptTemplate_Default(t *testing.T) {
	p, err := NewPromptTemplate("   ")
	require.NoError(t, err)

	out, err := p.Render("Acne is a skin condition.", "what is acne?")

	require.NoError(t, err)
	assert.Contains(t, out, "Context:\nAcne is a skin condition.\n")
	assert.Contains(t, out, "Question:\nwhat is acne?\n")
	assert.Contains(t, out, NotFoundAnswer)
}

func TestPromptTemplate_Custom(t *testing.T) {
	p, err := NewPromptTemplate("Q={{.Question}} C={{.Context}}")
	require.NoError(t, err)

	out, err := p.Render("ctx", "q")

	require.NoError(t, err)
	assert.Equal(t, "Q=q C=ctx", out)
}

func TestPromptTemplate_Errors(t *testing.T) {
	_, err := NewPromptTemplate("{{.Question")
	assert.ErrorContains(t, err, "parsing prompt template")

	p, err := NewPromptTemplate("{{.Patient}}")
	require.NoError(t, err)
	_, err = p.Render("ctx", "q")
	assert.ErrorContains(t, err, "rendering prompt")
}

func TestLoadPromptFile(t *testing.T) {
	p, err := LoadPromptFile("")
	require.NoError(t, err)
	out, err := p.Render("c", "q")
	require.NoError(t, err)
	assert.Contains(t, out, "You are a medical assistant.")

	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("Answer {{.Question}}"), 0o644))
	p, err = LoadPromptFile(path)
	require.NoError(t, err)
	out, err = p.Render("c", "why")
	require.NoError(t, err)
	assert.Equal(t, "Answer why", out)

	_, err = LoadPromptFile(filepath.Join(t.TempDir(), "missing.tmpl"))
	assert.ErrorContains(t, err, "reading prompt file")
}
