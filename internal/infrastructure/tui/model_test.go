package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

type fakeAnswerer struct {
	resp      *entities.ChatResponse
	err       error
	questions []string
}

func (f *fakeAnswerer) Answer(ctx context.Context, req *entities.ChatRequest) (*entities.ChatResponse, error) {
	f.questions = append(f.questions, req.Query)
	return f.resp, f.err
}

func sized(t *testing.T, svc Answerer) Model {
	t.Helper()
	updated, _ := New(context.Background(), svc, "Ready.").Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func typeText(m Model, text string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

func TestModel_LoadingBeforeSize(t *testing.T) {
	m := New(context.Background(), &fakeAnswerer{}, "Ready.")

	assert.Equal(t, "Loading...", m.View())
}

func TestModel_AskAndAnswer(t *testing.T) {
	svc := &fakeAnswerer{resp: &entities.ChatResponse{
		Answer: "Acne is a skin condition.",
		Sources: []entities.QueryResult{
			{SourceDoc: "gale.pdf"},
			{SourceDoc: "gale.pdf"},
		},
	}}
	m := typeText(sized(t, svc), "what is acne")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.pending)
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.View(), "what is acne")

	msg := m.ask("what is acne")()
	updated, _ = m.Update(msg)
	m = updated.(Model)

	assert.False(t, m.pending)
	assert.Equal(t, []string{"what is acne"}, svc.questions)
	view := m.View()
	assert.Contains(t, view, "Acne is a skin condition.")
	assert.Contains(t, view, "Sources: gale.pdf")
	assert.Contains(t, view, "Answered from 2 passages.")
}

func TestModel_AnswerError(t *testing.T) {
	svc := &fakeAnswerer{err: errors.New("backend init failed")}
	m := typeText(sized(t, svc), "hello")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	updated, _ = m.Update(m.ask("hello")())
	m = updated.(Model)

	assert.Contains(t, m.status, "backend init failed")
	assert.Contains(t, m.View(), "Error: backend init failed")
}

func TestModel_IgnoresEmptyAndPendingInput(t *testing.T) {
	m := sized(t, &fakeAnswerer{})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, updated.(Model).turns)

	m = typeText(m, "first")
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = typeText(updated.(Model), "second")
	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Len(t, updated.(Model).turns, 1)
}

func TestModel_Quit(t *testing.T) {
	m := sized(t, &fakeAnswerer{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
