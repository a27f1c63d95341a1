// Package tui is the terminal chat front end.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

// Answerer is the TUI-facing subset of the query service.
type Answerer interface {
	Answer(ctx context.Context, req *entities.ChatRequest) (*entities.ChatResponse, error)
}

type turn struct {
	question string
	answer   string
	sources  []string
	err      error
}

// answerMsg carries a finished answer back into the update loop.
type answerMsg struct {
	resp *entities.ChatResponse
	err  error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	service  Answerer
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	turns    []turn
	status   string
	pending  bool
	ready    bool
}

// New creates a chat model. ctx bounds every question asked from the screen.
func New(ctx context.Context, service Answerer, status string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a medical question and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		ctx:      ctx,
		service:  service,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   status,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, resize, spinner and answer messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, vh := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header, status, input box, input line
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-vh)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.turns = append(m.turns, turn{question: q})
			m.pending = true
			m.status = "Thinking..."
			m.input.Reset()
			m.refresh()
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		m.pending = false
		last := &m.turns[len(m.turns)-1]
		if msg.err != nil {
			last.err = msg.err
			m.status = "Error: " + msg.err.Error()
		} else {
			last.answer = msg.resp.Answer
			last.sources = sourceNames(msg.resp.Sources)
			m.status = fmt.Sprintf("Answered from %d passages.", len(msg.resp.Sources))
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the question off the update loop.
func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.service.Answer(m.ctx, &entities.ChatRequest{Query: question})
		return answerMsg{resp: resp, err: err}
	}
}

// View renders the header, transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Medical Chatbot")
	status := statusStyle.Render(m.status)
	if m.pending {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return hintStyle.Render("Answers are drawn only from the indexed medical reference.")
	}
	wrap := lipgloss.NewStyle().Width(max(10, m.viewport.Width-8))

	var sb strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(userStyle.Render("You: ") + wrap.Render(t.question) + "\n")
		switch {
		case t.err != nil:
			sb.WriteString(errorStyle.Render("Error: "+t.err.Error()) + "\n")
		case t.answer != "":
			sb.WriteString(botStyle.Render("Bot: ") + wrap.Render(t.answer) + "\n")
			if len(t.sources) > 0 {
				sb.WriteString(hintStyle.Render("Sources: "+strings.Join(t.sources, ", ")) + "\n")
			}
		default:
			sb.WriteString(hintStyle.Render("...") + "\n")
		}
	}
	return sb.String()
}

func sourceNames(results []entities.QueryResult) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range results {
		if r.SourceDoc != "" && !seen[r.SourceDoc] {
			seen[r.SourceDoc] = true
			names = append(names, r.SourceDoc)
		}
	}
	return names
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, service Answerer, status string) error {
	p := tea.NewProgram(New(ctx, service, status), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	botStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	spinnerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)
