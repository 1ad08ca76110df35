// Package tui implements an interactive terminal chat over the tutor service.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driving"
)

// askTimeout bounds a single question end to end, covering retries inside
// the adapters.
const askTimeout = 2 * time.Minute

// answerMsg carries one completed question/answer exchange back into Update.
type answerMsg struct {
	question string
	answer   domain.Answer
	err      error
	took     time.Duration
}

// exchange is one rendered question/answer pair in the transcript.
type exchange struct {
	question string
	answer   string
	sources  []string
	grounded bool
	failed   bool
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	tutor    driving.TutorService
	input    textinput.Model
	viewport viewport.Model
	history  []exchange
	status   string
	thinking bool
	ready    bool
	width    int
}

// New creates the chat model over the tutor service.
func New(tutor driving.TutorService) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a math question and press Enter"
	ti.Focus()
	ti.CharLimit = domain.MaxQuestionLength
	vp := viewport.New(0, 0)
	return Model{
		tutor:    tutor,
		input:    ti,
		viewport: vp,
		status:   "Ready. Ctrl+C to quit.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - th
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.thinking {
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				break
			}
			m.input.Reset()
			m.thinking = true
			m.status = "Thinking..."
			return m, ask(m.tutor, q)
		}

	case answerMsg:
		m.thinking = false
		ex := exchange{question: msg.question}
		if msg.err != nil {
			ex.failed = true
			ex.answer = friendlyError(msg.err)
			m.status = "Something went wrong. Try again."
		} else {
			ex.answer = msg.answer.Text
			ex.sources = msg.answer.Sources
			ex.grounded = msg.answer.UsedContext
			m.status = fmt.Sprintf("Answered in %.1fs. Ctrl+C to quit.", msg.took.Seconds())
		}
		m.history = append(m.history, ex)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Math Tutor")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

// ask runs the question off the UI goroutine and delivers the result as a
// message.
func ask(tutor driving.TutorService, question string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
		defer cancel()

		start := time.Now()
		answer, err := tutor.Ask(ctx, question)
		return answerMsg{
			question: question,
			answer:   answer,
			err:      err,
			took:     time.Since(start),
		}
	}
}

func (m Model) renderTranscript() string {
	if len(m.history) == 0 {
		return "Ask me anything from your math textbook."
	}
	var sb strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(questionStyle.Render("You: " + ex.question))
		sb.WriteString("\n")
		if ex.failed {
			sb.WriteString(errorStyle.Render("Tutor: " + ex.answer))
			continue
		}
		sb.WriteString(answerStyle.Render("Tutor: " + ex.answer))
		if ex.grounded && len(ex.sources) > 0 {
			sb.WriteString("\n")
			sb.WriteString(sourceStyle.Render("From: " + strings.Join(ex.sources, ", ")))
		}
	}
	return sb.String()
}

// friendlyError turns pipeline errors into student-appropriate messages.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "I can't work with that question. Try asking about a math topic in a sentence or two."
	case errors.Is(err, context.DeadlineExceeded):
		return "That took too long. Please try again."
	default:
		return "I ran into a problem answering that. Please try again in a moment."
	}
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle     = lipgloss.NewStyle()
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
