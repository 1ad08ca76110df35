package tui

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
)

type stubTutor struct {
	answer domain.Answer
	err    error
}

func (s *stubTutor) Ask(context.Context, string) (domain.Answer, error) {
	return s.answer, s.err
}

func sized(m Model) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func TestUpdate_EnterSubmitsQuestion(t *testing.T) {
	m := sized(New(&stubTutor{answer: domain.Answer{Text: "Four.", UsedContext: true}}))
	m.input.SetValue("What is two plus two?")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	require.NotNil(t, cmd, "submitting runs the ask command")
	assert.True(t, m.thinking)
	assert.Empty(t, m.input.Value(), "input clears on submit")

	msg := cmd()
	ans, ok := msg.(answerMsg)
	require.True(t, ok)
	assert.Equal(t, "What is two plus two?", ans.question)
	assert.Equal(t, "Four.", ans.answer.Text)
}

func TestUpdate_EmptyInputDoesNothing(t *testing.T) {
	m := sized(New(&stubTutor{}))
	m.input.SetValue("   ")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	assert.False(t, m.thinking)
	assert.Empty(t, m.history)
}

func TestUpdate_AnswerAppendsToTranscript(t *testing.T) {
	m := sized(New(&stubTutor{}))
	m.thinking = true

	updated, _ := m.Update(answerMsg{
		question: "What is a fraction?",
		answer: domain.Answer{
			Text:        "A fraction shows parts of a whole.",
			UsedContext: true,
			Sources:     []string{"fractions.txt"},
		},
	})
	m = updated.(Model)

	assert.False(t, m.thinking)
	require.Len(t, m.history, 1)
	transcript := m.renderTranscript()
	assert.Contains(t, transcript, "What is a fraction?")
	assert.Contains(t, transcript, "parts of a whole")
	assert.Contains(t, transcript, "fractions.txt")
}

func TestUpdate_ErrorShowsFriendlyMessage(t *testing.T) {
	m := sized(New(&stubTutor{}))

	updated, _ := m.Update(answerMsg{
		question: "q",
		err:      fmt.Errorf("%w: empty", domain.ErrInvalidInput),
	})
	m = updated.(Model)

	require.Len(t, m.history, 1)
	assert.True(t, m.history[0].failed)
	assert.Contains(t, m.renderTranscript(), "math topic")
}

func TestUpdate_CtrlCQuits(t *testing.T) {
	m := sized(New(&stubTutor{}))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
