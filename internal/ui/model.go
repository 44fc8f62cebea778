package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rbright/signcast/internal/fsm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#268BD2")).
			Bold(true)

	suggestionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#874BFD")).
			Padding(0, 1).
			MarginRight(1)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	speakingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B58900"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DC322F"))
)

// actionMsg reports the outcome of an action run off the update loop.
type actionMsg struct {
	status string
	err    error
}

type model struct {
	ctx     context.Context
	term    *Terminal
	actions Actions

	input textinput.Model
	keys  keyMap
	help  help.Model

	state  state
	status string
	err    error
	width  int
}

func newModel(ctx context.Context, term *Terminal, actions Actions) model {
	ti := textinput.New()
	ti.Placeholder = "Signed words appear here"
	ti.Prompt = "> "
	ti.Focus()

	m := model{
		ctx:     ctx,
		term:    term,
		actions: actions,
		input:   ti,
		keys:    defaultKeyMap(),
		help:    help.New(),
	}
	m.applyState(term.snapshot())
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.term.waitForChange())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(10, msg.Width-4)
		m.help.Width = msg.Width
		return m, nil

	case refreshMsg:
		m.applyState(m.term.snapshot())
		return m, m.term.waitForChange()

	case actionMsg:
		m.status, m.err = msg.status, msg.err
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Speak):
			return m, m.speak()
		case key.Matches(msg, m.keys.Clear):
			return m, m.clear()
		case key.Matches(msg, m.keys.Voice):
			return m, m.voice()
		case key.Matches(msg, m.keys.Pick):
			index, _ := pickIndex(msg.String())
			return m, m.pick(index)
		}
	}

	return m.edit(msg)
}

// editAttempts bounds how often a keystroke is replayed onto a transcript
// that changed underneath it.
const editAttempts = 3

// edit applies msg to the transcript input. The input is first synced with
// the latest session state so the keystroke lands on text that includes
// every prediction applied so far.
func (m model) edit(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	for range editAttempts {
		m.applyState(m.term.snapshot())
		base := m.input.Value()

		input, next := m.input.Update(msg)
		cmd = next
		text := input.Value()
		if text == base {
			m.input = input
			return m, cmd
		}
		if m.actions.EditTranscript(base, text) {
			m.input = input
			m.state.transcript = text
			return m, cmd
		}
	}
	m.applyState(m.term.snapshot())
	m.err = errors.New("edit dropped: transcript is changing too fast")
	return m, cmd
}

func (m *model) applyState(s state) {
	if s.transcript != m.input.Value() {
		m.input.SetValue(s.transcript)
		m.input.CursorEnd()
	}
	m.state = s
}

func (m model) speak() tea.Cmd {
	ctx, actions := m.ctx, m.actions
	return func() tea.Msg {
		if err := actions.Speak(ctx, ""); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "speech requested"}
	}
}

func (m model) clear() tea.Cmd {
	ctx, actions := m.ctx, m.actions
	return func() tea.Msg {
		actions.Reset(ctx)
		return actionMsg{status: "cleared"}
	}
}

func (m model) voice() tea.Cmd {
	ctx, actions := m.ctx, m.actions
	return func() tea.Msg {
		resp, err := actions.Voice(ctx)
		if err != nil {
			return actionMsg{err: err}
		}
		if !resp.Succeeded() {
			return actionMsg{err: fmt.Errorf("voice change rejected: %s", resp.Message)}
		}
		return actionMsg{status: "voice changed"}
	}
}

func (m model) pick(index int) tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		if _, err := actions.ActivateSuggestion(index); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "suggestion added"}
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("signcast"))
	b.WriteString(" ")
	b.WriteString(m.speechView())
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Transcript"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Suggestions"))
	b.WriteString("\n")
	b.WriteString(m.suggestionsView())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(placeholderStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m model) speechView() string {
	if m.state.speech == fsm.StateSpeaking {
		return speakingStyle.Render("● speaking")
	}
	return placeholderStyle.Render("○ idle")
}

func (m model) suggestionsView() string {
	if len(m.state.suggestions) == 0 {
		return placeholderStyle.Render(m.state.placeholder)
	}
	parts := make([]string, 0, len(m.state.suggestions))
	for i, word := range m.state.suggestions {
		label := word
		if i < 9 {
			label = fmt.Sprintf("%d %s", i+1, word)
		}
		parts = append(parts, suggestionStyle.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}
