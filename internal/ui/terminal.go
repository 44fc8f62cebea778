// Package ui renders session state in a terminal.
package ui

import (
	"context"
	"errors"
	"slices"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rbright/signcast/internal/backend"
	"github.com/rbright/signcast/internal/fsm"
)

// Actions are the session operations reachable from the keyboard.
type Actions interface {
	Speak(ctx context.Context, text string) error
	Reset(ctx context.Context)
	Voice(ctx context.Context) (backend.SpeakResponse, error)
	ActivateSuggestion(index int) (string, error)
	// EditTranscript applies a user edit made on top of base. It reports
	// false when the transcript has moved on since base was read.
	EditTranscript(base, text string) bool
}

type state struct {
	transcript  string
	suggestions []string
	placeholder string
	speech      fsm.State
}

// Terminal is a session view backed by a bubbletea program.
//
// View calls never block: they store the latest state and signal the
// program, which reads it back on its own goroutine.
type Terminal struct {
	mu    sync.Mutex
	state state
	dirty chan struct{}
}

// NewTerminal constructs an idle terminal view.
func NewTerminal() *Terminal {
	return &Terminal{
		state: state{speech: fsm.StateIdle},
		dirty: make(chan struct{}, 1),
	}
}

// ShowTranscript implements session.View.
func (t *Terminal) ShowTranscript(text string) {
	t.update(func(s *state) { s.transcript = text })
}

// ShowSuggestions implements session.View.
func (t *Terminal) ShowSuggestions(words []string) {
	t.update(func(s *state) {
		s.suggestions = slices.Clone(words)
		s.placeholder = ""
	})
}

// ShowPlaceholder implements session.View.
func (t *Terminal) ShowPlaceholder(message string) {
	t.update(func(s *state) {
		s.suggestions = nil
		s.placeholder = message
	})
}

// SetSpeechState records the speaking flag for display.
func (t *Terminal) SetSpeechState(st fsm.State) {
	t.update(func(s *state) { s.speech = st })
}

// Run drives the terminal program until the user quits or ctx ends.
func (t *Terminal) Run(ctx context.Context, actions Actions, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	program := tea.NewProgram(newModel(ctx, t, actions), opts...)
	_, err := program.Run()
	if err == nil || errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (t *Terminal) update(fn func(*state)) {
	t.mu.Lock()
	fn(&t.state)
	t.mu.Unlock()

	select {
	case t.dirty <- struct{}{}:
	default:
	}
}

func (t *Terminal) snapshot() state {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state
	s.suggestions = slices.Clone(t.state.suggestions)
	return s
}

type refreshMsg struct{}

func (t *Terminal) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-t.dirty
		return refreshMsg{}
	}
}
