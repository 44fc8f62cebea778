package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rbright/signcast/internal/fsm"
)

// Console is a line-oriented session view for headless runs.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole writes rendered state to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// ShowTranscript implements session.View.
func (c *Console) ShowTranscript(text string) {
	c.printf("transcript: %s\n", text)
}

// ShowSuggestions implements session.View.
func (c *Console) ShowSuggestions(words []string) {
	numbered := make([]string, 0, len(words))
	for i, word := range words {
		numbered = append(numbered, fmt.Sprintf("%d) %s", i+1, word))
	}
	c.printf("suggestions: %s\n", strings.Join(numbered, "  "))
}

// ShowPlaceholder implements session.View.
func (c *Console) ShowPlaceholder(message string) {
	c.printf("suggestions: (%s)\n", message)
}

// SetSpeechState prints speaking flag transitions.
func (c *Console) SetSpeechState(st fsm.State) {
	c.printf("speech: %s\n", st)
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, format, args...)
}
