package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Speak key.Binding
	Clear key.Binding
	Voice key.Binding
	Pick  key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func defaultKeyMap() keyMap {
	picks := make([]string, 0, 9)
	for i := range 9 {
		picks = append(picks, "alt+"+strconv.Itoa(i+1))
	}
	return keyMap{
		Speak: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "speak")),
		Clear: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
		Voice: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "change voice")),
		Pick:  key.NewBinding(key.WithKeys(picks...), key.WithHelp("alt+1-9", "pick suggestion")),
		Help:  key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		Quit:  key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Speak, k.Pick, k.Clear, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Speak, k.Voice},
		{k.Pick, k.Clear},
		{k.Help, k.Quit},
	}
}

// pickIndex maps "alt+N" to the zero-based suggestion index.
func pickIndex(keystroke string) (int, bool) {
	if len(keystroke) != len("alt+1") || keystroke[:4] != "alt+" {
		return 0, false
	}
	n := int(keystroke[4] - '0')
	if n < 1 || n > 9 {
		return 0, false
	}
	return n - 1, true
}
