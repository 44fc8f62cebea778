package indicator

import (
	"strings"

	"github.com/rbright/signcast/internal/config"
)

// messages are the user-visible indicator strings.
type messages struct {
	speaking  string
	errorText string
}

func defaultMessages() messages {
	return messages{
		speaking:  "Speaking…",
		errorText: "Speech request failed",
	}
}

// withOverrides applies configured indicator text over m.
func (m messages) withOverrides(cfg config.IndicatorConfig) messages {
	if text := strings.TrimSpace(cfg.TextSpeaking); text != "" {
		m.speaking = text
	}
	return m
}
