package config

import (
	"fmt"
	"strings"
	"unicode"
)

// argvScanner splits a command string into words. Whitespace separates
// words, single or double quotes group them, and a backslash escapes the
// following rune. A quoted empty string yields an empty word.
type argvScanner struct {
	words  []string
	word   strings.Builder
	inWord bool
}

func (s *argvScanner) add(r rune) {
	s.word.WriteRune(r)
	s.inWord = true
}

func (s *argvScanner) end() {
	if !s.inWord {
		return
	}
	s.words = append(s.words, s.word.String())
	s.word.Reset()
	s.inWord = false
}

// parseArgv parses camera.command. A leading '#' disables the command.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || input[0] == '#' {
		return nil, nil
	}

	var (
		s       argvScanner
		quote   rune
		escaped bool
	)
	for _, r := range input {
		if escaped {
			s.add(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		if quote != 0 {
			if r == quote {
				quote = 0
			} else {
				s.add(r)
			}
			continue
		}

		switch {
		case r == '\'' || r == '"':
			quote = r
			s.inWord = true
		case unicode.IsSpace(r):
			s.end()
		default:
			s.add(r)
		}
	}

	switch {
	case escaped:
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	case quote != 0:
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	s.end()
	return s.words, nil
}
