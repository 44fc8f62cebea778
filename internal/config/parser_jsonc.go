package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, withPosition(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, withPosition(normalized, err)
	}

	return payload.materialize(base)
}

// normalizeJSONC blanks comments and trailing commas in one pass. Every
// removed byte becomes a space and line breaks are kept, so decoder offsets
// still point into the original text.
func normalizeJSONC(content string) (string, error) {
	buf := []byte(content)
	pendingComma := -1

	blank := func(from, to int) {
		for k := from; k < to; k++ {
			if buf[k] != '\n' && buf[k] != '\r' {
				buf[k] = ' '
			}
		}
	}

	for i := 0; i < len(buf); i++ {
		switch ch := buf[i]; {
		case ch == '"':
			pendingComma = -1
			end, ok := skipString(buf, i)
			if !ok {
				// Leave the broken string for the decoder to report.
				return string(buf), nil
			}
			i = end
		case ch == '/' && i+1 < len(buf) && buf[i+1] == '/':
			end := i
			for end < len(buf) && buf[end] != '\n' && buf[end] != '\r' {
				end++
			}
			blank(i, end)
			i = end - 1
		case ch == '/' && i+1 < len(buf) && buf[i+1] == '*':
			closing := strings.Index(string(buf[i+2:]), "*/")
			if closing < 0 {
				return "", errors.New("unterminated block comment in JSONC")
			}
			end := i + 2 + closing + 2
			blank(i, end)
			i = end - 1
		case ch == ',':
			pendingComma = i
		case ch == '}' || ch == ']':
			if pendingComma >= 0 {
				buf[pendingComma] = ' '
			}
			pendingComma = -1
		case isJSONWhitespace(ch):
		default:
			pendingComma = -1
		}
	}

	return string(buf), nil
}

// skipString returns the index of the quote closing the string opened at start.
func skipString(buf []byte, start int) (int, bool) {
	for i := start + 1; i < len(buf); i++ {
		switch buf[i] {
		case '\\':
			i++
		case '"':
			return i, true
		}
	}
	return len(buf), false
}

func isJSONWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t'
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra json.RawMessage
	switch err := decoder.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return err
	default:
		return errors.New("multiple JSON values are not allowed")
	}
}

// withPosition prefixes decoder errors that carry an offset with line and column.
func withPosition(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}

	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// offsetToLineCol converts a 1-based decoder offset into a line and column.
func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	limit := min(int(offset), len(content))
	prefix := content[:max(limit-1, 0)]

	line := 1 + strings.Count(prefix, "\n")
	col := len(prefix) - (strings.LastIndexByte(prefix, '\n') + 1) + 1
	return line, col
}
