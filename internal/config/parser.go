// Package config resolves, parses, validates, and defaults signcast configuration.
package config

import "strings"

type format int

const (
	formatEmpty format = iota
	formatJSONC
	formatYAML
)

// sniffFormat picks the decoder from the first non-blank character:
// `{` selects JSONC and anything else is read as YAML.
func sniffFormat(content string) format {
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		return formatEmpty
	case trimmed[0] == '{':
		return formatJSONC
	default:
		return formatYAML
	}
}

// Parse overlays config content onto base and validates the result.
func Parse(content string, base Config) (Config, []Warning, error) {
	switch sniffFormat(content) {
	case formatJSONC:
		return parseJSONC(content, base)
	case formatYAML:
		return parseYAML(content, base)
	}

	warnings, err := Validate(base)
	if err != nil {
		return Config{}, nil, err
	}
	return base, warnings, nil
}
