// Package command parses free-form API command strings of the shape
// name(key=value, key=value, ...).
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gmailsql/gmailsql/internal/gmail"
)

// ParseError indicates a malformed command string.
type ParseError struct {
	Input string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Msg)
}

// Parse extracts a method name and a parameter map from a command string.
// Values parse as bool, int, quoted string, or bare string. No legality
// checking happens here; the fetch layer rejects unknown methods.
func Parse(input string) (string, gmail.Params, error) {
	s := strings.TrimSpace(input)

	open := strings.Index(s, "(")
	if open < 0 {
		return "", nil, &ParseError{Input: input, Msg: "missing '('"}
	}
	if !strings.HasSuffix(s, ")") {
		return "", nil, &ParseError{Input: input, Msg: "missing closing ')'"}
	}

	name := strings.TrimSpace(s[:open])
	if !isIdentifier(name) {
		return "", nil, &ParseError{Input: input, Msg: "invalid method name"}
	}

	params := gmail.Params{}
	inner := strings.TrimSpace(s[open+1 : len(s)-1])
	if inner == "" {
		return name, params, nil
	}

	args, err := splitArgs(inner)
	if err != nil {
		return "", nil, &ParseError{Input: input, Msg: err.Error()}
	}

	for _, arg := range args {
		eq := strings.Index(arg, "=")
		if eq < 0 {
			return "", nil, &ParseError{Input: input, Msg: fmt.Sprintf("argument %q is not key=value", arg)}
		}
		key := strings.TrimSpace(arg[:eq])
		if !isIdentifier(key) {
			return "", nil, &ParseError{Input: input, Msg: fmt.Sprintf("invalid parameter name %q", key)}
		}
		value, err := parseValue(strings.TrimSpace(arg[eq+1:]))
		if err != nil {
			return "", nil, &ParseError{Input: input, Msg: err.Error()}
		}
		params[key] = value
	}

	return name, params, nil
}

// splitArgs splits on commas outside quoted strings.
func splitArgs(s string) ([]string, error) {
	var args []string
	var b strings.Builder
	var quote rune

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			b.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			b.WriteRune(r)
		case r == ',':
			args = append(args, strings.TrimSpace(b.String()))
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	args = append(args, strings.TrimSpace(b.String()))
	return args, nil
}

// parseValue interprets one argument value.
func parseValue(s string) (any, error) {
	if s == "" {
		return nil, fmt.Errorf("empty value")
	}

	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1], nil
		}
	}

	switch s {
	case "true", "True":
		return true, nil
	case "false", "False":
		return false, nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}

	return s, nil
}

// isIdentifier reports whether s is a plain name: letters, digits and
// underscores, not starting with a digit.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
