package schema

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxEvents        = 100
	maxParams        = 200
	maxIdentifierLen = 100
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateSchema checks a schema declaration before it is registered.
// Every failure wraps ErrInvalidSpec.
func ValidateSchema(s Schema) error {
	if err := validateIdentifier(s.Name); err != nil {
		return fmt.Errorf("%w: invalid schema name %q: %v", ErrInvalidSpec, s.Name, err)
	}

	if len(s.Events) == 0 {
		return fmt.Errorf("%w: schema %q must declare at least one trigger event", ErrInvalidSpec, s.Name)
	}
	if len(s.Events) > maxEvents {
		return fmt.Errorf("%w: schema %q declares %d events, maximum allowed is %d", ErrInvalidSpec, s.Name, len(s.Events), maxEvents)
	}

	seenEvents := make(map[string]bool, len(s.Events))
	for _, event := range s.Events {
		// Event names are display labels, so spaces are fine but padding is not
		if event == "" {
			return fmt.Errorf("%w: schema %q has an empty event name", ErrInvalidSpec, s.Name)
		}
		if strings.TrimSpace(event) != event {
			return fmt.Errorf("%w: event %q in schema %q has leading/trailing whitespace", ErrInvalidSpec, event, s.Name)
		}
		if seenEvents[event] {
			return fmt.Errorf("%w: event %q is declared twice in schema %q", ErrInvalidSpec, event, s.Name)
		}
		seenEvents[event] = true
	}

	if len(s.Params) == 0 {
		return fmt.Errorf("%w: schema %q must declare at least one param", ErrInvalidSpec, s.Name)
	}
	if len(s.Params) > maxParams {
		return fmt.Errorf("%w: schema %q declares %d params, maximum allowed is %d", ErrInvalidSpec, s.Name, len(s.Params), maxParams)
	}

	seenParams := make(map[string]bool, len(s.Params))
	for _, p := range s.Params {
		if err := validateIdentifier(p.Key); err != nil {
			return fmt.Errorf("%w: invalid param key %q in schema %q: %v", ErrInvalidSpec, p.Key, s.Name, err)
		}
		// "value" is bound to the condition's own param in expressions
		if p.Key == valueVariable {
			return fmt.Errorf("%w: param key %q in schema %q is reserved", ErrInvalidSpec, p.Key, s.Name)
		}
		if seenParams[p.Key] {
			return fmt.Errorf("%w: param %q is declared twice in schema %q", ErrInvalidSpec, p.Key, s.Name)
		}
		if !p.Type.Valid() {
			return fmt.Errorf("%w: param %q in schema %q has invalid type %q (must be one of: string, number)", ErrInvalidSpec, p.Key, s.Name, p.Type)
		}
		seenParams[p.Key] = true
	}

	return nil
}

// validateIdentifier checks a schema name or param key.
// Param keys become expression variables, so they follow identifier rules.
func validateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("identifier length %d exceeds maximum of %d characters", len(name), maxIdentifierLen)
	}

	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$ (start with letter or underscore, followed by letters, digits, or underscores)")
	}

	if isReservedKeyword(name) {
		return fmt.Errorf("cannot use reserved keyword %q as identifier", name)
	}

	return nil
}

// isReservedKeyword checks a name against the CEL reserved words
func isReservedKeyword(name string) bool {
	reservedKeywords := map[string]bool{
		"true":  true,
		"false": true,
		"null":  true,

		"if":       true,
		"else":     true,
		"for":      true,
		"while":    true,
		"break":    true,
		"continue": true,
		"return":   true,

		"var":      true,
		"let":      true,
		"const":    true,
		"function": true,

		"in":        true,
		"as":        true,
		"import":    true,
		"package":   true,
		"namespace": true,
		"loop":      true,
		"void":      true,
	}

	return reservedKeywords[name]
}
