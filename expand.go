// FILE: lixenwraith/props/expand.go
package props

import (
	"context"
	"fmt"
	"strings"
)

// Default placeholder syntax and expansion limits.
const (
	DefaultPlaceholderPrefix = "${"
	DefaultPlaceholderSuffix = "}"
	DefaultDefaultSeparator  = ":"
	DefaultMaxDepth          = 50
)

// LookupFunc resolves a property name to its raw, unexpanded value.
type LookupFunc func(ctx context.Context, name string) (string, bool)

// Expander substitutes ${name} and ${name:default} references in raw values.
// References are matched with balanced delimiters, so ${a:${b}} and
// ${${env}.host} are both single references. The name part of a reference is
// itself expanded; the default literal is substituted verbatim.
type Expander struct {
	prefix    string
	suffix    string
	separator string
	maxDepth  int
}

// NewExpander creates an Expander. Empty arguments fall back to the defaults.
func NewExpander(prefix, suffix, separator string, maxDepth int) *Expander {
	if prefix == "" {
		prefix = DefaultPlaceholderPrefix
	}
	if suffix == "" {
		suffix = DefaultPlaceholderSuffix
	}
	if separator == "" {
		separator = DefaultDefaultSeparator
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Expander{prefix: prefix, suffix: suffix, separator: separator, maxDepth: maxDepth}
}

// ExpansionState tracks the properties currently being expanded within one
// top-level resolution. It is not safe for concurrent use; create one per call.
type ExpansionState struct {
	path       []string
	inProgress map[string]bool
}

// NewExpansionState starts a state with the given properties already in progress,
// normally the top-level property whose value is being expanded.
func NewExpansionState(roots ...string) *ExpansionState {
	s := &ExpansionState{inProgress: make(map[string]bool)}
	for _, r := range roots {
		s.push(r)
	}
	return s
}

func (s *ExpansionState) push(name string) {
	s.path = append(s.path, name)
	s.inProgress[name] = true
}

func (s *ExpansionState) pop() {
	last := s.path[len(s.path)-1]
	s.path = s.path[:len(s.path)-1]
	delete(s.inProgress, last)
}

// Depth returns the number of properties currently in progress.
func (s *ExpansionState) Depth() int { return len(s.path) }

// HasPlaceholder reports whether raw contains the placeholder prefix.
func (e *Expander) HasPlaceholder(raw string) bool {
	return strings.Contains(raw, e.prefix)
}

// Expand substitutes every reference in raw, resolving referenced properties
// through lookup and expanding their values recursively.
func (e *Expander) Expand(ctx context.Context, raw string, lookup LookupFunc, state *ExpansionState) (string, error) {
	if !e.HasPlaceholder(raw) {
		return raw, nil
	}
	if state == nil {
		state = NewExpansionState()
	}

	var b strings.Builder
	i := 0
	for i < len(raw) {
		start := strings.Index(raw[i:], e.prefix)
		if start < 0 {
			b.WriteString(raw[i:])
			break
		}
		start += i
		b.WriteString(raw[i:start])

		bodyStart := start + len(e.prefix)
		end, ok := e.closing(raw, bodyStart)
		if !ok {
			// Unterminated reference stays literal
			b.WriteString(raw[start:])
			break
		}

		value, err := e.reference(ctx, raw[start:end+len(e.suffix)], raw[bodyStart:end], lookup, state)
		if err != nil {
			return "", err
		}
		b.WriteString(value)
		i = end + len(e.suffix)
	}

	return b.String(), nil
}

// reference resolves the body of a single ${...} reference.
func (e *Expander) reference(ctx context.Context, literal, body string, lookup LookupFunc, state *ExpansionState) (string, error) {
	namePart, defaultValue, hasDefault := e.splitDefault(body)

	name := namePart
	if e.HasPlaceholder(namePart) {
		expanded, err := e.Expand(ctx, namePart, lookup, state)
		if err != nil {
			return "", err
		}
		name = expanded
	}
	name = strings.TrimSpace(name)
	if name == "" {
		// ${} and ${:x} are not references
		return literal, nil
	}

	if state.inProgress[name] {
		return "", cycleError(state.path, name)
	}
	if state.Depth() >= e.maxDepth {
		return "", fmt.Errorf("%w: %d levels resolving %q", ErrExpansionDepth, e.maxDepth, name)
	}

	raw, found := lookup(ctx, name)
	if !found {
		if hasDefault {
			return defaultValue, nil
		}
		if len(state.path) > 0 {
			return "", fmt.Errorf("%w: %q referenced by %q", ErrMissingPlaceholder, name, state.path[len(state.path)-1])
		}
		return "", fmt.Errorf("%w: %q", ErrMissingPlaceholder, name)
	}

	state.push(name)
	defer state.pop()
	return e.Expand(ctx, raw, lookup, state)
}

// closing returns the index of the suffix that balances the prefix opened
// just before pos.
func (e *Expander) closing(s string, pos int) (int, bool) {
	depth := 0
	for j := pos; j < len(s); {
		switch {
		case strings.HasPrefix(s[j:], e.prefix):
			depth++
			j += len(e.prefix)
		case strings.HasPrefix(s[j:], e.suffix):
			if depth == 0 {
				return j, true
			}
			depth--
			j += len(e.suffix)
		default:
			j++
		}
	}
	return 0, false
}

// splitDefault splits a reference body at the first separator outside any
// nested reference.
func (e *Expander) splitDefault(body string) (name, def string, hasDefault bool) {
	depth := 0
	for j := 0; j < len(body); {
		switch {
		case strings.HasPrefix(body[j:], e.prefix):
			depth++
			j += len(e.prefix)
		case depth > 0 && strings.HasPrefix(body[j:], e.suffix):
			depth--
			j += len(e.suffix)
		case depth == 0 && strings.HasPrefix(body[j:], e.separator):
			return body[:j], body[j+len(e.separator):], true
		default:
			j++
		}
	}
	return body, "", false
}
