package elemid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// elementRegex matches an element name. Names may contain dashes since
// control groups such as `More-Light` are addressed the same way.
var elementRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// attributeRegex matches `name` or `name[1]`.
var attributeRegex = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_]*)(?:\[(\d+)\])?$`)

// String serializes the reference into its canonical form.
func (r Ref) String() string {
	var sb strings.Builder
	sb.WriteString(r.Element)
	sb.WriteRune('.')
	sb.WriteString(r.Attribute)
	if r.HasIndex() {
		sb.WriteString(fmt.Sprintf("[%d]", r.Index))
	}
	return sb.String()
}

// ParseRef parses the canonical `element.attribute` form. The element part
// is everything before the last dot.
func ParseRef(raw string) (Ref, error) {
	if raw == "" {
		return Ref{}, fmt.Errorf("reference cannot be empty")
	}

	dot := strings.LastIndex(raw, ".")
	if dot <= 0 || dot == len(raw)-1 {
		return Ref{}, fmt.Errorf("reference %q must have the form element.attribute", raw)
	}

	element, attr := raw[:dot], raw[dot+1:]
	if !elementRegex.MatchString(element) || element == "-" {
		return Ref{}, fmt.Errorf("invalid element name: %q", element)
	}

	matches := attributeRegex.FindStringSubmatch(attr)
	if matches == nil {
		return Ref{}, fmt.Errorf("invalid attribute format: %q", attr)
	}

	ref := NewRef(element, matches[1])
	if matches[2] != "" {
		index, err := strconv.Atoi(matches[2])
		if err != nil {
			// Unreachable due to regex `\d+`
			return Ref{}, fmt.Errorf("internal error parsing index: %w", err)
		}
		ref.Index = index
	}
	return ref, nil
}

// MustParseRef is like ParseRef but panics on malformed input. Intended for
// references that are compile-time constants.
func MustParseRef(raw string) Ref {
	ref, err := ParseRef(raw)
	if err != nil {
		panic(err)
	}
	return ref
}
