// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file implements a small structural scanner for devicetree-flavored
// source text. It replaces incidental pattern matching with bracket-aware
// scanning: node bodies are delimited by matching braces, property values by
// matching angle brackets, and string literals are honored while matching, so
// nested blocks and node boundaries are handled structurally.
//
// The scanner is deliberately tolerant. It operates on normalized text (see
// the corpus package), never validates the grammar, and recovers only the
// slices the extractors ask for. Text it cannot make sense of contributes
// nothing.
package devicetree

import "strings"

// isNameByte reports whether ch can appear inside a devicetree property or
// node name. Names may contain letters, digits, '_', '-', ',' and '#'.
func isNameByte(ch byte) bool {
	return ch == '_' || ch == '-' || ch == ',' || ch == '#' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// isLabelByte reports whether ch can appear inside a node label or a
// referenced node name (the identifier after '&').
func isLabelByte(ch byte) bool {
	return ch == '_' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// propertyIndex locates the next assignment of the named property at or after
// from, matching the name as a whole word. It returns the index of the first
// character after the '=' sign, or -1.
func propertyIndex(text, name string, from int) int {
	for search := from; search < len(text); {
		i := strings.Index(text[search:], name)
		if i < 0 {
			return -1
		}
		i += search
		search = i + 1

		// Whole-word check on both sides.
		if i > 0 && isNameByte(text[i-1]) {
			continue
		}
		j := i + len(name)
		if j < len(text) && isNameByte(text[j]) {
			continue
		}

		// Only whitespace may separate the name from '='.
		for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
			j++
		}
		if j < len(text) && text[j] == '=' {
			return j + 1
		}
	}
	return -1
}

// Property returns the raw value of the next assignment of the named property
// at or after from, up to but excluding the terminating ';'. Angle-bracket
// groups, parenthesized groups, and string literals inside the value are
// skipped structurally, so a ';' inside any of them does not terminate the
// value. The second return value is the index just past the consumed value.
func Property(text, name string, from int) (string, int, bool) {
	start := propertyIndex(text, name, from)
	if start < 0 {
		return "", -1, false
	}

	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ';':
			if depth <= 0 {
				return strings.TrimSpace(text[start:i]), i + 1, true
			}
		}
	}
	// Unterminated value: tolerate by consuming to end of text.
	return strings.TrimSpace(text[start:]), len(text), true
}

// StringProperty returns the contents of the first double-quoted string in the
// named property's value, searching the whole text.
func StringProperty(text, name string) (string, bool) {
	value, _, ok := Property(text, name, 0)
	if !ok {
		return "", false
	}
	open := strings.IndexByte(value, '"')
	if open < 0 {
		return "", false
	}
	close := strings.IndexByte(value[open+1:], '"')
	if close < 0 {
		return "", false
	}
	return value[open+1 : open+1+close], true
}

// ReferenceProperty scans for a property whose name ends with nameSuffix and
// whose value is a node reference of the form '&label'. It returns the label.
func ReferenceProperty(text, nameSuffix string) (string, bool) {
	for search := 0; search < len(text); {
		i := strings.Index(text[search:], nameSuffix)
		if i < 0 {
			return "", false
		}
		i += search
		search = i + 1

		j := i + len(nameSuffix)
		if j < len(text) && isNameByte(text[j]) {
			continue
		}

		value, _, ok := Property(text, text[nameStart(text, i):j], nameStart(text, i))
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if !strings.HasPrefix(value, "&") {
			continue
		}
		label := value[1:]
		end := 0
		for end < len(label) && isLabelByte(label[end]) {
			end++
		}
		if end > 0 {
			return label[:end], true
		}
	}
	return "", false
}

// nameStart walks left from i to the beginning of the name token containing i.
func nameStart(text string, i int) int {
	for i > 0 && isNameByte(text[i-1]) {
		i--
	}
	return i
}

// NodeByLabel locates the node definition carrying the given label
// ("label: node_name { ... }") and returns the index of its opening brace and
// the node body between the matching braces.
func NodeByLabel(text, label string) (body string, at int, ok bool) {
	for search := 0; search < len(text); {
		i := strings.Index(text[search:], label)
		if i < 0 {
			return "", -1, false
		}
		i += search
		search = i + 1

		if i > 0 && isLabelByte(text[i-1]) {
			continue
		}
		j := i + len(label)
		if j >= len(text) || text[j] != ':' {
			continue
		}

		open := strings.IndexByte(text[j:], '{')
		if open < 0 {
			continue
		}
		open += j
		end := matchBrace(text, open)
		if end < 0 {
			// Unterminated node: tolerate by taking the rest of the file.
			return text[open+1:], open, true
		}
		return text[open+1 : end], open, true
	}
	return "", -1, false
}

// CompatibleIndex returns the index just past the first 'compatible' property
// whose string value contains marker, or -1. The extractors use the position
// to find the nearest following property of interest.
func CompatibleIndex(text, marker string) int {
	for from := 0; from < len(text); {
		value, end, ok := Property(text, "compatible", from)
		if !ok {
			return -1
		}
		if strings.Contains(value, marker) {
			return end
		}
		from = end
	}
	return -1
}

// matchBrace returns the index of the '}' matching the '{' at open, honoring
// nested braces and string literals, or -1 when unbalanced.
func matchBrace(text string, open int) int {
	depth := 0
	inString := false
	for i := open; i < len(text); i++ {
		ch := text[i]
		if inString {
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// AngleValues tokenizes a property value's angle-bracket cell list. Tokens are
// split on whitespace, commas, and the angle brackets themselves; a
// parenthesized group (such as a negated constant or an OR-ed flag expression)
// is kept together as one token.
func AngleValues(value string) []string {
	var tokens []string
	var current strings.Builder
	depth := 0

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(value); i++ {
		ch := value[i]
		switch {
		case ch == '(':
			depth++
			current.WriteByte(ch)
		case ch == ')':
			depth--
			current.WriteByte(ch)
			if depth <= 0 {
				flush()
			}
		case depth > 0:
			current.WriteByte(ch)
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == ',' || ch == '<' || ch == '>':
			flush()
		default:
			current.WriteByte(ch)
		}
	}
	flush()
	return tokens
}

// ParseInt parses a devicetree integer cell: decimal or hex, optionally
// negative, optionally wrapped in parentheses.
func ParseInt(token string) (int, bool) {
	token = strings.TrimSpace(token)
	for strings.HasPrefix(token, "(") && strings.HasSuffix(token, ")") {
		token = strings.TrimSpace(token[1 : len(token)-1])
	}
	if token == "" {
		return 0, false
	}

	neg := false
	if token[0] == '-' {
		neg = true
		token = token[1:]
	}

	base := 10
	if strings.HasPrefix(token, "0x") || strings.HasPrefix(token, "0X") {
		base = 16
		token = token[2:]
	}
	if token == "" {
		return 0, false
	}

	n := 0
	for i := 0; i < len(token); i++ {
		ch := token[i]
		var d int
		switch {
		case ch >= '0' && ch <= '9':
			d = int(ch - '0')
		case base == 16 && ch >= 'a' && ch <= 'f':
			d = int(ch-'a') + 10
		case base == 16 && ch >= 'A' && ch <= 'F':
			d = int(ch-'A') + 10
		default:
			return 0, false
		}
		n = n*base + d
	}
	if neg {
		n = -n
	}
	return n, true
}
