package corpus

import "strings"

// Normalize strips comment syntax from raw configuration text: C-style line
// comments (//), block comments (/* ... */), and hash line comments (# at the
// first non-blank column, as used by build-configuration files). Stripped
// characters are replaced with spaces and newlines are preserved, so the line
// and column positions of everything that survives are identical to the source
// text. Double-quoted string literals are left untouched.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	const (
		stateCode = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateCode
	lineBlank := true // only whitespace seen since the last newline

	for i := 0; i < len(text); i++ {
		ch := text[i]

		switch state {
		case stateCode:
			switch {
			case ch == '"':
				state = stateString
				b.WriteByte(ch)
			case ch == '/' && i+1 < len(text) && text[i+1] == '/':
				state = stateLineComment
				b.WriteByte(' ')
			case ch == '/' && i+1 < len(text) && text[i+1] == '*':
				state = stateBlockComment
				b.WriteString("  ")
				i++
			case ch == '#' && lineBlank:
				state = stateLineComment
				b.WriteByte(' ')
			default:
				b.WriteByte(ch)
			}
		case stateString:
			if ch == '"' || ch == '\n' {
				state = stateCode
			}
			b.WriteByte(ch)
		case stateLineComment:
			if ch == '\n' {
				state = stateCode
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		case stateBlockComment:
			switch {
			case ch == '*' && i+1 < len(text) && text[i+1] == '/':
				state = stateCode
				b.WriteString("  ")
				i++
			case ch == '\n':
				b.WriteByte('\n')
			default:
				b.WriteByte(' ')
			}
		}

		if ch == '\n' {
			lineBlank = true
		} else if ch != ' ' && ch != '\t' {
			lineBlank = false
		}
	}

	return b.String()
}
