package engine

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites script source before passing it to zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: set-cutoff -> set_cutoff
//     zygomys reads a hyphen inside an identifier as the subtraction
//     operator.
//
//  3. ; line comments become // comments, the form zygomys understands.
//
// String literals (double-quoted and backtick) pass through untouched.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b)+len(b)/4)
	for i := 0; i < len(b); {
		switch c := b[i]; {
		case c == '"':
			j := skipString(b, i, '"', true)
			out = append(out, b[i:j]...)
			i = j
		case c == '`':
			j := skipString(b, i, '`', false)
			out = append(out, b[i:j]...)
			i = j
		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}
		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			// := is an operator, not a keyword.
			out = append(out, ':', '=')
			i += 2
		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j
		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// skipString returns the index just past the literal opened at b[i].
func skipString(b []byte, i int, quote byte, escapes bool) int {
	j := i + 1
	for j < len(b) && b[j] != quote {
		if escapes && b[j] == '\\' && j+1 < len(b) {
			j++
		}
		j++
	}
	if j < len(b) {
		j++
	}
	return j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
