package diff

import (
	"fmt"
	"strings"
)

const devNull = "/dev/null"

// unquotePath decodes a path git printed in C-style quotes. Unquoted input
// is returned as is.
func unquotePath(s string) (string, error) {
	if !strings.HasPrefix(s, `"`) {
		return s, nil
	}
	path, rest, err := consumeQuoted(s)
	if err != nil {
		return "", err
	}
	if rest != "" {
		return "", fmt.Errorf("trailing text after quoted path %q", s)
	}
	return path, nil
}

// consumeQuoted decodes the quoted string at the start of s and returns the
// remainder after the closing quote.
func consumeQuoted(s string) (string, string, error) {
	if !strings.HasPrefix(s, `"`) {
		return "", s, fmt.Errorf("expected quoted path in %q", s)
	}
	var buf strings.Builder
	i := 1
	for i < len(s) {
		ch := s[i]
		switch ch {
		case '"':
			return buf.String(), s[i+1:], nil
		case '\\':
			if i+1 >= len(s) {
				return "", "", fmt.Errorf("dangling escape in %q", s)
			}
			next := s[i+1]
			if next >= '0' && next <= '7' {
				if i+3 >= len(s) {
					return "", "", fmt.Errorf("short octal escape in %q", s)
				}
				var v byte
				for _, d := range []byte(s[i+1 : i+4]) {
					if d < '0' || d > '7' {
						return "", "", fmt.Errorf("bad octal escape in %q", s)
					}
					v = v<<3 | (d - '0')
				}
				buf.WriteByte(v)
				i += 4
				continue
			}
			decoded, ok := simpleEscapes[next]
			if !ok {
				return "", "", fmt.Errorf("unknown escape \\%c in %q", next, s)
			}
			buf.WriteByte(decoded)
			i += 2
		default:
			buf.WriteByte(ch)
			i++
		}
	}
	return "", "", fmt.Errorf("unterminated quoted path %q", s)
}

var simpleEscapes = map[byte]byte{
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
	'\\': '\\',
	'"':  '"',
}

// stripPrefix removes the a/ or b/ side prefix git puts on diff paths.
func stripPrefix(path string) string {
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}

// parseSidePath decodes the path of a ---/+++ line. ok is false for /dev/null.
func parseSidePath(raw string) (string, bool, error) {
	// git appends a tab to names containing spaces.
	raw = strings.TrimSuffix(raw, "\t")
	if raw == devNull {
		return "", false, nil
	}
	path, err := unquotePath(raw)
	if err != nil {
		return "", false, err
	}
	return stripPrefix(path), true, nil
}

// parseGitHeaderPaths splits the operand of a `diff --git` line into the old
// and new path. Unquoted paths containing " b/" are ambiguous; the split that
// yields identical halves wins, then the first " b/".
func parseGitHeaderPaths(rest string) (string, string, error) {
	var oldPath, tail string
	if strings.HasPrefix(rest, `"`) {
		p, remainder, err := consumeQuoted(rest)
		if err != nil {
			return "", "", err
		}
		oldPath, tail = p, strings.TrimPrefix(remainder, " ")
	} else if idx := strings.Index(rest, ` "`); idx != -1 {
		oldPath, tail = rest[:idx], rest[idx+1:]
	} else {
		if n := len(rest); n%2 == 1 {
			mid := n / 2
			if rest[mid] == ' ' && rest[:mid] != "" && stripPrefix(rest[:mid]) == stripPrefix(rest[mid+1:]) {
				return stripPrefix(rest[:mid]), stripPrefix(rest[mid+1:]), nil
			}
		}
		idx := strings.Index(rest, " b/")
		if idx == -1 {
			return "", "", fmt.Errorf("cannot split paths in %q", rest)
		}
		oldPath, tail = rest[:idx], rest[idx+1:]
	}

	newPath, err := unquotePath(tail)
	if err != nil {
		return "", "", err
	}
	if oldPath == "" || newPath == "" {
		return "", "", fmt.Errorf("missing path in %q", rest)
	}
	return stripPrefix(oldPath), stripPrefix(newPath), nil
}
