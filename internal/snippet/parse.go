package snippet

import (
	"strconv"
	"strings"
)

// Parse reads a snippet body in a subset of LSP snippet syntax: `$n` and
// `${n}` bare tabstops, `${n:placeholder}`, `${n|choice,choice,...|}`, and
// `${n/regexp/format/flags}` transforms on mirror occurrences. A backslash
// makes the next character literal (so `\$`, `\}` and `\\` escape). Anything
// else passes through as literal text.
func Parse(body string) (*Snippet, error) {
	s := &Snippet{primary: map[int]Tabstop{}}
	var lit strings.Builder
	flushLit := func() {
		if lit.Len() > 0 {
			s.segments = append(s.segments, segment{kind: segLiteral, text: lit.String()})
			lit.Reset()
		}
	}

	runes := []rune(body)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\' && i+1 < len(runes):
			lit.WriteRune(runes[i+1])
			i++
		case r == '$' && i+1 < len(runes) && runes[i+1] == '{':
			end := matchBrace(runes, i+1)
			if end < 0 {
				return nil, ErrUnterminated
			}
			flushLit()
			if err := s.parseBraced(string(runes[i+2 : end])); err != nil {
				return nil, err
			}
			i = end
		case r == '$' && i+1 < len(runes) && isDigit(runes[i+1]):
			j := i + 1
			for j < len(runes) && isDigit(runes[j]) {
				j++
			}
			flushLit()
			idx, _ := strconv.Atoi(string(runes[i+1 : j]))
			s.reference(idx, Tabstop{Index: idx})
			i = j - 1
		default:
			lit.WriteRune(r)
		}
	}
	flushLit()
	return s, nil
}

// matchBrace returns the index of the `}` matching the `{` at open, or -1
// if unterminated. Nested braces aren't part of this grammar subset, so
// this is a flat scan, not a counting match.
func matchBrace(runes []rune, open int) int {
	for i := open + 1; i < len(runes); i++ {
		if runes[i] == '\\' {
			i++
			continue
		}
		if runes[i] == '}' {
			return i
		}
	}
	return -1
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// parseBraced handles the body of a `${...}` construct (without the
// surrounding braces): "n", "n:placeholder", "n|c1,c2|", or
// "n/regexp/format/flags".
func (s *Snippet) parseBraced(inner string) error {
	digits := 0
	for digits < len(inner) && isDigit(rune(inner[digits])) {
		digits++
	}
	if digits == 0 {
		// Not a tabstop construct at all (e.g. a variable); treat the whole
		// thing as literal text since this grammar subset has no variables.
		s.segments = append(s.segments, segment{kind: segLiteral, text: "${" + inner + "}"})
		return nil
	}
	idx, _ := strconv.Atoi(inner[:digits])
	rest := inner[digits:]

	switch {
	case rest == "":
		s.reference(idx, Tabstop{Index: idx})
	case strings.HasPrefix(rest, ":"):
		s.reference(idx, Tabstop{Index: idx, Placeholder: rest[1:]})
	case strings.HasPrefix(rest, "|") && strings.HasSuffix(rest, "|"):
		choices := strings.Split(rest[1:len(rest)-1], ",")
		s.reference(idx, Tabstop{Index: idx, Choices: choices})
	case strings.HasPrefix(rest, "/"):
		parts := splitUnescaped(rest[1:], '/')
		if len(parts) != 3 {
			s.segments = append(s.segments, segment{kind: segLiteral, text: "${" + inner + "}"})
			return nil
		}
		t := &Transform{Regexp: parts[0], Format: parts[1], Global: strings.Contains(parts[2], "g")}
		s.reference(idx, Tabstop{Index: idx, Transform: t})
	default:
		s.segments = append(s.segments, segment{kind: segLiteral, text: "${" + inner + "}"})
	}
	return nil
}

// splitUnescaped splits on sep, honoring `\sep` as a literal separator
// character rather than a split point.
func splitUnescaped(s string, sep byte) []string {
	var out []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			cur.WriteByte(s[i+1])
			i++
			continue
		}
		if s[i] == sep {
			out = append(out, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(s[i])
	}
	out = append(out, cur.String())
	return out
}

// reference records a tabstop occurrence: the first occurrence of each
// index becomes its primary definition (carrying placeholder/choices/
// transform); later occurrences are bare mirrors regardless of what they
// were written with, matching LSP snippet semantics where only the first
// occurrence's metadata is authoritative.
func (s *Snippet) reference(idx int, def Tabstop) {
	if _, seen := s.primary[idx]; !seen {
		s.primary[idx] = def
		s.order = append(s.order, idx)
	}
	s.segments = append(s.segments, segment{kind: segTabstop, index: idx})
}
