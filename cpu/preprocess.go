package cpu

import (
	"strings"
)

// Line is a source statement and its 1-based line number.
type Line struct {
	LineNo int
	Text   string
}

// ReadLines numbers raw source lines.
func ReadLines(text []string) (lines []Line) {
	lines = make([]Line, len(text))
	for n, line := range text {
		lines[n] = Line{LineNo: n + 1, Text: strings.TrimRight(line, "\r")}
	}
	return
}

// StripComments removes everything from ';' to the end of each line. A ';'
// inside a double quoted string does not start a comment.
func StripComments(lines []Line) (stripped []Line) {
	stripped = make([]Line, len(lines))
	for n, line := range lines {
		if index := commentIndex(line.Text); index >= 0 {
			line.Text = line.Text[:index]
		}
		stripped[n] = line
	}
	return
}

// commentIndex returns the index of the ';' starting a comment, or -1.
func commentIndex(text string) int {
	quoted := false
	for n := 0; n < len(text); n++ {
		switch c := text[n]; {
		case quoted && c == '\\':
			n++
		case c == '"':
			quoted = !quoted
		case !quoted && c == ';':
			return n
		}
	}
	return -1
}

// StripLabels removes the 'label:' prefix of lines that do not begin with
// whitespace.
func StripLabels(lines []Line) (stripped []Line) {
	stripped = make([]Line, len(lines))
	for n, line := range lines {
		if !hasIndent(line.Text) {
			if index := strings.IndexByte(line.Text, ':'); index >= 0 {
				line.Text = line.Text[index+1:]
			}
		}
		stripped[n] = line
	}
	return
}

// RemoveEmptyLines drops lines holding only whitespace.
func RemoveEmptyLines(lines []Line) (kept []Line) {
	for _, line := range lines {
		if !isLineEmpty(line.Text) {
			kept = append(kept, line)
		}
	}
	return
}

func isLineEmpty(text string) bool {
	return len(strings.TrimSpace(text)) == 0
}

func hasIndent(text string) bool {
	return len(text) > 0 && (text[0] == ' ' || text[0] == '\t')
}
