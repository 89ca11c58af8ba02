package interp

import "strings"

// lineCursor walks a script fragment line by line. Blocks are extracted by
// consuming lines from the same cursor the executor reads from, so a block
// command leaves the cursor positioned just past its terminating ")" line.
type lineCursor struct {
	lines []string
	idx   int
}

func newLineCursor(text string) *lineCursor {
	return &lineCursor{lines: splitLines(text)}
}

func (c *lineCursor) next() (string, bool) {
	if c.idx >= len(c.lines) {
		return "", false
	}
	line := c.lines[c.idx]
	c.idx++
	return line, true
}

// splitLines splits on newlines without producing a phantom final line for
// text ending in "\n".
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// isBlockHeader reports whether a trimmed line opens a block: a loop or if
// command whose line ends with the block-opening "(".
func isBlockHeader(trimmed string) bool {
	word, _ := splitToken(trimmed)
	if word != "loop" && word != "if" {
		return false
	}
	return strings.HasSuffix(strings.TrimRight(trimmed, " \t"), "(")
}

// extractBlock consumes lines up to and including the ")" line that closes
// the block the cursor is positioned inside, returning the body verbatim
// (terminator excluded). The scan tracks nesting depth so an inner block's
// closing line does not truncate the outer body. A block left unterminated
// at end of input ends there silently.
func extractBlock(c *lineCursor) string {
	var body strings.Builder
	depth := 1
	for {
		line, ok := c.next()
		if !ok {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == ")" {
			depth--
			if depth == 0 {
				break
			}
		} else if isBlockHeader(trimmed) {
			depth++
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	return body.String()
}

// splitToken returns the first whitespace-delimited token of s and the
// remainder following it (leading whitespace of the remainder preserved).
func splitToken(s string) (string, string) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	start := i
	for i < len(s) && s[i] != ' ' && s[i] != '\t' {
		i++
	}
	return s[start:i], s[i:]
}
