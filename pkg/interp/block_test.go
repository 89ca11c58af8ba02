package interp

import "testing"

func TestExtractBlockSimple(t *testing.T) {
	c := newLineCursor("print i\nprint j\n)\nprint after\n")
	body := extractBlock(c)
	if body != "print i\nprint j\n" {
		t.Fatalf("body = %q", body)
	}
	line, ok := c.next()
	if !ok || line != "print after" {
		t.Fatalf("cursor after block = %q, %v", line, ok)
	}
}

func TestExtractBlockNested(t *testing.T) {
	c := newLineCursor("if i > 0 (\nprint i\n)\nprint tail\n)\n")
	body := extractBlock(c)
	if body != "if i > 0 (\nprint i\n)\nprint tail\n" {
		t.Fatalf("body = %q", body)
	}
	if _, ok := c.next(); ok {
		t.Fatalf("cursor should be exhausted")
	}
}

func TestExtractBlockUnterminated(t *testing.T) {
	c := newLineCursor("print i\nprint j\n")
	body := extractBlock(c)
	if body != "print i\nprint j\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestExtractBlockTerminatorMayBeIndented(t *testing.T) {
	c := newLineCursor("print i\n\t  )  \nprint after\n")
	body := extractBlock(c)
	if body != "print i\n" {
		t.Fatalf("body = %q", body)
	}
	line, _ := c.next()
	if line != "print after" {
		t.Fatalf("next line = %q", line)
	}
}

func TestSplitTokenPreservesRemainderWhitespace(t *testing.T) {
	tok, rest := splitToken("  set   x = 1")
	if tok != "set" || rest != "   x = 1" {
		t.Fatalf("splitToken = %q, %q", tok, rest)
	}
	tok, rest = splitToken("")
	if tok != "" || rest != "" {
		t.Fatalf("splitToken(\"\") = %q, %q", tok, rest)
	}
}

func TestIsBlockHeader(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"loop i:5 (", true},
		{"if x > 1 (", true},
		{"if x > 1 (\t", true},
		{"loop i:5", false},
		{"print (", false},
		{")", false},
	}
	for _, tc := range cases {
		if got := isBlockHeader(tc.line); got != tc.want {
			t.Errorf("isBlockHeader(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}
