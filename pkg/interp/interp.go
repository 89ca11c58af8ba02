// Package interp executes nan scripts: a line-oriented dispatcher over the
// commands print, set, add, comment, loop, and if. Block bodies are re-run
// as fresh sub-scripts on the same interpreter, so every nesting level sees
// the one shared environment.
package interp

import (
	"fmt"
	"io"
	"math"
	"strings"

	"nanlang/interpreter-go/pkg/eval"
	"nanlang/interpreter-go/pkg/runtime"
)

// Interpreter executes scripts against a single flat environment. Print
// output and statement diagnostics share one stream; no statement-level
// failure ever aborts the enclosing script.
type Interpreter struct {
	env *runtime.Environment
	out io.Writer
}

// New returns an interpreter writing to out.
func New(out io.Writer) *Interpreter {
	return &Interpreter{
		env: runtime.NewEnvironment(),
		out: out,
	}
}

// Environment exposes the interpreter's variable store.
func (i *Interpreter) Environment() *runtime.Environment {
	return i.env
}

// Execute runs a script or sub-script, line by line. Loop and if bodies
// recurse through Execute with the same environment.
func (i *Interpreter) Execute(script string) {
	cursor := newLineCursor(script)
	for {
		line, ok := cursor.next()
		if !ok {
			return
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "comment") {
			continue
		}

		word, rest := splitToken(trimmed)
		switch word {
		case "loop":
			i.runLoop(rest, cursor)
		case "if":
			i.runIf(trimmed, cursor)
		default:
			i.runLine(word, rest)
		}
	}
}

func (i *Interpreter) println(text string) {
	fmt.Fprintln(i.out, text)
}

// runLoop handles `loop var:count (` headers. The count expression is the
// text after the colon within the header token; it is evaluated once, after
// the body has been sliced off, and truncated toward negative infinity.
func (i *Interpreter) runLoop(rest string, cursor *lineCursor) {
	header, rest := splitToken(rest)
	colon := strings.IndexByte(header, ':')
	if colon <= 0 {
		i.println("Syntax error: loop expects var:count")
		return
	}
	name := header[:colon]
	countExpr := header[colon+1:]

	open, _ := splitToken(rest)
	if open != "(" {
		i.println("Syntax error: expected (")
		return
	}

	body := extractBlock(cursor)

	c, err := eval.Evaluate(countExpr, i.env, "Loop count error: ")
	if err != nil {
		i.println(err.Error())
		return
	}
	count := int(math.Floor(c))

	for k := 0; k < count; k++ {
		i.env.Set(name, float64(k))
		i.Execute(body)
	}
}

// runIf handles `if <condition> (` headers. The condition is everything
// between the command word and the final "(" of the line.
func (i *Interpreter) runIf(line string, cursor *lineCursor) {
	t := strings.TrimRight(line, " \t")
	if !strings.HasSuffix(t, "(") {
		i.println("Syntax error: if expects '(' at end of line")
		return
	}
	condition := strings.TrimSpace(t[len("if") : len(t)-1])

	body := extractBlock(cursor)

	v, err := eval.Evaluate(condition, i.env, "If condition error: ")
	if err != nil {
		i.println(err.Error())
		return
	}
	if v != 0.0 {
		i.Execute(body)
	}
}

// runLine dispatches the single-line commands.
func (i *Interpreter) runLine(word, rest string) {
	switch word {
	case "print":
		i.runPrint(rest)
	case "set":
		i.runSet(rest)
	case "add":
		i.runAdd(rest)
	default:
		i.println("Unknown command: " + word)
	}
}

// runPrint prints a quoted literal verbatim, a known variable's value, or an
// expression's value. An expression that fails to evaluate falls back to
// printing the raw text with no diagnostic; that asymmetry is deliberate and
// keeps print permissive.
func (i *Interpreter) runPrint(rest string) {
	rest = strings.TrimSpace(rest)

	if len(rest) >= 2 && rest[0] == '"' && rest[len(rest)-1] == '"' {
		i.println(rest[1 : len(rest)-1])
		return
	}

	if v, ok := i.env.Get(rest); ok {
		i.println(runtime.FormatNumber(v))
		return
	}

	v, err := eval.Evaluate(rest, i.env, "Print expr error: ")
	if err != nil {
		i.println(rest)
		return
	}
	i.println(runtime.FormatNumber(v))
}

// runSet assigns a variable. The "=" between name and expression is
// optional. On any failure the variable is left unmodified.
func (i *Interpreter) runSet(rest string) {
	name, rest := splitToken(rest)
	if name == "" {
		i.println("Syntax error: set needs a variable name")
		return
	}

	token, remainder := splitToken(rest)
	var exprText string
	if token == "=" {
		exprText = strings.TrimSpace(remainder)
	} else {
		exprText = strings.TrimSpace(token + remainder)
	}
	if exprText == "" {
		i.println("Syntax error: set needs an expression")
		return
	}

	v, err := eval.Evaluate(exprText, i.env, "Set expr error: ")
	if err != nil {
		i.println(err.Error())
		return
	}
	i.env.Set(name, v)
}

// runAdd accumulates into an existing variable; the target must already have
// been declared with set (or by a loop header).
func (i *Interpreter) runAdd(rest string) {
	name, rest := splitToken(rest)
	if name == "" {
		i.println("Syntax error: add needs a variable")
		return
	}
	current, ok := i.env.Get(name)
	if !ok {
		i.println(fmt.Sprintf("Error: variable '%s' not found", name))
		return
	}

	exprText := strings.TrimSpace(rest)
	if exprText == "" {
		i.println("Syntax error: add needs a value/expression")
		return
	}

	v, err := eval.Evaluate(exprText, i.env, "Add expr error: ")
	if err != nil {
		i.println(err.Error())
		return
	}
	i.env.Set(name, current+v)
}
