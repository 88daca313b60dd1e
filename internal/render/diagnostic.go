package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/gnolang/dfq/internal/lang"
)

const tabWidth = 8

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	ruleStyle    = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
	countStyle   = color.New(color.FgGreen, color.Bold)
)

var categories = []struct {
	err  error
	name string
}{
	{lang.ErrInvalidInput, "invalid-input"},
	{lang.ErrUnclassifiedExpression, "unclassified-expression"},
	{lang.ErrUnsupportedOperator, "unsupported-operator"},
	{lang.ErrOperandResolution, "operand-resolution"},
	{lang.ErrUnbalancedQuote, "unbalanced-quote"},
	{lang.ErrUnexpectedToken, "unexpected-token"},
	{lang.ErrIncompleteExpression, "incomplete-expression"},
	{lang.ErrUnknownColumn, "unknown-column"},
	{lang.ErrIncomparable, "incomparable"},
	{lang.ErrRowCount, "row-count"},
}

// Category names the class of an evaluation error, e.g. "unknown-column".
func Category(err error) string {
	for _, c := range categories {
		if errors.Is(err, c.err) {
			return c.name
		}
	}
	return "error"
}

// Diagnostic formats err against the expression it came from. When err
// carries a position the offending line is printed with a caret under the
// rune at that position.
//
//	error: unknown-column
//	 --> sales.dfq
//	  |
//	1 | ("regoin" == "emea");
//	  |  ^ unknown column: no such column: "regoin"
func Diagnostic(source, expr string, err error) string {
	var b strings.Builder
	b.WriteString(errorStyle.Sprint("error: ") + ruleStyle.Sprint(Category(err)) + "\n")
	if source != "" {
		b.WriteString(lineStyle.Sprint(" --> ") + fileStyle.Sprint(source) + "\n")
	}

	msg := err.Error()
	var pe *lang.PosError
	if errors.As(err, &pe) {
		msg = pe.Err.Error()
	}

	pos, ok := lang.Position(err)
	if !ok {
		b.WriteString(lineStyle.Sprint("  = ") + messageStyle.Sprintf("%s\n\n", msg))
		return b.String()
	}

	lineNo, line, column := locate(expr, pos)
	lineNumberStr := fmt.Sprintf("%d", lineNo)
	padding := strings.Repeat(" ", len(lineNumberStr)-1)
	b.WriteString(lineStyle.Sprintf("  %s|\n", padding))

	expanded := expandTabs(line)
	b.WriteString(lineStyle.Sprintf("%d | ", lineNo))
	b.WriteString(expanded + "\n")

	b.WriteString(lineStyle.Sprintf("  %s| ", padding))
	b.WriteString(strings.Repeat(" ", visualColumn(line, column)))
	b.WriteString(messageStyle.Sprintf("^ %s\n\n", msg))
	return b.String()
}

// locate turns a rune offset into a 1-based line number, the text of that
// line and the 0-based rune column within it.
func locate(expr string, pos int) (lineNo int, line string, column int) {
	lines := strings.Split(expr, "\n")
	offset := 0
	for i, l := range lines {
		n := len([]rune(l))
		if pos <= offset+n || i == len(lines)-1 {
			return i + 1, l, pos - offset
		}
		offset += n + 1
	}
	return 1, expr, pos
}

func expandTabs(line string) string {
	var expanded strings.Builder
	col := 0
	for _, ch := range line {
		if ch == '\t' {
			spaceCount := tabWidth - (col % tabWidth)
			expanded.WriteString(strings.Repeat(" ", spaceCount))
			col += spaceCount
		} else {
			expanded.WriteRune(ch)
			col++
		}
	}
	return expanded.String()
}

func visualColumn(line string, column int) int {
	visual := 0
	i := 0
	for _, ch := range line {
		if i == column {
			break
		}
		if ch == '\t' {
			visual += tabWidth - (visual % tabWidth)
		} else {
			visual++
		}
		i++
	}
	return visual
}
