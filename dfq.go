// Package dfq evaluates filter and arithmetic expressions over tables.
//
//	tbl, _ := frame.Load("sales.csv", nil)
//	res, err := dfq.Eval(`("region" == "emea") and ("price" > "10");`, tbl)
//
// See internal/lang for the expression syntax.
package dfq

import (
	"bufio"
	"os"
	"strings"

	"github.com/gnolang/dfq/internal/frame"
	"github.com/gnolang/dfq/internal/lang"
)

type (
	Result = lang.Result
	Option = lang.Option
	Table  = lang.Table
)

// Eval classifies and evaluates expr against tbl.
func Eval(expr string, tbl Table, opts ...Option) (*Result, error) {
	return lang.New(opts...).Run(expr, tbl)
}

// EvalFile reads the expression stored at exprPath and evaluates it against
// the table file at tablePath.
func EvalFile(exprPath, tablePath string, opts ...Option) (*Result, error) {
	expr, err := ReadExpression(exprPath)
	if err != nil {
		return nil, err
	}
	tbl, err := frame.Load(tablePath, nil)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()
	return Eval(expr, tbl, opts...)
}

// ReadExpression reads an expression file. Lines whose first non-blank
// character is '#' are comments; they are kept as empty lines so that
// positions reported by errors still point at the right line.
func ReadExpression(filename string) (string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	scanner.Buffer(make([]byte, 0, 64*1024), len(content)+1)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			line = ""
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \t\r\n"), nil
}
