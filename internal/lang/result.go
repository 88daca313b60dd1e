package lang

import "github.com/gnolang/dfq/internal/frame"

// Table is the row-aligned data an expression is evaluated against.
// *frame.Frame implements it.
type Table interface {
	NumRows() int
	Series(name string) (*frame.Series, error)
}

// Kind is the classification of an expression.
type Kind int

const (
	KindUnclassified Kind = iota
	KindFilter
	KindCalc
)

func (k Kind) String() string {
	switch k {
	case KindUnclassified:
		return "unclassified"
	case KindFilter:
		return "filter"
	case KindCalc:
		return "calc"
	default:
		return "?"
	}
}

// Result is the output of Parser.Run.
//
// A filter yields Mask, one flag per table row. A calculation yields Values,
// one number per row, unless every operand was a number literal, in which
// case IsScalar is set and Scalar holds the value.
type Result struct {
	Kind     Kind
	Mask     []bool
	Values   []float64
	Scalar   float64
	IsScalar bool
}

// Count returns the number of rows selected by a filter result.
func (r *Result) Count() int {
	n := 0
	for _, ok := range r.Mask {
		if ok {
			n++
		}
	}
	return n
}

// Rows returns the indices of the rows selected by a filter result.
func (r *Result) Rows() []int {
	rows := make([]int, 0, len(r.Mask))
	for i, ok := range r.Mask {
		if ok {
			rows = append(rows, i)
		}
	}
	return rows
}
