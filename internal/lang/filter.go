package lang

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gnolang/dfq/internal/frame"
)

// filterEval evaluates [field operator literal] into a row mask and folds it
// into the running result.
func (p *Parser) filterEval(window []Token) error {
	field, opTok, lit := window[0], window[1], window[2]
	if !opTok.Op.IsRelation() {
		return errAtf(opTok, ErrUnsupportedOperator, "%s cannot be used in a filter", opTok.Op)
	}
	if p.table == nil {
		return errAtf(field, ErrUnknownColumn, "no table bound")
	}

	s, err := p.series(field.Text)
	if err != nil {
		if errors.Is(err, frame.ErrNoColumn) {
			err = fmt.Errorf("%w: %w", ErrUnknownColumn, err)
		}
		return &PosError{Pos: field.Pos, Token: field.Text, Err: err}
	}

	mask, err := compareSeries(s, opTok.Op, lit.Text)
	if err != nil {
		return &PosError{Pos: lit.Pos, Token: lit.Text, Err: err}
	}
	p.combine(mask)
	return nil
}

// series looks up a column of the bound table and checks that it covers
// every row.
func (p *Parser) series(name string) (*frame.Series, error) {
	s, err := p.table.Series(name)
	if err != nil {
		return nil, err
	}
	if rows := p.table.NumRows(); s.Len() != rows {
		return nil, fmt.Errorf("%w: column %q has %d rows, table has %d", ErrRowCount, name, s.Len(), rows)
	}
	return s, nil
}

// combine stores the first clause's mask and merges later ones with the
// pending logical operator.
func (p *Parser) combine(mask []bool) {
	if p.result == nil || !p.hasPending {
		p.result = &Result{Kind: KindFilter, Mask: mask}
		return
	}

	acc := p.result.Mask
	switch p.pending.Op {
	case OpAnd:
		for i := range acc {
			acc[i] = acc[i] && mask[i]
		}
	case OpOr:
		for i := range acc {
			acc[i] = acc[i] || mask[i]
		}
	case OpXor:
		for i := range acc {
			acc[i] = acc[i] != mask[i]
		}
	}
	p.pending, p.hasPending = Token{}, false
}

// compareSeries compares every cell of s with literal. Null cells only
// satisfy !=.
func compareSeries(s *frame.Series, op OpKind, literal string) ([]bool, error) {
	n := s.Len()
	mask := make([]bool, n)

	switch s.Kind {
	case frame.SeriesFloat:
		want, err := strconv.ParseFloat(strings.TrimSpace(literal), 64)
		if err != nil {
			if op != OpEq && op != OpNe {
				return nil, fmt.Errorf("%w: numeric column %q with %q", ErrIncomparable, s.Name, literal)
			}
			// a number never equals text
			fillNe(mask, op)
			break
		}
		for i, v := range s.Floats {
			mask[i] = s.IsValid(i) && compareOrdered(op, v, want)
		}

	case frame.SeriesString:
		for i, v := range s.Strings {
			mask[i] = s.IsValid(i) && compareOrdered(op, v, literal)
		}

	case frame.SeriesBool:
		if op != OpEq && op != OpNe {
			return nil, fmt.Errorf("%w: %s on boolean column %q", ErrIncomparable, op, s.Name)
		}
		want, err := strconv.ParseBool(strings.TrimSpace(literal))
		if err != nil {
			fillNe(mask, op)
			break
		}
		for i, v := range s.Bools {
			mask[i] = s.IsValid(i) && (v == want) == (op == OpEq)
		}
	}

	if op == OpNe {
		for i := range mask {
			if !s.IsValid(i) {
				mask[i] = true
			}
		}
	}
	return mask, nil
}

func fillNe(mask []bool, op OpKind) {
	for i := range mask {
		mask[i] = op == OpNe
	}
}

func compareOrdered[T cmp.Ordered](op OpKind, a, b T) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpGt:
		return a > b
	case OpLe:
		return a <= b
	case OpGe:
		return a >= b
	default:
		return false
	}
}
