package lang

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gnolang/dfq/internal/frame"
)

// operand is a resolved arithmetic operand: a scalar or one value per row.
type operand struct {
	scalar   float64
	values   []float64
	isScalar bool
}

func (o operand) at(i int) float64 {
	if o.isScalar {
		return o.scalar
	}
	return o.values[i]
}

func (o operand) result() *Result {
	if o.isScalar {
		return &Result{Kind: KindCalc, Scalar: o.scalar, IsScalar: true}
	}
	return &Result{Kind: KindCalc, Values: o.values}
}

// arithmeticEval evaluates [a op b], or [op b] against the running result,
// and replaces the running result with the outcome.
func (p *Parser) arithmeticEval(window []Token) error {
	var (
		a           operand
		opTok, bTok Token
		err         error
	)
	switch len(window) {
	case 3:
		if a, err = p.resolveOperand(window[0]); err != nil {
			return err
		}
		opTok, bTok = window[1], window[2]
	case 2:
		if p.result == nil {
			return errAtf(window[0], ErrIncompleteExpression, "no running result to fold into")
		}
		a = p.running()
		opTok, bTok = window[0], window[1]
	default:
		return errAtf(window[0], ErrIncompleteExpression, "arithmetic window holds %d tokens", len(window))
	}

	fn, ok := p.binary(opTok.Op)
	if !ok {
		return errAtf(opTok, ErrUnsupportedOperator, "%s cannot be used in a calculation", opTok.Op)
	}
	b, err := p.resolveOperand(bTok)
	if err != nil {
		return err
	}

	out, err := apply(fn, a, b)
	if err != nil {
		return errAt(opTok, err)
	}
	p.result = out.result()
	return nil
}

func (p *Parser) running() operand {
	if p.result.IsScalar {
		return operand{scalar: p.result.Scalar, isScalar: true}
	}
	return operand{values: p.result.Values}
}

// resolveOperand reads tok as a number, then as a numeric column.
func (p *Parser) resolveOperand(tok Token) (operand, error) {
	if v, err := strconv.ParseFloat(strings.TrimSpace(tok.Text), 64); err == nil {
		return operand{scalar: v, isScalar: true}, nil
	}
	if p.table == nil {
		return operand{}, errAtf(tok, ErrOperandResolution, "%q is not a number and no table is bound", tok.Text)
	}

	s, err := p.series(tok.Text)
	switch {
	case errors.Is(err, frame.ErrNoColumn):
		return operand{}, errAtf(tok, ErrOperandResolution, "%q is not a number or a column", tok.Text)
	case err != nil:
		return operand{}, &PosError{Pos: tok.Pos, Token: tok.Text, Err: fmt.Errorf("%w: %w", ErrOperandResolution, err)}
	case s.Kind != frame.SeriesFloat:
		return operand{}, errAtf(tok, ErrOperandResolution, "column %q holds %s values", tok.Text, s.Kind)
	}

	values := make([]float64, len(s.Floats))
	for i, v := range s.Floats {
		if s.IsValid(i) {
			values[i] = v
		} else {
			values[i] = math.NaN()
		}
	}
	return operand{values: values}, nil
}

func (p *Parser) binary(op OpKind) (func(a, b float64) float64, bool) {
	switch op {
	case OpAdd:
		if p.legacyPlus {
			return func(a, b float64) float64 { return a * b }, true
		}
		return func(a, b float64) float64 { return a + b }, true
	case OpSub:
		return func(a, b float64) float64 { return a - b }, true
	case OpMul:
		return func(a, b float64) float64 { return a * b }, true
	case OpDiv:
		return func(a, b float64) float64 { return a / b }, true
	default:
		return nil, false
	}
}

// apply combines two operands element-wise, broadcasting scalars.
func apply(fn func(a, b float64) float64, a, b operand) (operand, error) {
	if a.isScalar && b.isScalar {
		return operand{scalar: fn(a.scalar, b.scalar), isScalar: true}, nil
	}

	n := len(a.values)
	switch {
	case a.isScalar:
		n = len(b.values)
	case !b.isScalar && len(b.values) != n:
		return operand{}, fmt.Errorf("%w: %d rows against %d rows", ErrIncomparable, n, len(b.values))
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = fn(a.at(i), b.at(i))
	}
	return operand{values: out}, nil
}
