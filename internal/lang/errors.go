package lang

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput           = errors.New("tokenizer input must be a single character")
	ErrUnclassifiedExpression = errors.New("expression has no relation or numeric operator")
	ErrUnsupportedOperator    = errors.New("unsupported operator")
	ErrOperandResolution      = errors.New("operand is neither a number nor a numeric column")
	ErrUnbalancedQuote        = errors.New("unbalanced quote")
	ErrUnexpectedToken        = errors.New("unexpected token")
	ErrIncompleteExpression   = errors.New("incomplete expression")
	ErrUnknownColumn          = errors.New("unknown column")
	ErrIncomparable           = errors.New("incomparable operands")
	ErrRowCount               = errors.New("column length does not match the table")
)

// PosError attaches the offending rune offset and token text to one of the
// sentinel errors above. Pos is -1 when no position applies.
type PosError struct {
	Pos   int
	Token string
	Err   error
}

func (e *PosError) Error() string {
	switch {
	case e.Pos < 0:
		return e.Err.Error()
	case e.Token == "":
		return fmt.Sprintf("%v at position %d", e.Err, e.Pos)
	default:
		return fmt.Sprintf("%v %q at position %d", e.Err, e.Token, e.Pos)
	}
}

func (e *PosError) Unwrap() error { return e.Err }

func errAt(tok Token, err error) error {
	return &PosError{Pos: tok.Pos, Token: tok.Text, Err: err}
}

func errAtf(tok Token, sentinel error, format string, args ...any) error {
	return &PosError{
		Pos:   tok.Pos,
		Token: tok.Text,
		Err:   fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)),
	}
}

// Position extracts the rune offset carried by err, if any.
func Position(err error) (int, bool) {
	var pe *PosError
	if errors.As(err, &pe) && pe.Pos >= 0 {
		return pe.Pos, true
	}
	return 0, false
}
