package lang

import (
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
)

// windowState is the position reached inside the current evaluation window.
type windowState int

const (
	AwaitingOperand1 windowState = iota
	AwaitingOperator
	AwaitingOperand2
	ReadyToEvaluate
)

func (s windowState) String() string {
	switch s {
	case AwaitingOperand1:
		return "AwaitingOperand1"
	case AwaitingOperator:
		return "AwaitingOperator"
	case AwaitingOperand2:
		return "AwaitingOperand2"
	case ReadyToEvaluate:
		return "ReadyToEvaluate"
	default:
		return "?"
	}
}

// Parser owns a Worker, classifies the expression it tokenizes and
// evaluates it window by window against a Table.
//
// The first window holds three tokens, [operand operator operand]. A
// filter keeps using three-token windows, one per clause, and folds the
// clause masks together with the logical operator seen between them. A
// calculation switches to two-token windows, [operator operand], each folded
// into the running result from left to right. There is no precedence and
// parentheses only separate statements.
//
// A Parser is not safe for concurrent use.
type Parser struct {
	worker     *Worker
	legacyPlus bool
	logger     *zap.Logger

	history    []Token
	window     []Token
	windowSize int
	state      windowState

	pending    Token // logical operator awaiting its right-hand clause
	hasPending bool

	kind    Kind
	locked  bool
	clauses int

	table  Table
	result *Result
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	s := newSettings(opts)
	p := &Parser{
		legacyPlus: s.legacyPlus,
		logger:     s.logger,
	}
	p.worker = NewWorker(p, opts...)
	p.Reset()
	return p
}

// Reset returns the parser to its initial state: unclassified, empty
// window of size three, no pending logical operator, no table, no result.
func (p *Parser) Reset() {
	p.worker.Reset()
	p.history = nil
	p.window = p.window[:0]
	p.windowSize = 3
	p.state = AwaitingOperand1
	p.pending, p.hasPending = Token{}, false
	p.kind = KindUnclassified
	p.locked = false
	p.clauses = 0
	p.table = nil
	p.result = nil
}

// Bind sets the table that subsequent windows are evaluated against.
func (p *Parser) Bind(tbl Table) { p.table = tbl }

// Kind returns the current classification.
func (p *Parser) Kind() Kind { return p.kind }

// History returns every token seen since the last reset.
func (p *Parser) History() []Token {
	return append([]Token(nil), p.history...)
}

// Run evaluates expr against tbl from a fresh state.
func (p *Parser) Run(expr string, tbl Table) (*Result, error) {
	p.Reset()
	p.Bind(tbl)

	if !utf8.ValidString(expr) {
		return nil, &PosError{Pos: -1, Err: fmt.Errorf("%w: expression is not valid UTF-8", ErrInvalidInput)}
	}
	for _, r := range expr {
		if err := p.worker.processRune(r); err != nil {
			return nil, err
		}
	}
	return p.Finish()
}

// Finish closes the token stream and returns the result. It reports an
// unbalanced quote, an expression that never saw a relation or numeric
// operator, and a window or logical operator left incomplete, in that order.
func (p *Parser) Finish() (*Result, error) {
	if err := p.worker.Close(); err != nil {
		return nil, err
	}
	if p.kind == KindUnclassified {
		return nil, &PosError{Pos: -1, Err: ErrUnclassifiedExpression}
	}
	if n := len(p.window); n > 0 {
		return nil, errAtf(p.window[n-1], ErrIncompleteExpression, "window holds %d of %d tokens", n, p.windowSize)
	}
	if p.hasPending {
		return nil, errAtf(p.pending, ErrIncompleteExpression, "%s has no right-hand clause", p.pending.Op)
	}
	return p.result, nil
}

// AppendToken receives one token from the Worker.
func (p *Parser) AppendToken(tok Token) error {
	if !p.locked && tok.Kind == TokenOperator {
		p.classify(tok)
	}
	p.history = append(p.history, tok)

	switch tok.Kind {
	case TokenEnd:
		return nil
	case TokenLogical:
		return p.setPending(tok)
	}

	if err := p.advance(tok); err != nil {
		return err
	}
	if p.state != ReadyToEvaluate {
		return nil
	}
	return p.evaluate()
}

func (p *Parser) classify(tok Token) {
	switch {
	case tok.Op.IsRelation():
		p.kind = KindFilter
	case tok.Op.IsNumeric():
		p.kind = KindCalc
	default:
		return
	}
	p.locked = true
	p.logger.Debug("expression classified",
		zap.Stringer("kind", p.kind),
		zap.String("operator", tok.Text),
		zap.Int("pos", tok.Pos))
}

func (p *Parser) setPending(tok Token) error {
	switch {
	case p.kind == KindCalc:
		return errAtf(tok, ErrUnexpectedToken, "logical operators do not combine calculations")
	case p.clauses == 0 || len(p.window) > 0:
		return errAtf(tok, ErrUnexpectedToken, "%s must follow a complete clause", tok.Op)
	case p.hasPending:
		return errAtf(tok, ErrUnexpectedToken, "%s follows %s", tok.Op, p.pending.Op)
	}
	p.pending, p.hasPending = tok, true
	return nil
}

// advance moves the window state machine by one token.
func (p *Parser) advance(tok Token) error {
	switch p.state {
	case AwaitingOperand1:
		if !tok.IsOperand() {
			return errAtf(tok, ErrUnexpectedToken, "want an operand")
		}
		if p.kind == KindFilter && p.clauses > 0 && !p.hasPending {
			return errAtf(tok, ErrUnexpectedToken, "want and, or or xor before the next clause")
		}
		p.state = AwaitingOperator

	case AwaitingOperator:
		if tok.Kind != TokenOperator {
			if p.kind == KindUnclassified {
				return errAtf(tok, ErrUnclassifiedExpression, "no operator between operands")
			}
			return errAtf(tok, ErrUnexpectedToken, "want an operator")
		}
		p.state = AwaitingOperand2

	case AwaitingOperand2:
		if !tok.IsOperand() {
			return errAtf(tok, ErrUnexpectedToken, "want an operand")
		}
		p.state = ReadyToEvaluate

	default:
		return errAtf(tok, ErrUnexpectedToken, "window already complete")
	}

	p.window = append(p.window, tok)
	return nil
}

func (p *Parser) evaluate() error {
	window := p.window
	p.logger.Debug("evaluating window",
		zap.Stringer("kind", p.kind),
		zap.Int("clause", p.clauses),
		zap.Stringers("tokens", window))

	var err error
	switch p.kind {
	case KindCalc:
		p.windowSize = 2
		err = p.arithmeticEval(window)
	case KindFilter:
		err = p.filterEval(window)
	default:
		err = errAt(window[0], ErrUnclassifiedExpression)
	}

	p.window = p.window[:0]
	p.clauses++
	if p.windowSize == 2 {
		p.state = AwaitingOperator
	} else {
		p.state = AwaitingOperand1
	}
	return err
}
