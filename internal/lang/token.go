package lang

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind defines the kinds of tokens produced by the Worker.
type TokenKind int

const (
	TokenLiteral  TokenKind = iota // "quoted text"
	TokenIdent                     // bare text that is not an operator
	TokenOperator                  // relation or numeric operator
	TokenLogical                   // and, or, xor
	TokenEnd                       // end symbol, e.g. ';' '(' ')'
)

func (k TokenKind) String() string {
	switch k {
	case TokenLiteral:
		return "literal"
	case TokenIdent:
		return "ident"
	case TokenOperator:
		return "operator"
	case TokenLogical:
		return "logical"
	case TokenEnd:
		return "end"
	default:
		return "unknown"
	}
}

// OpKind identifies an operator.
type OpKind int

const (
	OpNone OpKind = iota

	// relation
	OpEq // ==
	OpNe // !=
	OpLt // <
	OpGt // >
	OpLe // <=
	OpGe // >=

	// numeric
	OpAdd // +
	OpSub // -
	OpMul // *
	OpDiv // /

	// logical
	OpAnd // and
	OpOr  // or
	OpXor // xor
)

var opSymbols = map[OpKind]string{
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpGt:  ">",
	OpLe:  "<=",
	OpGe:  ">=",
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpAnd: "and",
	OpOr:  "or",
	OpXor: "xor",
}

// operators maps the bare text of every recognized operator to its kind.
// Logical operators are matched case-insensitively (see lookupOperator).
var operators = func() map[string]OpKind {
	m := make(map[string]OpKind, len(opSymbols))
	for op, sym := range opSymbols {
		m[sym] = op
	}
	return m
}()

func (o OpKind) String() string {
	if s, ok := opSymbols[o]; ok {
		return s
	}
	return "none"
}

// IsRelation reports whether o is one of ==, !=, <, >, <=, >=.
func (o OpKind) IsRelation() bool { return o >= OpEq && o <= OpGe }

// IsNumeric reports whether o is one of +, -, *, /.
func (o OpKind) IsNumeric() bool { return o >= OpAdd && o <= OpDiv }

// IsLogical reports whether o is one of and, or, xor.
func (o OpKind) IsLogical() bool { return o >= OpAnd && o <= OpXor }

// lookupOperator returns the operator spelled by text, if any.
func lookupOperator(text string) (OpKind, bool) {
	if op, ok := operators[text]; ok {
		return op, true
	}
	if op, ok := operators[strings.ToLower(text)]; ok && op.IsLogical() {
		return op, true
	}
	return OpNone, false
}

// Token is a classified unit of the expression stream.
type Token struct {
	Kind TokenKind
	Op   OpKind // set for TokenOperator and TokenLogical
	Text string // literal content, bare text or end symbol
	Pos  int    // rune offset of the first character
}

// bareToken classifies trimmed bare text.
func bareToken(text string, pos int) Token {
	op, ok := lookupOperator(text)
	switch {
	case !ok:
		return Token{Kind: TokenIdent, Text: text, Pos: pos}
	case op.IsLogical():
		return Token{Kind: TokenLogical, Op: op, Text: text, Pos: pos}
	default:
		return Token{Kind: TokenOperator, Op: op, Text: text, Pos: pos}
	}
}

// IsOperand reports whether t may fill an operand slot of a window.
func (t Token) IsOperand() bool {
	return t.Kind == TokenLiteral || t.Kind == TokenIdent
}

func (t Token) String() string {
	switch t.Kind {
	case TokenLiteral:
		return strconv.Quote(t.Text)
	case TokenOperator, TokenLogical:
		return t.Op.String()
	default:
		return t.Text
	}
}

// GoString is used by the tokens subcommand and test failure output.
func (t Token) GoString() string {
	return fmt.Sprintf("%s(%s)@%d", t.Kind, t, t.Pos)
}
