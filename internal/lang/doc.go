/*
Package lang implements dfq's expression language: a character-stream
tokenizer (Worker) and a windowed state machine (Parser) that classifies an
expression as a filter or a calculation and evaluates it against a Table.

# Syntax

Operands are quoted, operators are bare, statements end with ';':

	("price" > "10") and ("region" == "emea");
	("price" - "1") * "2";

Parentheses are end symbols, not grouping: they separate clauses and carry
no precedence. Quote and end symbols are configurable with WithQuote and
WithEndSymbols.

# Tokens

The Worker produces one Token per completed unit:

  - TokenLiteral: the content of a quoted literal, e.g. "price"
  - TokenOperator: ==, !=, <, >, <=, >=, +, -, *, /
  - TokenLogical: and, or, xor (case-insensitive)
  - TokenIdent: any other bare text
  - TokenEnd: an end symbol

# Classification

The first relation operator makes the expression a filter, the first numeric
operator makes it a calculation. The kind never changes during a Run; Run
always starts from a fresh state.

# Evaluation

Tokens are collected into windows by a four-state machine
(AwaitingOperand1, AwaitingOperator, AwaitingOperand2, ReadyToEvaluate).

A filter evaluates [column operator literal] windows into row masks and
combines consecutive masks with the logical operator between them. A
calculation evaluates its first window as [operand operator operand] and
every later window as [operator operand], folded into the running result
left to right:

	("x" - "1") * "2"   =>   (x - 1) * 2

Arithmetic operands are number literals or numeric columns. '+' adds unless
WithLegacyPlus is set, in which case it multiplies. Older expression files
rely on that.

# Errors

Every failure is one of the Err* sentinels, usually wrapped in a *PosError
that carries the rune offset of the offending token.
*/
package lang
