package lang

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenSink receives the tokens completed by a Worker.
type TokenSink interface {
	AppendToken(tok Token) error
}

// Worker is a character accumulator that turns a stream of runes into
// tokens. It knows one quote rune and a set of end symbols; everything else
// is buffered until a quote or end symbol completes the current token.
//
// Tokens are forwarded to the sink as soon as they are complete:
//   - an end symbol flushes the buffer, then is emitted itself
//   - a closing quote emits the literal's content
//   - an opening quote first flushes bare text accumulated before it,
//     which is how operators between quoted operands are separated
//
// Whitespace-only buffers are never forwarded.
type Worker struct {
	sink       TokenSink
	symbol     rune
	endSymbols map[rune]struct{}

	loading  bool            // inside a quoted literal
	buffer   strings.Builder // text of the token under construction
	start    int             // offset of the first non-space buffered rune, -1 if none
	quotePos int             // offset of the quote that opened the literal
	split    bool            // an end symbol cut the open literal
	pos      int             // offset of the next rune
}

// NewWorker creates a Worker that forwards tokens to sink.
// Only the quote and end symbol options are used.
func NewWorker(sink TokenSink, opts ...Option) *Worker {
	s := newSettings(opts)
	w := &Worker{
		sink:       sink,
		symbol:     s.quote,
		endSymbols: make(map[rune]struct{}, len(s.endSymbols)),
	}
	for _, r := range s.endSymbols {
		w.endSymbols[r] = struct{}{}
	}
	w.Reset()
	return w
}

// Reset discards any partial token and rewinds the position counter.
func (w *Worker) Reset() {
	w.loading = false
	w.buffer.Reset()
	w.start = -1
	w.quotePos = -1
	w.split = false
	w.pos = 0
}

// Loading reports whether the worker is inside a quoted literal.
func (w *Worker) Loading() bool { return w.loading }

// IsEndSymbol reports whether text is exactly one of the worker's end symbols.
func (w *Worker) IsEndSymbol(text string) bool {
	r, size := utf8.DecodeRuneInString(text)
	if size == 0 || size != len(text) {
		return false
	}
	_, ok := w.endSymbols[r]
	return ok
}

// Process feeds a single character to the worker.
func (w *Worker) Process(ch string) error {
	r, size := utf8.DecodeRuneInString(ch)
	if size != len(ch) || (r == utf8.RuneError && size <= 1) {
		return &PosError{Pos: w.pos, Token: ch, Err: ErrInvalidInput}
	}
	return w.processRune(r)
}

func (w *Worker) processRune(r rune) error {
	pos := w.pos
	w.pos++

	if _, ok := w.endSymbols[r]; ok {
		if err := w.flush(); err != nil {
			return err
		}
		w.split = w.loading
		return w.sink.AppendToken(Token{Kind: TokenEnd, Text: string(r), Pos: pos})
	}

	if r == w.symbol {
		if w.loading {
			err := w.flush()
			w.loading, w.split = false, false
			return err
		}
		// bare text before the quote is a token of its own
		if err := w.flush(); err != nil {
			return err
		}
		w.loading = true
		w.quotePos = pos
		return nil
	}

	if w.start < 0 && !unicode.IsSpace(r) {
		w.start = pos
	}
	w.buffer.WriteRune(r)
	return nil
}

// Close marks the end of the stream. A literal that is still open is
// reported as ErrUnbalancedQuote; trailing bare text is flushed.
func (w *Worker) Close() error {
	if w.loading {
		return &PosError{Pos: w.quotePos, Token: string(w.symbol), Err: ErrUnbalancedQuote}
	}
	return w.flush()
}

// flush forwards the trimmed buffer, if it holds anything, and clears it.
func (w *Worker) flush() error {
	text := strings.TrimSpace(w.buffer.String())
	start := w.start
	w.buffer.Reset()
	w.start = -1
	if text == "" {
		return nil
	}

	var tok Token
	if w.loading {
		pos := w.quotePos
		if w.split {
			// the fragment after an end symbol starts at its own text
			pos = start
		}
		tok = Token{Kind: TokenLiteral, Text: text, Pos: pos}
	} else {
		tok = bareToken(text, start)
	}
	return w.sink.AppendToken(tok)
}
