package lang

import "go.uber.org/zap"

const (
	DefaultQuote      = '"'
	DefaultEndSymbols = ";()"
)

type settings struct {
	quote      rune
	endSymbols []rune
	legacyPlus bool
	logger     *zap.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		quote:      DefaultQuote,
		endSymbols: []rune(DefaultEndSymbols),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a Worker or a Parser.
type Option func(*settings)

// WithQuote sets the rune that delimits quoted literals.
func WithQuote(r rune) Option {
	return func(s *settings) { s.quote = r }
}

// WithEndSymbols replaces the set of end-of-statement runes.
func WithEndSymbols(rs ...rune) Option {
	return func(s *settings) {
		s.endSymbols = append([]rune(nil), rs...)
	}
}

// WithLegacyPlus makes '+' multiply its operands, as older expression files
// expect. Off by default.
func WithLegacyPlus(enabled bool) Option {
	return func(s *settings) { s.legacyPlus = enabled }
}

// WithLogger sets the logger used for debug tracing. Parsers are silent by default.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}
