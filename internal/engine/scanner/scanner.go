// Package scanner segments source text into lexemes and classifies each one
// through the identifier and number automata plus the fixed word sets.
package scanner

import (
	"log/slog"
	"strings"
	"unicode"

	"calcscript/internal/engine/automaton"
)

// separators end the pending lexeme. Whitespace is handled separately.
const separators = ",()=+-*/^<>|&"

// Scanner is a single-pass pull iterator over a source string. It cannot be
// rewound; scan the same text again with a fresh Scanner.
type Scanner struct {
	src     []rune
	pos     int
	line    int
	lexeme  strings.Builder
	queue   []Token
	last    *Token
	unknown []Token
	logger  *slog.Logger
}

type Option func(*Scanner)

// WithLogger routes lexical-error diagnostics to logger instead of
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(source string, opts ...Option) *Scanner {
	s := &Scanner{
		src:    []rune(source),
		line:   1,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns the next token. Once the source is exhausted every call
// returns an EndOfInput token.
func (s *Scanner) Next() Token {
	for {
		tok, ok := s.pull()
		if !ok {
			return Token{Kind: KindEOF, Text: "EOF", Line: s.line}
		}
		if tok.Is(KindSymbol, LineBreak) && (s.last == nil || s.last.Is(KindSymbol, LineBreak)) {
			continue
		}
		s.last = &tok
		return tok
	}
}

// Diagnostics returns the Unknown tokens produced so far.
func (s *Scanner) Diagnostics() []Token {
	out := make([]Token, len(s.unknown))
	copy(out, s.unknown)
	return out
}

// Line is the current line counter.
func (s *Scanner) Line() int {
	return s.line
}

func (s *Scanner) pull() (Token, bool) {
	for len(s.queue) == 0 {
		if s.pos >= len(s.src) {
			s.flush()
			if len(s.queue) == 0 {
				return Token{}, false
			}
			break
		}
		s.step(s.src[s.pos])
		s.pos++
	}
	tok := s.queue[0]
	s.queue = s.queue[1:]
	return tok, true
}

func (s *Scanner) step(r rune) {
	switch {
	case r == '\n':
		s.flush()
		s.emit(LineBreak)
		s.line++
	case unicode.IsSpace(r):
		s.flush()
	case strings.ContainsRune(separators, r):
		s.flush()
		s.emit(string(r))
	case isLexemeRune(r):
		s.lexeme.WriteRune(r)
	default:
		s.flush()
		s.emit(string(r))
	}
}

func (s *Scanner) flush() {
	if s.lexeme.Len() == 0 {
		return
	}
	s.emit(s.lexeme.String())
	s.lexeme.Reset()
}

func (s *Scanner) emit(lexeme string) {
	tok := Token{Kind: Classify(lexeme), Text: lexeme, Line: s.line}
	if tok.Kind == KindUnknown {
		s.unknown = append(s.unknown, tok)
		s.logger.Warn("lexical error", "token", tok.Text, "line", tok.Line)
	}
	s.queue = append(s.queue, tok)
}

// Classify assigns a kind to a single lexeme. The first matching rule wins:
// reserved word, identifier, number, operator, symbol, otherwise Unknown.
func Classify(lexeme string) Kind {
	switch {
	case IsReservedWord(lexeme):
		return KindReservedWord
	case automaton.Identifier.Matches(lexeme):
		return KindIdentifier
	case automaton.Number.Matches(lexeme):
		return KindNumber
	case IsOperator(lexeme):
		return KindOperator
	case IsSymbol(lexeme):
		return KindSymbol
	default:
		return KindUnknown
	}
}

// isLexemeRune covers ASCII letters, digits, '_' and '.'.
func isLexemeRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '.'
}

// Tokenize drains a fresh Scanner over source. The EndOfInput sentinel is
// not included.
func Tokenize(source string, opts ...Option) []Token {
	s := New(source, opts...)
	var tokens []Token
	for {
		tok := s.Next()
		if tok.Kind == KindEOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}
