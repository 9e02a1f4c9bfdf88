// Package scanner implements the lexical scanner for Panda source text. It
// is a straightforward character classifier: it knows nothing of grammar or
// precedence, and simply produces a stream of token.Token values for the
// compiler to consume one at a time via Scanner.Next.
//
// The source text passed to Init must outlive all calls to Next, since
// token lexemes are slices into it rather than copies.
package scanner

import (
	"fmt"
	"unicode/utf8"

	"github.com/mna/panda/lang/token"
)

// A Scanner tokenizes Panda source text on demand.
type Scanner struct {
	src   string
	start int // start of the lexeme currently being scanned
	cur   int // offset of the next byte to read
	line  int
}

// Init prepares s to scan src from the beginning. The source must outlive
// the scanner.
func (s *Scanner) Init(src string) {
	s.src = src
	s.start = 0
	s.cur = 0
	s.line = 1
}

// Next scans and returns the next token.Token in the source. Once the
// source is exhausted, every subsequent call returns a token.EOF token.
func (s *Scanner) Next() token.Token {
	s.skipWhitespaceAndComments()
	s.start = s.cur

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()
	switch {
	case isAlpha(c):
		return s.identifier()
	case isDigit(c):
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LPAREN)
	case ')':
		return s.make(token.RPAREN)
	case '{':
		return s.make(token.LBRACE)
	case '}':
		return s.make(token.RBRACE)
	case ',':
		return s.make(token.COMMA)
	case '.':
		return s.make(token.DOT)
	case '-':
		return s.make(token.MINUS)
	case '+':
		return s.make(token.PLUS)
	case ';':
		return s.make(token.SEMICOLON)
	case '*':
		return s.make(token.STAR)
	case '/':
		return s.make(token.SLASH)
	case '!':
		if s.matchByte('=') {
			return s.make(token.BANG_EQ)
		}
		return s.make(token.BANG)
	case '=':
		if s.matchByte('=') {
			return s.make(token.EQ_EQ)
		}
		return s.make(token.EQ)
	case '<':
		if s.matchByte('=') {
			return s.make(token.LT_EQ)
		}
		return s.make(token.LT)
	case '>':
		if s.matchByte('=') {
			return s.make(token.GT_EQ)
		}
		return s.make(token.GT)
	case '"':
		return s.string()
	}

	return s.errorf("unexpected character %q", c)
}

func (s *Scanner) atEnd() bool { return s.cur >= len(s.src) }

// advance consumes and returns the next byte of source. Punctuation is
// ASCII-only; identifiers accept any byte >= utf8.RuneSelf as a letter (see
// isAlpha), and string and comment contents may carry arbitrary UTF-8,
// which simply passes through untouched since lexemes are byte slices.
func (s *Scanner) advance() byte {
	c := s.src[s.cur]
	s.cur++
	return c
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.src[s.cur]
}

func (s *Scanner) peekNext() byte {
	if s.cur+1 >= len(s.src) {
		return 0
	}
	return s.src[s.cur+1]
}

func (s *Scanner) matchByte(want byte) bool {
	if s.atEnd() || s.src[s.cur] != want {
		return false
	}
	s.cur++
	return true
}

func (s *Scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.cur++
		case '\n':
			s.line++
			s.cur++
		case '/':
			if s.peekNext() == '/' {
				for !s.atEnd() && s.peek() != '\n' {
					s.cur++
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) string() token.Token {
	for !s.atEnd() && s.peek() != '"' {
		if s.peek() == '\n' {
			s.line++
		}
		s.cur++
	}
	if s.atEnd() {
		return s.errorf("unterminated string")
	}
	s.cur++ // closing quote
	return s.make(token.STRING)
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.cur++
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.cur++ // consume the '.'
		for isDigit(s.peek()) {
			s.cur++
		}
	}
	return s.make(token.NUMBER)
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.cur++
	}
	lexeme := s.src[s.start:s.cur]
	return token.Token{Kind: token.LookupIdent(lexeme), Lexeme: lexeme, Line: s.line}
}

func (s *Scanner) make(kind token.Kind) token.Token {
	return token.Token{Kind: kind, Lexeme: s.src[s.start:s.cur], Line: s.line}
}

// errorf returns an ILLEGAL token whose lexeme carries the diagnostic
// message, the traditional scanner "error token" trick: the compiler
// handles it exactly like any other token, reporting its lexeme as the
// error text.
func (s *Scanner) errorf(format string, args ...any) token.Token {
	return token.Token{Kind: token.ILLEGAL, Lexeme: fmt.Sprintf(format, args...), Line: s.line}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}
