package scanner_test

import (
	"testing"

	"github.com/mna/panda/lang/scanner"
	"github.com/mna/panda/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	var s scanner.Scanner
	s.Init(src)
	var toks []token.Token
	for {
		tok := s.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, "(){},.-+;*/!!====>>=<<=")
	want := []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.COMMA,
		token.DOT, token.MINUS, token.PLUS, token.SEMICOLON, token.STAR,
		token.SLASH, token.BANG, token.BANG_EQ, token.EQ_EQ, token.EQ, token.GT,
		token.GT_EQ, token.LT, token.LT_EQ, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, k := range want {
		assert.Equalf(t, k, toks[i].Kind, "token %d", i)
	}
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "var x = fun class this super nil true false and or if else for while print return foo_bar")
	kinds := make([]token.Kind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []token.Kind{
		token.VAR, token.IDENT, token.EQ, token.FUN, token.CLASS, token.THIS,
		token.SUPER, token.NIL, token.TRUE, token.FALSE, token.AND, token.OR,
		token.IF, token.ELSE, token.FOR, token.WHILE, token.PRINT,
		token.RETURN, token.IDENT, token.EOF,
	}, kinds)
	assert.Equal(t, "foo_bar", toks[len(toks)-2].Lexeme)
}

func TestScanStringAndNumber(t *testing.T) {
	toks := scanAll(t, `"hello" 1.5 42`)
	require.Len(t, toks, 4)
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, `"hello"`, toks[0].Lexeme)
	assert.Equal(t, token.NUMBER, toks[1].Kind)
	assert.Equal(t, "1.5", toks[1].Lexeme)
	assert.Equal(t, token.NUMBER, toks[2].Kind)
	assert.Equal(t, "42", toks[2].Lexeme)
}

func TestScanTracksLines(t *testing.T) {
	toks := scanAll(t, "1\n2\n\n3")
	require.Len(t, toks, 4)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line)
	assert.Equal(t, 4, toks[2].Line)
}

func TestScanSkipsComments(t *testing.T) {
	toks := scanAll(t, "1 // a comment\n2")
	require.Len(t, toks, 3)
	assert.Equal(t, "1", toks[0].Lexeme)
	assert.Equal(t, "2", toks[1].Lexeme)
}

func TestScanUnterminatedString(t *testing.T) {
	toks := scanAll(t, `"never closed`)
	require.Len(t, toks, 2)
	assert.Equal(t, token.ILLEGAL, toks[0].Kind)
}
