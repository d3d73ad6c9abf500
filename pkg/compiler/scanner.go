package compiler

import (
	"fmt"
	"strings"
	"unicode"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"int":      INT,
	"float":    FLOAT,
	"void":     VOID,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"return":   RETURN,
	"break":    BREAK,
	"continue": CONTINUE,
}

// Scanner turns raw source text into a lazy token stream. Lexical errors are
// accumulated on Errors and never halt scanning: the offending characters are
// skipped and scanning resumes at the next recognizable input.
type Scanner struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line

	Errors *ErrorList
	tokens []Token // every token produced, for the token dump
}

func NewScanner(src string) *Scanner {
	return &Scanner{
		src:    []rune(src),
		line:   1,
		Errors: newErrorList(NoLexicalErrors),
	}
}

// peek returns the rune at the current position without advancing.
func (s *Scanner) peek() rune {
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (s *Scanner) peek2() rune {
	if s.pos+1 >= len(s.src) {
		return 0
	}
	return s.src[s.pos+1]
}

// advance consumes one rune and returns it.
func (s *Scanner) advance() rune {
	if s.pos >= len(s.src) {
		return 0
	}
	r := s.src[s.pos]
	s.pos++
	if r == '\n' {
		s.line++
	}
	return r
}

func (s *Scanner) skipWhitespace() {
	for s.pos < len(s.src) && unicode.IsSpace(s.peek()) {
		s.advance()
	}
}

// scanLineComment consumes "// ..." up to end-of-line and records it for the
// token dump. The opening "//" must still be at s.peek().
func (s *Scanner) scanLineComment() {
	line := s.line
	start := s.pos
	for s.pos < len(s.src) && s.peek() != '\n' {
		s.advance()
	}
	s.record(Token{Type: COMMENT, Lexeme: string(s.src[start:s.pos]), Line: line})
}

// scanBlockComment consumes "/* ... */" including the terminator. An
// unterminated comment is a lexical error attributed to the opening line.
func (s *Scanner) scanBlockComment() {
	line := s.line
	start := s.pos
	s.advance() // /
	s.advance() // *
	for s.pos < len(s.src) {
		if s.peek() == '*' && s.peek2() == '/' {
			s.advance()
			s.advance()
			s.record(Token{Type: COMMENT, Lexeme: string(s.src[start:s.pos]), Line: line})
			return
		}
		s.advance()
	}
	// Trim the echoed lexeme so a runaway comment does not flood the report.
	lexeme := string(s.src[start:s.pos])
	if len(lexeme) > 7 {
		lexeme = lexeme[:7] + "..."
	}
	s.Errors.Add(line, "unclosed comment '%s'", lexeme)
}

// scanIdent collects a full identifier or keyword token.
func (s *Scanner) scanIdent() Token {
	line := s.line
	start := s.pos
	for s.pos < len(s.src) {
		r := s.peek()
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		s.advance()
	}
	lexeme := string(s.src[start:s.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Line: line}
}

// scanNumber collects an integer or float literal. A literal immediately
// followed by a letter (e.g. "3d") or a float with a missing fraction part is
// malformed: the whole munch is reported and skipped.
func (s *Scanner) scanNumber() (Token, bool) {
	line := s.line
	start := s.pos
	for s.pos < len(s.src) && unicode.IsDigit(s.peek()) {
		s.advance()
	}

	isFloat := false
	if s.peek() == '.' && unicode.IsDigit(s.peek2()) {
		isFloat = true
		s.advance() // .
		for s.pos < len(s.src) && unicode.IsDigit(s.peek()) {
			s.advance()
		}
	}

	// Maximal munch: letters or a stray '.' glued to the number make the
	// whole lexeme invalid.
	if r := s.peek(); unicode.IsLetter(r) || r == '_' || r == '.' {
		for s.pos < len(s.src) {
			r := s.peek()
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
				break
			}
			s.advance()
		}
		s.Errors.Add(line, "invalid number '%s'", string(s.src[start:s.pos]))
		return Token{}, false
	}

	tt := NUMBER
	if isFloat {
		tt = REALNUM
	}
	return Token{Type: tt, Lexeme: string(s.src[start:s.pos]), Line: line}, true
}

func (s *Scanner) record(tok Token) {
	s.tokens = append(s.tokens, tok)
}

// NextToken skips whitespace and comments and returns the next significant
// token. At end of input it returns the EOF sentinel (repeatedly, if called
// again). Lexical errors are accumulated and scanning resumes past them.
func (s *Scanner) NextToken() Token {
	for {
		s.skipWhitespace()
		if s.pos >= len(s.src) {
			return Token{Type: EOF, Lexeme: "", Line: s.line}
		}

		ch := s.peek()
		line := s.line

		if ch == '/' && s.peek2() == '/' {
			s.scanLineComment()
			continue
		}
		if ch == '/' && s.peek2() == '*' {
			s.scanBlockComment()
			continue
		}
		if ch == '*' && s.peek2() == '/' {
			s.advance()
			s.advance()
			s.Errors.Add(line, "unmatched comment '*/'")
			continue
		}

		if unicode.IsLetter(ch) || ch == '_' {
			tok := s.scanIdent()
			s.record(tok)
			return tok
		}
		if unicode.IsDigit(ch) {
			tok, ok := s.scanNumber()
			if !ok {
				continue // error recorded, resynchronize
			}
			s.record(tok)
			return tok
		}

		s.advance() // consume the character before the switch
		var tok Token
		switch ch {
		case '{':
			tok = Token{LBRACE, "{", line}
		case '}':
			tok = Token{RBRACE, "}", line}
		case '(':
			tok = Token{LPAREN, "(", line}
		case ')':
			tok = Token{RPAREN, ")", line}
		case '[':
			tok = Token{LBRACKET, "[", line}
		case ']':
			tok = Token{RBRACKET, "]", line}
		case ';':
			tok = Token{SEMICOLON, ";", line}
		case ',':
			tok = Token{COMMA, ",", line}
		case '+':
			tok = Token{PLUS, "+", line}
		case '-':
			tok = Token{MINUS, "-", line}
		case '*':
			tok = Token{STAR, "*", line}
		case '/':
			tok = Token{SLASH, "/", line}
		case '%':
			tok = Token{PERCENT, "%", line}
		case '=':
			if s.peek() == '=' { // lookahead: distinguish = vs ==
				s.advance()
				tok = Token{EQUALS, "==", line}
			} else {
				tok = Token{ASSIGN, "=", line}
			}
		case '!':
			if s.peek() == '=' {
				s.advance()
				tok = Token{NOT_EQ, "!=", line}
			} else {
				tok = Token{NOT, "!", line}
			}
		case '<':
			if s.peek() == '=' {
				s.advance()
				tok = Token{LESS_EQ, "<=", line}
			} else {
				tok = Token{LESS, "<", line}
			}
		case '>':
			if s.peek() == '=' {
				s.advance()
				tok = Token{GREATER_EQ, ">=", line}
			} else {
				tok = Token{GREATER, ">", line}
			}
		case '&':
			if s.peek() == '&' {
				s.advance()
				tok = Token{AND_AND, "&&", line}
			} else {
				s.Errors.Add(line, "invalid input '&'")
				continue
			}
		case '|':
			if s.peek() == '|' {
				s.advance()
				tok = Token{OR_OR, "||", line}
			} else {
				s.Errors.Add(line, "invalid input '|'")
				continue
			}
		default:
			s.Errors.Add(line, "invalid input '%c'", ch)
			continue
		}
		s.record(tok)
		return tok
	}
}

// Tokens returns every significant token and comment produced so far, in
// source order. Populated as a side effect of NextToken.
func (s *Scanner) Tokens() []Token { return s.tokens }

// TokensText renders the token dump, one token per line.
func (s *Scanner) TokensText() string {
	var sb strings.Builder
	for _, tok := range s.tokens {
		fmt.Fprintf(&sb, "%s\n", tok)
	}
	return sb.String()
}
