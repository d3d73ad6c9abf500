package compiler

import (
	"reflect"
	"testing"
)

// lexAll drains the scanner including the trailing EOF token.
func lexAll(src string) ([]Token, *Scanner) {
	s := NewScanner(src)
	var toks []Token
	for {
		tok := s.NextToken()
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, s
		}
	}
}

func TestScanner(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
		wantErrs int
	}{
		{
			name:  "Empty",
			input: "",
			expected: []Token{
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Operators",
			input: "+ - * / % = == != < <= > >= && || !",
			expected: []Token{
				{Type: PLUS, Lexeme: "+", Line: 1},
				{Type: MINUS, Lexeme: "-", Line: 1},
				{Type: STAR, Lexeme: "*", Line: 1},
				{Type: SLASH, Lexeme: "/", Line: 1},
				{Type: PERCENT, Lexeme: "%", Line: 1},
				{Type: ASSIGN, Lexeme: "=", Line: 1},
				{Type: EQUALS, Lexeme: "==", Line: 1},
				{Type: NOT_EQ, Lexeme: "!=", Line: 1},
				{Type: LESS, Lexeme: "<", Line: 1},
				{Type: LESS_EQ, Lexeme: "<=", Line: 1},
				{Type: GREATER, Lexeme: ">", Line: 1},
				{Type: GREATER_EQ, Lexeme: ">=", Line: 1},
				{Type: AND_AND, Lexeme: "&&", Line: 1},
				{Type: OR_OR, Lexeme: "||", Line: 1},
				{Type: NOT, Lexeme: "!", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Keywords and identifiers",
			input: "int float void if else while for return break continue x _y9",
			expected: []Token{
				{Type: INT, Lexeme: "int", Line: 1},
				{Type: FLOAT, Lexeme: "float", Line: 1},
				{Type: VOID, Lexeme: "void", Line: 1},
				{Type: IF, Lexeme: "if", Line: 1},
				{Type: ELSE, Lexeme: "else", Line: 1},
				{Type: WHILE, Lexeme: "while", Line: 1},
				{Type: FOR, Lexeme: "for", Line: 1},
				{Type: RETURN, Lexeme: "return", Line: 1},
				{Type: BREAK, Lexeme: "break", Line: 1},
				{Type: CONTINUE, Lexeme: "continue", Line: 1},
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				{Type: IDENTIFIER, Lexeme: "_y9", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Numbers",
			input: "0 42 3.14 0.5",
			expected: []Token{
				{Type: NUMBER, Lexeme: "0", Line: 1},
				{Type: NUMBER, Lexeme: "42", Line: 1},
				{Type: REALNUM, Lexeme: "3.14", Line: 1},
				{Type: REALNUM, Lexeme: "0.5", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Line tracking",
			input: "int x;\nfloat y;",
			expected: []Token{
				{Type: INT, Lexeme: "int", Line: 1},
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: FLOAT, Lexeme: "float", Line: 2},
				{Type: IDENTIFIER, Lexeme: "y", Line: 2},
				{Type: SEMICOLON, Lexeme: ";", Line: 2},
				{Type: EOF, Lexeme: "", Line: 2},
			},
		},
		{
			name:  "Comments are skipped",
			input: "int a; // trailing\n/* block\ncomment */ int b;",
			expected: []Token{
				{Type: INT, Lexeme: "int", Line: 1},
				{Type: IDENTIFIER, Lexeme: "a", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: INT, Lexeme: "int", Line: 3},
				{Type: IDENTIFIER, Lexeme: "b", Line: 3},
				{Type: SEMICOLON, Lexeme: ";", Line: 3},
				{Type: EOF, Lexeme: "", Line: 3},
			},
		},
		{
			name:     "Invalid number resynchronizes",
			input:    "int x = 3d; x = 5;",
			wantErrs: 1,
			expected: []Token{
				{Type: INT, Lexeme: "int", Line: 1},
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				{Type: ASSIGN, Lexeme: "=", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				{Type: ASSIGN, Lexeme: "=", Line: 1},
				{Type: NUMBER, Lexeme: "5", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:     "Invalid characters skipped",
			input:    "x = 5 @ $ ;",
			wantErrs: 2,
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				{Type: ASSIGN, Lexeme: "=", Line: 1},
				{Type: NUMBER, Lexeme: "5", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:     "Lone ampersand",
			input:    "a & b && c",
			wantErrs: 1,
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "a", Line: 1},
				{Type: IDENTIFIER, Lexeme: "b", Line: 1},
				{Type: AND_AND, Lexeme: "&&", Line: 1},
				{Type: IDENTIFIER, Lexeme: "c", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:     "Unmatched close comment",
			input:    "x */ y",
			wantErrs: 1,
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				{Type: IDENTIFIER, Lexeme: "y", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:     "Unclosed block comment",
			input:    "x /* never ends",
			wantErrs: 1,
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, s := lexAll(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("tokens mismatch\ngot:  %v\nwant: %v", got, tt.expected)
			}
			if s.Errors.Count() != tt.wantErrs {
				t.Errorf("error count: got %d, want %d (%v)",
					s.Errors.Count(), tt.wantErrs, s.Errors.Records())
			}
		})
	}
}

func TestScannerTokenDump(t *testing.T) {
	_, s := lexAll("int a; // note\nint b;")

	var comments int
	for _, tok := range s.Tokens() {
		if tok.Type == COMMENT {
			comments++
		}
	}
	if comments != 1 {
		t.Errorf("expected 1 comment token in the dump, got %d", comments)
	}

	dump := s.TokensText()
	if dump == "" {
		t.Fatal("empty token dump")
	}
}

func TestScannerRelexRoundTrip(t *testing.T) {
	// Lexing any produced lexeme in isolation yields the same token back.
	src := `
		int fact(int n) {
			if (n <= 1) { return 1; }
			return n * fact(n - 1);
		}
		float f; f = 3.14;
		output(fact(5) % 7);`
	toks, s := lexAll(src)
	if s.Errors.Count() != 0 {
		t.Fatalf("unexpected lexical errors: %v", s.Errors.Records())
	}
	for _, tok := range toks {
		if tok.Type == EOF {
			continue
		}
		again := NewScanner(tok.Lexeme).NextToken()
		if again.Type != tok.Type || again.Lexeme != tok.Lexeme {
			t.Errorf("relex of %q: got (%s, %q), want (%s, %q)",
				tok.Lexeme, again.Type, again.Lexeme, tok.Type, tok.Lexeme)
		}
	}
}

func TestScannerUnclosedCommentTruncation(t *testing.T) {
	_, s := lexAll("/* this comment runs on and on with no terminator")
	recs := s.Errors.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 lexical error, got %d", len(recs))
	}
	want := "unclosed comment '/* this...'"
	if recs[0].Message != want {
		t.Errorf("message: got %q, want %q", recs[0].Message, want)
	}
}
