package compiler

import "fmt"

// TokenType identifies the exact lexical class of a token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable / function name
	NUMBER     // decimal integer literal
	REALNUM    // float literal, e.g. 3.14

	// Keywords
	INT      // "int"
	FLOAT    // "float"
	VOID     // "void"
	IF       // "if"
	ELSE     // "else"
	WHILE    // "while"
	FOR      // "for"
	RETURN   // "return"
	BREAK    // "break"
	CONTINUE // "continue"

	// Paired delimiters
	LBRACE   // {
	RBRACE   // }
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,

	// Operators
	PLUS       // +
	MINUS      // -
	STAR       // *
	SLASH      // /
	PERCENT    // %
	ASSIGN     // =
	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	LESS_EQ    // <=
	GREATER    // >
	GREATER_EQ // >=
	AND_AND    // &&
	OR_OR      // ||
	NOT        // !

	COMMENT // // ... or /* ... */, recorded for the token dump only
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:        "EOF",
	IDENTIFIER: "ID",
	NUMBER:     "NUM",
	REALNUM:    "REALNUM",
	INT:        "INT",
	FLOAT:      "FLOAT",
	VOID:       "VOID",
	IF:         "IF",
	ELSE:       "ELSE",
	WHILE:      "WHILE",
	FOR:        "FOR",
	RETURN:     "RETURN",
	BREAK:      "BREAK",
	CONTINUE:   "CONTINUE",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	LBRACKET:   "LBRACKET",
	RBRACKET:   "RBRACKET",
	SEMICOLON:  "SEMICOLON",
	COMMA:      "COMMA",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	STAR:       "STAR",
	SLASH:      "SLASH",
	PERCENT:    "PERCENT",
	ASSIGN:     "ASSIGN",
	EQUALS:     "EQUALS",
	NOT_EQ:     "NOT_EQ",
	LESS:       "LESS",
	LESS_EQ:    "LESS_EQ",
	GREATER:    "GREATER",
	GREATER_EQ: "GREATER_EQ",
	AND_AND:    "AND_AND",
	OR_OR:      "OR_OR",
	NOT:        "NOT",
	COMMENT:    "COMMENT",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Kind returns the coarse token category used by the token dump:
// KEYWORD, ID, NUM, OPERATOR, PUNCT, COMMENT or EOF.
func (tt TokenType) Kind() string {
	switch tt {
	case EOF:
		return "EOF"
	case IDENTIFIER:
		return "ID"
	case NUMBER, REALNUM:
		return "NUM"
	case INT, FLOAT, VOID, IF, ELSE, WHILE, FOR, RETURN, BREAK, CONTINUE:
		return "KEYWORD"
	case LBRACE, RBRACE, LPAREN, RPAREN, LBRACKET, RBRACKET, SEMICOLON, COMMA:
		return "PUNCT"
	case COMMENT:
		return "COMMENT"
	default:
		return "OPERATOR"
	}
}

// Token is a single lexical unit produced by the Scanner.
// Immutable once produced.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
}

func (t Token) String() string {
	return fmt.Sprintf("%-8s %-14q  line %d", t.Type.Kind(), t.Lexeme, t.Line)
}
