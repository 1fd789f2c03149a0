package eval

import "strings"

// TokenType identifies a lexical token of a Lingo expression.
type TokenType string

// Token is a lexical token with its 1-based column.
type Token struct {
	Type    TokenType
	Literal string
	Column  int
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	IDENT  = "IDENT"
	INT    = "INT"
	FLOAT  = "FLOAT"
	STRING = "STRING"
	SYMBOL = "SYMBOL" // #name

	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	AMP      = "&"
	AMPAMP   = "&&"
	EQ       = "="
	NOT_EQ   = "<>"
	LT       = "<"
	GT       = ">"
	LTE      = "<="
	GTE      = ">="
	LPAREN   = "("
	RPAREN   = ")"
	LBRACKET = "["
	RBRACKET = "]"
	COMMA    = ","
	COLON    = ":"
	DOT      = "."

	// Keywords
	AND      = "AND"
	OR       = "OR"
	NOT      = "NOT"
	MOD      = "MOD"
	CONTAINS = "CONTAINS"
	STARTS   = "STARTS"
	THE      = "THE"
	OF       = "OF"
)

var keywords = map[string]TokenType{
	"and":      AND,
	"or":       OR,
	"not":      NOT,
	"mod":      MOD,
	"contains": CONTAINS,
	"starts":   STARTS,
	"the":      THE,
	"of":       OF,
}

// LookupIdent returns the keyword type of ident, ignoring case, or IDENT.
func LookupIdent(ident string) TokenType {
	if t, ok := keywords[strings.ToLower(ident)]; ok {
		return t
	}
	return IDENT
}
