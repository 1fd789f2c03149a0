package eval

// Lexer tokenizes a single Lingo expression.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	column       int
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	col := l.column
	var tok Token

	switch l.ch {
	case '+':
		tok = l.newToken(PLUS)
	case '-':
		if l.peekChar() == '-' {
			// comment to end of line
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			return l.NextToken()
		}
		tok = l.newToken(MINUS)
	case '*':
		tok = l.newToken(ASTERISK)
	case '/':
		tok = l.newToken(SLASH)
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = Token{Type: AMPAMP, Literal: "&&"}
		} else {
			tok = l.newToken(AMP)
		}
	case '=':
		tok = l.newToken(EQ)
	case '<':
		switch l.peekChar() {
		case '>':
			l.readChar()
			tok = Token{Type: NOT_EQ, Literal: "<>"}
		case '=':
			l.readChar()
			tok = Token{Type: LTE, Literal: "<="}
		default:
			tok = l.newToken(LT)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: GTE, Literal: ">="}
		} else {
			tok = l.newToken(GT)
		}
	case '(':
		tok = l.newToken(LPAREN)
	case ')':
		tok = l.newToken(RPAREN)
	case '[':
		tok = l.newToken(LBRACKET)
	case ']':
		tok = l.newToken(RBRACKET)
	case ',':
		tok = l.newToken(COMMA)
	case ':':
		tok = l.newToken(COLON)
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber(col)
		}
		tok = l.newToken(DOT)
	case '"':
		s, ok := l.readString()
		if !ok {
			return Token{Type: ILLEGAL, Literal: "unterminated string", Column: col}
		}
		tok = Token{Type: STRING, Literal: s}
	case '#':
		l.readChar()
		if !isLetter(l.ch) {
			return Token{Type: ILLEGAL, Literal: "#", Column: col}
		}
		return Token{Type: SYMBOL, Literal: l.readIdentifier(), Column: col}
	case 0:
		return Token{Type: EOF, Column: col}
	default:
		if isLetter(l.ch) {
			lit := l.readIdentifier()
			return Token{Type: LookupIdent(lit), Literal: lit, Column: col}
		}
		if isDigit(l.ch) {
			return l.readNumber(col)
		}
		tok = l.newToken(ILLEGAL)
	}
	tok.Column = col
	l.readChar()
	return tok
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber(col int) Token {
	position := l.position
	isFloat := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) || l.ch == '.' && l.position == position {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '-' || next == '+' {
			isFloat = true
			l.readChar()
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	lit := l.input[position:l.position]
	if isFloat {
		return Token{Type: FLOAT, Literal: lit, Column: col}
	}
	return Token{Type: INT, Literal: lit, Column: col}
}

// readString reads up to the closing quote. Lingo strings have no escapes.
func (l *Lexer) readString() (string, bool) {
	position := l.position + 1
	for {
		l.readChar()
		if l.ch == '"' {
			return l.input[position:l.position], true
		}
		if l.ch == 0 {
			return "", false
		}
	}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\\' {
		l.readChar()
	}
}

func (l *Lexer) newToken(t TokenType) Token {
	return Token{Type: t, Literal: string(l.ch)}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch >= 0x80
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
