package eval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by every parse error.
var ErrSyntax = errors.New("syntax error")

// SyntaxError is a parse error with the column it was found at.
type SyntaxError struct {
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at column %d: %s", e.Column, e.Message)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Precedence levels, lowest first. not and unary minus bind tighter than
// any binary operator.
const (
	_ int = iota
	LOWEST
	LOGICAL // and or
	COMPARE // = <> < > <= >= contains starts
	CONCAT  // & &&
	SUM     // + -
	PRODUCT // * / mod
	PREFIX  // -x not x
	POSTFIX // x.y x[i]
)

var precedences = map[TokenType]int{
	AND:      LOGICAL,
	OR:       LOGICAL,
	EQ:       COMPARE,
	NOT_EQ:   COMPARE,
	LT:       COMPARE,
	GT:       COMPARE,
	LTE:      COMPARE,
	GTE:      COMPARE,
	CONTAINS: COMPARE,
	STARTS:   COMPARE,
	AMP:      CONCAT,
	AMPAMP:   CONCAT,
	PLUS:     SUM,
	MINUS:    SUM,
	ASTERISK: PRODUCT,
	SLASH:    PRODUCT,
	MOD:      PRODUCT,
	DOT:      POSTFIX,
	LBRACKET: POSTFIX,
}

// refKinds may be called without parentheses: sprite 3, member "x".
var refKinds = map[string]bool{
	"member":  true,
	"sprite":  true,
	"castlib": true,
	"script":  true,
	"field":   true,
	"timeout": true,
}

type (
	prefixParseFn func() Expression
	infixParseFn  func(Expression) Expression
)

// Parser is a Pratt parser for Lingo expressions.
type Parser struct {
	l      *Lexer
	errors []*SyntaxError

	curToken  Token
	peekToken Token

	prefixParseFns map[TokenType]prefixParseFn
	infixParseFns  map[TokenType]infixParseFn
}

// NewParser creates a parser reading from l.
func NewParser(l *Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = map[TokenType]prefixParseFn{
		IDENT:    p.parseIdentifier,
		INT:      p.parseIntegerLiteral,
		FLOAT:    p.parseFloatLiteral,
		STRING:   p.parseStringLiteral,
		SYMBOL:   p.parseSymbolLiteral,
		MINUS:    p.parsePrefixExpression,
		NOT:      p.parsePrefixExpression,
		LPAREN:   p.parseGroupedExpression,
		LBRACKET: p.parseListLiteral,
		THE:      p.parseTheExpression,
	}

	p.infixParseFns = make(map[TokenType]infixParseFn)
	for _, t := range []TokenType{AND, OR, EQ, NOT_EQ, LT, GT, LTE, GTE, CONTAINS, STARTS,
		AMP, AMPAMP, PLUS, MINUS, ASTERISK, SLASH, MOD} {
		p.infixParseFns[t] = p.parseInfixExpression
	}
	p.infixParseFns[DOT] = p.parseDotExpression
	p.infixParseFns[LBRACKET] = p.parseIndexExpression

	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses src as one expression.
func Parse(src string) (Expression, error) {
	p := NewParser(NewLexer(src))
	e := p.ParseExpression()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return e, nil
}

// ParseExpression parses a whole expression and expects the end of input.
func (p *Parser) ParseExpression() Expression {
	e := p.parseExpression(LOWEST)
	if len(p.errors) == 0 && !p.peekTokenIs(EOF) {
		p.errorf(p.peekToken, "unexpected %s after expression", describe(p.peekToken))
	}
	return e
}

// Err returns the first parse error, or nil.
func (p *Parser) Err() error {
	if len(p.errors) == 0 {
		return nil
	}
	return p.errors[0]
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf(p.peekToken, "expected %s, got %s", t, describe(p.peekToken))
	return false
}

func (p *Parser) errorf(tok Token, format string, args ...any) {
	p.errors = append(p.errors, &SyntaxError{Column: tok.Column, Message: fmt.Sprintf(format, args...)})
}

func describe(tok Token) string {
	if tok.Type == EOF {
		return "end of input"
	}
	return strconv.Quote(tok.Literal)
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) parseExpression(precedence int) Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorf(p.curToken, "unexpected %s", describe(p.curToken))
		return nil
	}
	left := prefix()
	for left != nil && !p.peekTokenIs(EOF) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() Expression {
	name := p.curToken.Literal
	if p.peekTokenIs(LPAREN) {
		p.nextToken()
		return &CallExpression{Name: name, Args: p.parseExpressionList(RPAREN)}
	}
	if refKinds[strings.ToLower(name)] && p.startsOperand(p.peekToken) {
		p.nextToken()
		arg := p.parseExpression(PREFIX)
		if arg == nil {
			return nil
		}
		args := []Expression{arg}
		if p.peekTokenIs(OF) {
			p.nextToken()
			if !p.expectPeek(IDENT) {
				return nil
			}
			lib := p.parseIdentifier()
			if lib == nil {
				return nil
			}
			args = append(args, lib)
		}
		return &CallExpression{Name: name, Args: args}
	}
	return &Identifier{Name: name}
}

// startsOperand reports whether tok can begin an implicit reference
// argument.
func (p *Parser) startsOperand(tok Token) bool {
	switch tok.Type {
	case INT, FLOAT, STRING, SYMBOL, IDENT:
		return true
	}
	return false
}

func (p *Parser) parseIntegerLiteral() Expression {
	v, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(p.curToken.Literal, 64)
		if ferr != nil {
			p.errorf(p.curToken, "invalid number %q", p.curToken.Literal)
			return nil
		}
		return &FloatLiteral{Value: f}
	}
	return &IntegerLiteral{Value: v}
}

func (p *Parser) parseFloatLiteral() Expression {
	v, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf(p.curToken, "invalid number %q", p.curToken.Literal)
		return nil
	}
	return &FloatLiteral{Value: v}
}

func (p *Parser) parseStringLiteral() Expression {
	return &StringLiteral{Value: p.curToken.Literal}
}

func (p *Parser) parseSymbolLiteral() Expression {
	return &SymbolLiteral{Name: p.curToken.Literal}
}

func (p *Parser) parsePrefixExpression() Expression {
	op := p.curToken.Type
	p.nextToken()
	right := p.parseExpression(PREFIX)
	if right == nil {
		return nil
	}
	return &PrefixExpression{Operator: op, Right: right}
}

func (p *Parser) parseInfixExpression(left Expression) Expression {
	op := p.curToken.Type
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &InfixExpression{Left: left, Operator: op, Right: right}
}

func (p *Parser) parseGroupedExpression() Expression {
	p.nextToken()
	e := p.parseExpression(LOWEST)
	if e == nil || !p.expectPeek(RPAREN) {
		return nil
	}
	return e
}

// parseListLiteral parses [], [a, b], [:] and [k: v, ...].
func (p *Parser) parseListLiteral() Expression {
	if p.peekTokenIs(RBRACKET) {
		p.nextToken()
		return &ListLiteral{}
	}
	if p.peekTokenIs(COLON) {
		p.nextToken()
		if !p.expectPeek(RBRACKET) {
			return nil
		}
		return &PropListLiteral{}
	}
	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	if !p.peekTokenIs(COLON) {
		items := []Expression{first}
		for p.peekTokenIs(COMMA) {
			p.nextToken()
			p.nextToken()
			e := p.parseExpression(LOWEST)
			if e == nil {
				return nil
			}
			items = append(items, e)
		}
		if !p.expectPeek(RBRACKET) {
			return nil
		}
		return &ListLiteral{Items: items}
	}
	pl := &PropListLiteral{}
	key := first
	for {
		if !p.expectPeek(COLON) {
			return nil
		}
		p.nextToken()
		v := p.parseExpression(LOWEST)
		if v == nil {
			return nil
		}
		pl.Keys = append(pl.Keys, key)
		pl.Values = append(pl.Values, v)
		if !p.peekTokenIs(COMMA) {
			break
		}
		p.nextToken()
		p.nextToken()
		if key = p.parseExpression(LOWEST); key == nil {
			return nil
		}
	}
	if !p.expectPeek(RBRACKET) {
		return nil
	}
	return pl
}

// parseTheExpression parses "the name" and "the name of object".
func (p *Parser) parseTheExpression() Expression {
	if !p.expectPeek(IDENT) {
		return nil
	}
	name := p.curToken.Literal
	if p.peekTokenIs(OF) {
		p.nextToken()
		p.nextToken()
		obj := p.parseExpression(PREFIX)
		if obj == nil {
			return nil
		}
		return &PropertyAccess{Object: obj, Name: name}
	}
	return &TheExpression{Name: name}
}

func (p *Parser) parseDotExpression(left Expression) Expression {
	if !p.expectPeek(IDENT) {
		return nil
	}
	name := p.curToken.Literal
	if p.peekTokenIs(LPAREN) {
		p.nextToken()
		return &MethodCall{Object: left, Name: name, Args: p.parseExpressionList(RPAREN)}
	}
	return &PropertyAccess{Object: left, Name: name}
}

func (p *Parser) parseIndexExpression(left Expression) Expression {
	p.nextToken()
	idx := p.parseExpression(LOWEST)
	if idx == nil || !p.expectPeek(RBRACKET) {
		return nil
	}
	return &IndexExpression{Left: left, Index: idx}
}

func (p *Parser) parseExpressionList(end TokenType) []Expression {
	list := []Expression{}
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	if e := p.parseExpression(LOWEST); e != nil {
		list = append(list, e)
	}
	for p.peekTokenIs(COMMA) {
		p.nextToken()
		p.nextToken()
		if e := p.parseExpression(LOWEST); e != nil {
			list = append(list, e)
		}
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}
