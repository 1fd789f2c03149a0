package eval

import (
	"strconv"
	"strings"
)

// Expression is a node of a parsed Lingo expression.
type Expression interface {
	expressionNode()
	String() string
}

type IntegerLiteral struct{ Value int64 }

type FloatLiteral struct{ Value float64 }

type StringLiteral struct{ Value string }

// SymbolLiteral is #name.
type SymbolLiteral struct{ Name string }

// Identifier is a variable or constant name.
type Identifier struct{ Name string }

// PrefixExpression is -x or not x.
type PrefixExpression struct {
	Operator TokenType
	Right    Expression
}

// InfixExpression is a binary operator application.
type InfixExpression struct {
	Left     Expression
	Operator TokenType
	Right    Expression
}

// ListLiteral is [a, b, c].
type ListLiteral struct{ Items []Expression }

// PropListLiteral is [#a: 1, #b: 2] or [:].
type PropListLiteral struct {
	Keys   []Expression
	Values []Expression
}

// CallExpression is name(args).
type CallExpression struct {
	Name string
	Args []Expression
}

// MethodCall is object.name(args), called as name(object, args).
type MethodCall struct {
	Object Expression
	Name   string
	Args   []Expression
}

// PropertyAccess is object.name or the name of object.
type PropertyAccess struct {
	Object Expression
	Name   string
}

// IndexExpression is object[index].
type IndexExpression struct {
	Left  Expression
	Index Expression
}

// TheExpression is a movie property such as the frame.
type TheExpression struct{ Name string }

func (*IntegerLiteral) expressionNode()   {}
func (*FloatLiteral) expressionNode()     {}
func (*StringLiteral) expressionNode()    {}
func (*SymbolLiteral) expressionNode()    {}
func (*Identifier) expressionNode()       {}
func (*PrefixExpression) expressionNode() {}
func (*InfixExpression) expressionNode()  {}
func (*ListLiteral) expressionNode()      {}
func (*PropListLiteral) expressionNode()  {}
func (*CallExpression) expressionNode()   {}
func (*MethodCall) expressionNode()       {}
func (*PropertyAccess) expressionNode()   {}
func (*IndexExpression) expressionNode()  {}
func (*TheExpression) expressionNode()    {}

func (e *IntegerLiteral) String() string { return strconv.FormatInt(e.Value, 10) }
func (e *FloatLiteral) String() string   { return strconv.FormatFloat(e.Value, 'f', -1, 64) }
func (e *StringLiteral) String() string  { return strconv.Quote(e.Value) }
func (e *SymbolLiteral) String() string  { return "#" + e.Name }
func (e *Identifier) String() string     { return e.Name }
func (e *TheExpression) String() string  { return "the " + e.Name }

func (e *PrefixExpression) String() string {
	op := string(e.Operator)
	if e.Operator == NOT {
		op = "not "
	}
	return "(" + op + e.Right.String() + ")"
}

func (e *InfixExpression) String() string {
	op := string(e.Operator)
	switch e.Operator {
	case AND, OR, MOD, CONTAINS, STARTS:
		op = strings.ToLower(op)
	}
	return "(" + e.Left.String() + " " + op + " " + e.Right.String() + ")"
}

func joinExprs(es []Expression) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func (e *ListLiteral) String() string { return "[" + joinExprs(e.Items) + "]" }

func (e *PropListLiteral) String() string {
	if len(e.Keys) == 0 {
		return "[:]"
	}
	parts := make([]string, len(e.Keys))
	for i := range e.Keys {
		parts[i] = e.Keys[i].String() + ": " + e.Values[i].String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (e *CallExpression) String() string { return e.Name + "(" + joinExprs(e.Args) + ")" }

func (e *MethodCall) String() string {
	return e.Object.String() + "." + e.Name + "(" + joinExprs(e.Args) + ")"
}

func (e *PropertyAccess) String() string { return e.Object.String() + "." + e.Name }

func (e *IndexExpression) String() string {
	return e.Left.String() + "[" + e.Index.String() + "]"
}
