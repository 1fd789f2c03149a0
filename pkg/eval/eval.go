// Package eval evaluates Lingo expressions typed into the debugger or
// passed to value(). It parses a single expression and evaluates it against
// an Env, which the VM implements on top of its running or suspended state.
package eval

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/zurustar/dirplayer/pkg/datum"
)

// ErrUndefined is returned for a name that is neither a variable nor a
// constant.
var ErrUndefined = errors.New("undefined variable")

// Env resolves the names an expression refers to.
type Env interface {
	Arena() *datum.Arena
	// Variable looks up a local, argument, instance property or global.
	Variable(name string) (datum.Datum, bool)
	// TheProp reads a movie property such as "frame".
	TheProp(name string) (datum.Datum, error)
	// Prop reads obj.name.
	Prop(obj datum.Datum, name string) (datum.Datum, error)
	// Call runs a handler or primitive.
	Call(name string, args []datum.Datum) (datum.Datum, error)
}

// Eval parses and evaluates src.
func Eval(src string, env Env) (datum.Datum, error) {
	e, err := Parse(src)
	if err != nil {
		return datum.Void, err
	}
	return Evaluate(e, env)
}

var constants = map[string]datum.Datum{
	"true":      datum.Int(1),
	"false":     datum.Int(0),
	"void":      datum.Void,
	"empty":     datum.String(""),
	"return":    datum.String("\r"),
	"enter":     datum.String("\x03"),
	"tab":       datum.String("\t"),
	"space":     datum.String(" "),
	"quote":     datum.String("\""),
	"backspace": datum.String("\x08"),
	"pi":        datum.Float(math.Pi),
}

// Evaluate evaluates a parsed expression.
func Evaluate(e Expression, env Env) (datum.Datum, error) {
	arena := env.Arena()
	switch n := e.(type) {
	case *IntegerLiteral:
		return datum.Int(n.Value), nil
	case *FloatLiteral:
		return datum.Float(n.Value), nil
	case *StringLiteral:
		return datum.String(n.Value), nil
	case *SymbolLiteral:
		return datum.Symbol(n.Name), nil
	case *Identifier:
		if v, ok := env.Variable(n.Name); ok {
			return v, nil
		}
		if v, ok := constants[strings.ToLower(n.Name)]; ok {
			return v, nil
		}
		return datum.Void, fmt.Errorf("%w: %s", ErrUndefined, n.Name)
	case *TheExpression:
		return env.TheProp(n.Name)
	case *PrefixExpression:
		v, err := Evaluate(n.Right, env)
		if err != nil {
			return datum.Void, err
		}
		if n.Operator == NOT {
			return datum.Bool(!datum.Truthy(v)), nil
		}
		return arena.Negate(v)
	case *InfixExpression:
		return evalInfix(n, env)
	case *ListLiteral:
		items, err := evalAll(n.Items, env)
		if err != nil {
			return datum.Void, err
		}
		return arena.NewList(items...), nil
	case *PropListLiteral:
		entries := make([]datum.PropEntry, len(n.Keys))
		for i := range n.Keys {
			k, err := evalKey(n.Keys[i], env)
			if err != nil {
				return datum.Void, err
			}
			v, err := Evaluate(n.Values[i], env)
			if err != nil {
				return datum.Void, err
			}
			entries[i] = datum.PropEntry{Key: k, Value: v}
		}
		return arena.NewPropList(entries...), nil
	case *CallExpression:
		args, err := evalAll(n.Args, env)
		if err != nil {
			return datum.Void, err
		}
		return env.Call(n.Name, args)
	case *MethodCall:
		obj, err := Evaluate(n.Object, env)
		if err != nil {
			return datum.Void, err
		}
		args, err := evalAll(n.Args, env)
		if err != nil {
			return datum.Void, err
		}
		return env.Call(n.Name, append([]datum.Datum{obj}, args...))
	case *PropertyAccess:
		obj, err := Evaluate(n.Object, env)
		if err != nil {
			return datum.Void, err
		}
		return env.Prop(obj, n.Name)
	case *IndexExpression:
		obj, err := Evaluate(n.Left, env)
		if err != nil {
			return datum.Void, err
		}
		idx, err := Evaluate(n.Index, env)
		if err != nil {
			return datum.Void, err
		}
		if obj.Kind == datum.KindPropList && !idx.IsNumber() {
			return arena.GetProp(obj, idx)
		}
		i, err := datum.ToInt(idx)
		if err != nil {
			return datum.Void, err
		}
		return arena.GetAt(obj, int(i))
	}
	return datum.Void, fmt.Errorf("cannot evaluate %T", e)
}

// evalKey evaluates a property list key. A bare name is a symbol key, as
// in [a: 1].
func evalKey(e Expression, env Env) (datum.Datum, error) {
	if id, ok := e.(*Identifier); ok {
		if v, ok := env.Variable(id.Name); ok {
			return v, nil
		}
		return datum.Symbol(id.Name), nil
	}
	return Evaluate(e, env)
}

func evalAll(es []Expression, env Env) ([]datum.Datum, error) {
	out := make([]datum.Datum, len(es))
	for i, e := range es {
		v, err := Evaluate(e, env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func evalInfix(n *InfixExpression, env Env) (datum.Datum, error) {
	arena := env.Arena()
	left, err := Evaluate(n.Left, env)
	if err != nil {
		return datum.Void, err
	}
	// and/or short-circuit
	switch n.Operator {
	case AND:
		if !datum.Truthy(left) {
			return datum.Int(0), nil
		}
	case OR:
		if datum.Truthy(left) {
			return datum.Int(1), nil
		}
	}
	right, err := Evaluate(n.Right, env)
	if err != nil {
		return datum.Void, err
	}
	switch n.Operator {
	case AND, OR:
		return datum.Bool(datum.Truthy(right)), nil
	case PLUS:
		return arena.Arith(datum.OpAdd, left, right)
	case MINUS:
		return arena.Arith(datum.OpSub, left, right)
	case ASTERISK:
		return arena.Arith(datum.OpMul, left, right)
	case SLASH:
		return arena.Arith(datum.OpDiv, left, right)
	case MOD:
		return arena.Arith(datum.OpMod, left, right)
	case AMP:
		return arena.Join(left, right, false), nil
	case AMPAMP:
		return arena.Join(left, right, true), nil
	case EQ:
		return datum.Bool(arena.Equal(left, right)), nil
	case NOT_EQ:
		return datum.Bool(!arena.Equal(left, right)), nil
	case CONTAINS:
		return datum.Bool(strings.Contains(strings.ToLower(arena.String(left)), strings.ToLower(arena.String(right)))), nil
	case STARTS:
		return datum.Bool(strings.HasPrefix(strings.ToLower(arena.String(left)), strings.ToLower(arena.String(right)))), nil
	}
	c, err := arena.Compare(left, right)
	if err != nil {
		return datum.Void, err
	}
	switch n.Operator {
	case LT:
		return datum.Bool(c < 0), nil
	case GT:
		return datum.Bool(c > 0), nil
	case LTE:
		return datum.Bool(c <= 0), nil
	case GTE:
		return datum.Bool(c >= 0), nil
	}
	return datum.Void, fmt.Errorf("unknown operator %s", n.Operator)
}
