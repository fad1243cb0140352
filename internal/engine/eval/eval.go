// Package eval walks expression trees against an Environment.
package eval

import (
	"calcscript/internal/core/errors"
	"calcscript/internal/engine/ast"
)

// Evaluate computes node's value. Both operands of a binary node are always
// evaluated, left first.
func Evaluate(node ast.Node, env *Environment) (float64, error) {
	switch n := node.(type) {
	case *ast.NumberLiteral:
		return n.Value, nil
	case *ast.VariableRef:
		v, ok := env.Get(n.Name)
		if !ok {
			return 0, UndefinedVariable(n.Name)
		}
		return v, nil
	case *ast.BinaryOp:
		left, err := Evaluate(n.Left, env)
		if err != nil {
			return 0, err
		}
		right, err := Evaluate(n.Right, env)
		if err != nil {
			return 0, err
		}
		return apply(n.Op, left, right)
	case nil:
		return 0, errors.New(errors.CodeInternal, "nil expression")
	default:
		return 0, errors.Newf(errors.CodeInternal, "unsupported node %T", node)
	}
}

func apply(op ast.Operator, left, right float64) (float64, error) {
	switch op {
	case ast.OpAdd:
		return left + right, nil
	case ast.OpSub:
		return left - right, nil
	case ast.OpMul:
		return left * right, nil
	case ast.OpDiv:
		// -0 compares equal to 0.
		if right == 0 {
			return 0, DivisionByZero()
		}
		return left / right, nil
	default:
		return 0, UnknownOperator(op)
	}
}

func UndefinedVariable(name string) error {
	err := errors.Newf(errors.CodeUndefinedVariable, "variable %s is not defined", name)
	return errors.AddContext(err, errors.CtxVariable, name)
}

func DivisionByZero() error {
	return errors.New(errors.CodeDivisionByZero, "division by zero")
}

func UnknownOperator(op ast.Operator) error {
	return errors.Newf(errors.CodeUnknownOperator, "unknown operator %q", op.String())
}
