package eval

import (
	"math"
	"reflect"
	"testing"

	"calcscript/internal/core/errors"
	"calcscript/internal/engine/ast"
)

func num(v float64) ast.Node { return &ast.NumberLiteral{Value: v} }
func ref(name string) ast.Node { return &ast.VariableRef{Name: name} }
func bin(op ast.Operator, l, r ast.Node) ast.Node {
	return &ast.BinaryOp{Op: op, Left: l, Right: r}
}

func TestEvaluate_Arithmetic(t *testing.T) {
	env := NewEnvironment()
	env.Set("x", 4)

	cases := []struct {
		name string
		node ast.Node
		want float64
	}{
		{"literal", num(2.5), 2.5},
		{"variable", ref("x"), 4},
		{"add", bin(ast.OpAdd, num(2), num(3)), 5},
		{"sub", bin(ast.OpSub, num(2), num(3)), -1},
		{"mul", bin(ast.OpMul, ref("x"), num(3)), 12},
		{"div", bin(ast.OpDiv, num(7), num(2)), 3.5},
		{"right grouped sub", bin(ast.OpSub, num(10), bin(ast.OpSub, num(3), num(2))), 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Evaluate(tc.node, env)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	env := NewEnvironment()

	_, err := Evaluate(ref("missing"), env)
	if !errors.IsCode(err, errors.CodeUndefinedVariable) {
		t.Fatalf("expected UNDEFINED_VARIABLE, got %v", err)
	}

	_, err = Evaluate(bin(ast.OpDiv, num(1), num(0)), env)
	if !errors.IsCode(err, errors.CodeDivisionByZero) {
		t.Fatalf("expected DIVISION_BY_ZERO, got %v", err)
	}

	_, err = Evaluate(bin(ast.OpDiv, num(1), num(math.Copysign(0, -1))), env)
	if !errors.IsCode(err, errors.CodeDivisionByZero) {
		t.Fatalf("expected DIVISION_BY_ZERO for negative zero, got %v", err)
	}

	_, err = Evaluate(bin(ast.Operator('^'), num(1), num(2)), env)
	if !errors.IsCode(err, errors.CodeUnknownOperator) {
		t.Fatalf("expected UNKNOWN_OPERATOR, got %v", err)
	}

	if _, err := Evaluate(nil, env); err == nil {
		t.Fatal("expected error for nil node")
	}
}

func TestEvaluate_LeftOperandFailsFirst(t *testing.T) {
	env := NewEnvironment()
	_, err := Evaluate(bin(ast.OpAdd, ref("a"), ref("b")), env)
	if err == nil || err.Error() != "[UNDEFINED_VARIABLE] variable a is not defined {variable=a}" {
		t.Fatalf("expected left operand error first, got %v", err)
	}
}

func TestEvaluate_BothSidesEvaluated(t *testing.T) {
	// 0 * undefined still fails: no short circuit.
	_, err := Evaluate(bin(ast.OpMul, num(0), ref("y")), NewEnvironment())
	if !errors.IsCode(err, errors.CodeUndefinedVariable) {
		t.Fatalf("expected right operand to be evaluated, got %v", err)
	}
}

func TestEnvironment(t *testing.T) {
	env := NewEnvironment()
	env.Set("b", 1)
	env.Set("a", 2)
	env.Set("b", 3)

	if v, ok := env.Get("b"); !ok || v != 3 {
		t.Fatalf("expected last assignment to win, got %v %v", v, ok)
	}
	if !reflect.DeepEqual(env.Names(), []string{"b", "a"}) {
		t.Fatalf("unexpected order %v", env.Names())
	}
	snap := env.Snapshot()
	snap["a"] = 100
	if v, _ := env.Get("a"); v != 2 {
		t.Fatal("snapshot must be a copy")
	}

	env.Reset()
	if env.Len() != 0 || len(env.Names()) != 0 {
		t.Fatal("expected reset environment to be empty")
	}
	if _, ok := env.Get("a"); ok {
		t.Fatal("expected a to be gone after reset")
	}
}
