package ast

import (
	"strconv"
	"strings"
)

// Node is an expression tree node. The set of variants is closed: only
// *NumberLiteral, *VariableRef and *BinaryOp implement it.
type Node interface {
	node()
}

type NumberLiteral struct {
	Value float64
}

type VariableRef struct {
	Name string
}

type BinaryOp struct {
	Op    Operator
	Left  Node
	Right Node
}

func (*NumberLiteral) node() {}
func (*VariableRef) node()   {}
func (*BinaryOp) node()      {}

// Operator is an arithmetic operator tag.
type Operator byte

const (
	OpAdd Operator = '+'
	OpSub Operator = '-'
	OpMul Operator = '*'
	OpDiv Operator = '/'
)

func (o Operator) String() string {
	return string(rune(o))
}

// ParseOperator maps operator text to its tag.
func ParseOperator(text string) (Operator, bool) {
	if len(text) != 1 {
		return 0, false
	}
	switch op := Operator(text[0]); op {
	case OpAdd, OpSub, OpMul, OpDiv:
		return op, true
	}
	return 0, false
}

// String renders n fully parenthesized, e.g. (10 - (3 - 2)).
func String(n Node) string {
	var b strings.Builder
	write(&b, n)
	return b.String()
}

func write(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *NumberLiteral:
		b.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
	case *VariableRef:
		b.WriteString(n.Name)
	case *BinaryOp:
		b.WriteByte('(')
		write(b, n.Left)
		b.WriteByte(' ')
		b.WriteString(n.Op.String())
		b.WriteByte(' ')
		write(b, n.Right)
		b.WriteByte(')')
	case nil:
		b.WriteString("<nil>")
	}
}

// Depth returns the height of the tree; a leaf has depth 1.
func Depth(n Node) int {
	op, ok := n.(*BinaryOp)
	if !ok {
		if n == nil {
			return 0
		}
		return 1
	}
	return 1 + max(Depth(op.Left), Depth(op.Right))
}
