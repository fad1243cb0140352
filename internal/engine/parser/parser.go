// Package parser builds expression trees from scanner tokens with one token
// of lookahead:
//
//	expression -> term Z
//	Z          -> ('+'|'-') expression | ε
//	term       -> factor X
//	X          -> ('*'|'/') term | ε
//	factor     -> '(' expression ')' | Number | Identifier
//
// Z and X recurse into expression and term, so all four operators group to
// the right: 10 - 3 - 2 parses as 10 - (3 - 2).
package parser

import (
	"fmt"
	"strconv"

	"calcscript/internal/core/errors"
	"calcscript/internal/engine/ast"
	"calcscript/internal/engine/scanner"
)

// DefaultMaxDepth bounds the expression/term recursion.
const DefaultMaxDepth = 512

type Parser struct {
	tokens   []scanner.Token
	index    int
	current  scanner.Token
	depth    int
	maxDepth int
	failed   bool
}

type Option func(*Parser)

func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

func New(tokens []scanner.Token, opts ...Option) *Parser {
	p := &Parser{tokens: tokens, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse recognizes a single expression that must consume every token.
func (p *Parser) Parse() (ast.Node, error) {
	p.advance()
	node, err := p.expression()
	if err != nil {
		return node, err
	}
	switch p.current.Kind {
	case scanner.KindEOF:
	case scanner.KindUnknown:
		return node, p.unexpected()
	default:
		return node, p.fail(fmt.Sprintf("unexpected %q after expression", p.current.Text))
	}
	return node, nil
}

// Failed reports whether the syntax-fault flag was raised.
func (p *Parser) Failed() bool {
	return p.failed
}

// Parse is the flag form of (*Parser).Parse: ok is false when the tokens do
// not form a valid expression.
func Parse(tokens []scanner.Token) (ast.Node, bool) {
	node, err := New(tokens).Parse()
	return node, err == nil
}

func (p *Parser) advance() {
	if p.index < len(p.tokens) {
		p.current = p.tokens[p.index]
		p.index++
		return
	}
	line := 1
	if n := len(p.tokens); n > 0 {
		line = p.tokens[n-1].Line
	}
	p.current = scanner.Token{Kind: scanner.KindEOF, Text: "EOF", Line: line}
}

func (p *Parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		p.failed = true
		err := errors.New(errors.CodeSyntax, "expression too deeply nested")
		return errors.AddContext(err, errors.CtxLine, p.current.Line)
	}
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) expression() (ast.Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.term()
	if err != nil {
		return left, err
	}
	return p.z(left)
}

func (p *Parser) z(left ast.Node) (ast.Node, error) {
	switch {
	case p.isOperator(ast.OpAdd, ast.OpSub):
		op, _ := ast.ParseOperator(p.current.Text)
		p.advance()
		right, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOp{Op: op, Left: left, Right: right}, nil
	case p.current.Is(scanner.KindSymbol, ")"), p.current.Kind == scanner.KindEOF:
		return left, nil
	default:
		return nil, p.unexpected()
	}
}

func (p *Parser) term() (ast.Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.factor()
	if err != nil {
		return left, err
	}
	return p.x(left)
}

func (p *Parser) x(left ast.Node) (ast.Node, error) {
	switch {
	case p.isOperator(ast.OpMul, ast.OpDiv):
		op, _ := ast.ParseOperator(p.current.Text)
		p.advance()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOp{Op: op, Left: left, Right: right}, nil
	case p.isOperator(ast.OpAdd, ast.OpSub),
		p.current.Is(scanner.KindSymbol, ")"),
		p.current.Kind == scanner.KindEOF:
		return left, nil
	default:
		return nil, p.unexpected()
	}
}

func (p *Parser) factor() (ast.Node, error) {
	tok := p.current
	switch tok.Kind {
	case scanner.KindSymbol:
		if tok.Text != "(" {
			break
		}
		p.advance()
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		if !p.current.Is(scanner.KindSymbol, ")") {
			return nil, p.fail(fmt.Sprintf("expected \")\" but found %s", describe(p.current)))
		}
		p.advance()
		return inner, nil
	case scanner.KindNumber:
		value, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, p.fail(fmt.Sprintf("invalid number %q", tok.Text))
		}
		p.advance()
		return &ast.NumberLiteral{Value: value}, nil
	case scanner.KindIdentifier:
		p.advance()
		return &ast.VariableRef{Name: tok.Text}, nil
	}
	return nil, p.unexpected()
}

func (p *Parser) isOperator(ops ...ast.Operator) bool {
	if p.current.Kind != scanner.KindOperator {
		return false
	}
	op, ok := ast.ParseOperator(p.current.Text)
	if !ok {
		return false
	}
	for _, candidate := range ops {
		if op == candidate {
			return true
		}
	}
	return false
}

// unexpected reports the current token. An Unknown token surfaces as the
// lexical error it came from.
func (p *Parser) unexpected() error {
	if p.current.Kind == scanner.KindUnknown {
		p.failed = true
		err := errors.Newf(errors.CodeLexical, "unrecognized token %q", p.current.Text)
		err = errors.AddContext(err, errors.CtxToken, p.current.Text)
		return errors.AddContext(err, errors.CtxLine, p.current.Line)
	}
	return p.fail(fmt.Sprintf("unexpected %s", describe(p.current)))
}

func (p *Parser) fail(msg string) error {
	p.failed = true
	err := errors.New(errors.CodeSyntax, msg)
	err = errors.AddContext(err, errors.CtxToken, p.current.Text)
	return errors.AddContext(err, errors.CtxLine, p.current.Line)
}

func describe(tok scanner.Token) string {
	if tok.Kind == scanner.KindEOF {
		return "end of input"
	}
	return fmt.Sprintf("%s %q", tok.Kind, tok.Text)
}
