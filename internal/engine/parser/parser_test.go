package parser

import (
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"calcscript/internal/core/errors"
	"calcscript/internal/engine/ast"
	"calcscript/internal/engine/scanner"
)

func tokens(src string) []scanner.Token {
	return scanner.Tokenize(src, scanner.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func mustParse(t *testing.T, src string) ast.Node {
	t.Helper()
	node, err := New(tokens(src)).Parse()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return node
}

func TestParse_Shapes(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"42", "42"},
		{"x", "x"},
		{"2 + 3", "(2 + 3)"},
		{"2 + 3 * 4", "(2 + (3 * 4))"},
		{"2 * 3 + 4", "((2 * 3) + 4)"},
		{"(2 + 3) * 4", "((2 + 3) * 4)"},
		{"10 - 3 - 2", "(10 - (3 - 2))"},
		{"8 / 4 / 2", "(8 / (4 / 2))"},
		{"a * b - c / d", "((a * b) - (c / d))"},
		{"((1))", "1"},
		{"1.5*(y+2)", "(1.5 * (y + 2))"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			if got := ast.String(mustParse(t, tc.src)); got != tc.want {
				t.Fatalf("parse %q = %s, want %s", tc.src, got, tc.want)
			}
		})
	}
}

func TestParse_NumbersConvertedAtParseTime(t *testing.T) {
	node := mustParse(t, "3.25")
	lit, ok := node.(*ast.NumberLiteral)
	if !ok || lit.Value != 3.25 {
		t.Fatalf("expected number literal 3.25, got %#v", node)
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	cases := []string{
		"1 +",
		"* 2",
		"(1 + 2",
		"1 + 2)",
		"1 2",
		"()",
		"a = 1",
		"1 , 2",
		"si",
		"",
		"1 < 2",
	}
	for _, src := range cases {
		t.Run(src, func(t *testing.T) {
			p := New(tokens(src))
			_, err := p.Parse()
			if err == nil {
				t.Fatalf("expected syntax error for %q", src)
			}
			if !errors.IsCode(err, errors.CodeSyntax) {
				t.Fatalf("expected SYNTAX_ERROR for %q, got %v", src, err)
			}
			if !p.Failed() {
				t.Fatalf("expected fault flag for %q", src)
			}
		})
	}
}

func TestParse_UnknownTokenIsLexicalError(t *testing.T) {
	_, err := New(tokens("2 ^ 3")).Parse()
	if !errors.IsCode(err, errors.CodeLexical) {
		t.Fatalf("expected LEXICAL_ERROR, got %v", err)
	}
	_, err = New(tokens("12. + 1")).Parse()
	if !errors.IsCode(err, errors.CodeLexical) {
		t.Fatalf("expected LEXICAL_ERROR for malformed number, got %v", err)
	}
}

func TestParse_ErrorCarriesLine(t *testing.T) {
	_, err := New(tokens("1 +\n+")).Parse()
	if err == nil {
		t.Fatal("expected error")
	}
	var de *errors.DomainError
	if !stderrors.As(err, &de) {
		t.Fatalf("expected DomainError, got %T", err)
	}
	if de.Context[errors.CtxLine] != 1 {
		t.Fatalf("expected line 1 in context, got %v", de.Context)
	}
}

func TestParse_DepthGuard(t *testing.T) {
	deep := strings.Repeat("(", 100) + "1" + strings.Repeat(")", 100)
	_, err := New(tokens(deep), WithMaxDepth(50)).Parse()
	if err == nil || !strings.Contains(err.Error(), "expression too deeply nested") {
		t.Fatalf("expected nesting error, got %v", err)
	}
	if !errors.IsCode(err, errors.CodeSyntax) {
		t.Fatalf("expected SYNTAX_ERROR, got %v", err)
	}

	if _, err := New(tokens(deep)).Parse(); err != nil {
		t.Fatalf("default depth should allow 100 levels: %v", err)
	}

	huge := strings.Repeat("(", 100000) + "1" + strings.Repeat(")", 100000)
	if _, err := New(tokens(huge)).Parse(); err == nil {
		t.Fatal("expected nesting error for 100000 levels")
	}
}

func TestParse_FlagForm(t *testing.T) {
	if _, ok := Parse(tokens("1 + 2")); !ok {
		t.Fatal("expected ok for valid expression")
	}
	if _, ok := Parse(tokens("1 +")); ok {
		t.Fatal("expected not ok for invalid expression")
	}
}
