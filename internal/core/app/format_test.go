package app

import (
	"testing"

	"calcscript/internal/engine/scanner"
)

func TestFormatVariables(t *testing.T) {
	got := FormatVariables([]string{"b", "a"}, map[string]float64{"a": 0.5, "b": 1e21})
	want := "b = 1e+21\na = 0.5\n"
	if got != want {
		t.Fatalf("FormatVariables = %q, want %q", got, want)
	}
	if FormatVariables(nil, nil) != "" {
		t.Fatal("expected empty table")
	}
}

func TestFormatTokens(t *testing.T) {
	got := FormatTokens([]scanner.Token{
		{Kind: scanner.KindIdentifier, Text: "x", Line: 1},
		{Kind: scanner.KindSymbol, Text: "\n", Line: 1},
	})
	want := "Identifier, \"x\", 1\nSymbol, \"\\n\", 1\n"
	if got != want {
		t.Fatalf("FormatTokens = %q, want %q", got, want)
	}
}
