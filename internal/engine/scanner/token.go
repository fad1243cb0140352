package scanner

import (
	"fmt"
	"sort"
)

// Kind is the lexical category of a token.
type Kind uint8

const (
	KindEOF Kind = iota
	KindReservedWord
	KindIdentifier
	KindNumber
	KindOperator
	KindSymbol
	KindUnknown
)

var kindNames = [...]string{
	KindEOF:          "EndOfInput",
	KindReservedWord: "ReservedWord",
	KindIdentifier:   "Identifier",
	KindNumber:       "Number",
	KindOperator:     "Operator",
	KindSymbol:       "Symbol",
	KindUnknown:      "Unknown",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Token is an immutable classified lexeme.
type Token struct {
	Kind Kind
	Text string
	Line int
}

func (t Token) String() string {
	return fmt.Sprintf("%s, %q, %d", t.Kind, t.Text, t.Line)
}

// Is reports whether t has kind k and text text.
func (t Token) Is(k Kind, text string) bool {
	return t.Kind == k && t.Text == text
}

// LineBreak is the text of the newline symbol token.
const LineBreak = "\n"

var (
	reservedWords = map[string]bool{
		"entero":    true,
		"real":      true,
		"si":        true,
		"sino":      true,
		"mientras":  true,
		"fmientras": true,
		"fsi":       true,
		"imprime":   true,
		"verdadero": true,
		"falso":     true,
	}
	operators = map[string]bool{
		"+": true, "-": true, "*": true, "/": true, "=": true,
		"<": true, ">": true, "|": true, "&": true,
	}
	symbols = map[string]bool{
		LineBreak: true, ",": true, "(": true, ")": true,
	}
)

func IsReservedWord(s string) bool { return reservedWords[s] }
func IsOperator(s string) bool     { return operators[s] }
func IsSymbol(s string) bool       { return symbols[s] }

// ReservedWords returns a sorted copy of the reserved-word set.
func ReservedWords() []string { return sortedKeys(reservedWords) }

// Operators returns a sorted copy of the operator set.
func Operators() []string { return sortedKeys(operators) }

// Symbols returns a sorted copy of the symbol set.
func Symbols() []string { return sortedKeys(symbols) }

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
