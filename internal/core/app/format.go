package app

import (
	"fmt"
	"strconv"
	"strings"

	"calcscript/internal/engine/scanner"
)

// FormatValue renders a number the way the variable table shows it.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatVariables renders one "name = value" line per variable in the order
// given by names.
func FormatVariables(names []string, values map[string]float64) string {
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s = %s\n", name, FormatValue(values[name]))
	}
	return b.String()
}

// FormatTokens renders one token per line.
func FormatTokens(tokens []scanner.Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteString(tok.String())
		b.WriteByte('\n')
	}
	return b.String()
}
