// Package automaton holds the deterministic finite automata used by the
// scanner to decide lexeme membership. Simulation is explicit: each
// automaton is a transition function over ASCII character classes.
package automaton

// State is a node in an automaton's transition graph.
type State int

// ErrorState is returned by a transition function when no edge exists.
const ErrorState State = -1

// Automaton is a DFA. Instances are stateless; Scan can be called
// concurrently.
type Automaton struct {
	Name       string
	Initial    State
	Accepting  map[State]bool
	Transition func(State, rune) State
}

// IsAccepting reports whether s is an accepting state.
func (a *Automaton) IsAccepting(s State) bool {
	return a.Accepting[s]
}

// Scan runs the automaton over lexeme and stops at the first character
// without a transition. It returns the consumed prefix when the state reached
// at that point is accepting, and "" otherwise. An empty result means "not
// in this language", never "matched zero characters".
func (a *Automaton) Scan(lexeme string) string {
	state := a.Initial
	// Transitions are defined over ASCII only, so any byte of a multi-byte
	// rune fails and stepping by byte is safe.
	for i := 0; i < len(lexeme); i++ {
		next := a.Transition(state, rune(lexeme[i]))
		if next == ErrorState {
			return a.prefix(lexeme, state, i)
		}
		state = next
	}
	return a.prefix(lexeme, state, len(lexeme))
}

// Matches reports whether the whole, non-empty lexeme is in the language.
func (a *Automaton) Matches(lexeme string) bool {
	if lexeme == "" {
		return false
	}
	return a.Scan(lexeme) == lexeme
}

func (a *Automaton) prefix(lexeme string, state State, consumed int) string {
	if !a.IsAccepting(state) {
		return ""
	}
	return lexeme[:consumed]
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Identifier recognizes [A-Za-z_][A-Za-z0-9_]*.
var Identifier = &Automaton{
	Name:      "identifier",
	Initial:   0,
	Accepting: map[State]bool{1: true},
	Transition: func(s State, r rune) State {
		switch s {
		case 0:
			if isLetter(r) || r == '_' {
				return 1
			}
		case 1:
			if isLetter(r) || isDigit(r) || r == '_' {
				return 1
			}
		}
		return ErrorState
	},
}

// Number recognizes [0-9]+(\.[0-9]+)?. A trailing dot is rejected.
var Number = &Automaton{
	Name:      "number",
	Initial:   0,
	Accepting: map[State]bool{1: true, 3: true},
	Transition: func(s State, r rune) State {
		switch s {
		case 0:
			if isDigit(r) {
				return 1
			}
		case 1:
			if isDigit(r) {
				return 1
			}
			if r == '.' {
				return 2
			}
		case 2:
			if isDigit(r) {
				return 3
			}
		case 3:
			if isDigit(r) {
				return 3
			}
		}
		return ErrorState
	},
}
