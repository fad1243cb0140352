package eval

// Environment maps variable names to their last assigned value. It is owned
// by one script run and is not safe for concurrent use.
type Environment struct {
	values map[string]float64
	order  []string
}

func NewEnvironment() *Environment {
	return &Environment{values: make(map[string]float64)}
}

func (e *Environment) Get(name string) (float64, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Set overwrites any previous value for name.
func (e *Environment) Set(name string, value float64) {
	if _, exists := e.values[name]; !exists {
		e.order = append(e.order, name)
	}
	e.values[name] = value
}

// Reset drops every variable.
func (e *Environment) Reset() {
	e.values = make(map[string]float64)
	e.order = nil
}

func (e *Environment) Len() int {
	return len(e.values)
}

// Names returns variable names in order of first assignment.
func (e *Environment) Names() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Snapshot returns a copy of the current bindings.
func (e *Environment) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}
