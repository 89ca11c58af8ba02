package runtime

import "sort"

// Environment is the single flat variable store for a script run. Every
// variable holds a float64; there is no scoping, so a name assigned inside a
// loop or conditional body stays visible after the block ends.
type Environment struct {
	values map[string]float64
}

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	return &Environment{values: make(map[string]float64)}
}

// Get retrieves a variable's value, reporting whether it exists.
func (e *Environment) Get(name string) (float64, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Set inserts or overwrites a variable.
func (e *Environment) Set(name string, value float64) {
	e.values[name] = value
}

// Contains reports whether a variable has been assigned.
func (e *Environment) Contains(name string) bool {
	_, ok := e.values[name]
	return ok
}

// Len returns the number of assigned variables.
func (e *Environment) Len() int {
	return len(e.values)
}

// Snapshot returns a copy of the current bindings.
func (e *Environment) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Keys returns the variable names in sorted order (useful for determinism in tests).
func (e *Environment) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
