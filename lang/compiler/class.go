package compiler

// classFrame tracks the class currently being compiled, chained through
// enclosing so a method of a class declared inside another class's method
// body resolves "super"
// against the right superclass. hasSuperclass gates OP_GET_SUPER and the
// implicit enclosing scope a "< Superclass" clause opens to hold the
// hidden "super" local (spec.md 4.3 "Class compilation").
type classFrame struct {
	enclosing     *classFrame
	hasSuperclass bool
}
