package graph

import "fmt"

// StructuralError is implemented by errors that make the input graph
// unusable. Callers map these to the malformed-input exit path.
type StructuralError interface {
	error
	Structural()
}

// DuplicateNodeError reports a node id declared more than once.
type DuplicateNodeError struct {
	ID string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate node id %q", e.ID)
}

func (e *DuplicateNodeError) Structural() {}

// DanglingEdgeError reports an edge referencing an undeclared node id.
type DanglingEdgeError struct {
	From    string
	To      string
	Missing string
}

func (e *DanglingEdgeError) Error() string {
	return fmt.Sprintf("edge %s -> %s references unknown node %q", e.From, e.To, e.Missing)
}

func (e *DanglingEdgeError) Structural() {}

// EntryRegistrationError reports a registered entry-point id that cannot be
// honored.
type EntryRegistrationError struct {
	ID     string
	Reason string
}

func (e *EntryRegistrationError) Error() string {
	return fmt.Sprintf("cannot register entry point %q: %s", e.ID, e.Reason)
}

func (e *EntryRegistrationError) Structural() {}

// OrphanedSinkError reports a sink with no incoming edges in the raw graph.
type OrphanedSinkError struct {
	ID string
}

func (e *OrphanedSinkError) Error() string {
	return fmt.Sprintf("sink %q has no incoming edges", e.ID)
}

func (e *OrphanedSinkError) Structural() {}
