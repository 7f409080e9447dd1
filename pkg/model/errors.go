package model

import "fmt"

// InvalidGraphError indicates the graph failed structural validation at build time
type InvalidGraphError struct {
	Detail string
}

func (e *InvalidGraphError) Error() string {
	return fmt.Sprintf("invalid graph: %s", e.Detail)
}

// MissingExposureOutcomeError indicates the exposure/outcome invariant was
// violated on a graph handed to the classifier
type MissingExposureOutcomeError struct {
	Exposure string
	Outcome  string
}

func (e *MissingExposureOutcomeError) Error() string {
	return fmt.Sprintf("graph is missing a valid exposure/outcome pair (exposure=%q, outcome=%q)", e.Exposure, e.Outcome)
}

// GraphTooLargeError indicates an enumeration refused to run because the
// graph or its search space exceeds a configured cap. Partial statistics
// gathered before the refusal are carried alongside.
type GraphTooLargeError struct {
	Operation string
	Size      int
	Limit     int
}

func (e *GraphTooLargeError) Error() string {
	return fmt.Sprintf("%s: search space of %d exceeds configured limit %d", e.Operation, e.Size, e.Limit)
}

// UnknownNodeError indicates a configured node name is absent from the graph
type UnknownNodeError struct {
	Node string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q", e.Node)
}
