package parser

import "fmt"

// TopologyParseError means the cluster topology reply could not be understood.
// Callers treat it as "topology unknown", not as a connection failure.
type TopologyParseError struct {
	Line   string
	Reason string
}

func (e *TopologyParseError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("cluster topology: %s", e.Reason)
	}
	return fmt.Sprintf("cluster topology: %s (line %q)", e.Reason, e.Line)
}

// MissingFieldError names a required field absent from a reply
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// InvalidFieldError is a field that is present but cannot be converted
type InvalidFieldError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid value %q for field %q: %v", e.Value, e.Field, e.Err)
}

func (e *InvalidFieldError) Unwrap() error {
	return e.Err
}
