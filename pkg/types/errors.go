package types

import (
	"errors"
	"strings"
)

// ValidationError is one config key that does not fit its schema type.
type ValidationError struct {
	Key    string
	Reason string
	// Value is the offending value, nil for a missing key.
	Value any
}

func (e *ValidationError) Error() string {
	msg := "config key " + e.Key + ": " + e.Reason
	if e.Value != nil {
		msg += " (got " + Infer(e.Value).String() + ")"
	}
	return msg
}

// AggregateError collects the failures of one Validate call, in key order.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns the individual failures behind err, or nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
