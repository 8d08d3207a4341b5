package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownHandler is returned when a handler id is not registered.
	ErrUnknownHandler = errors.New("unknown handler")

	// ErrDuplicateHandler is returned when registering an id twice.
	ErrDuplicateHandler = errors.New("handler already registered")

	// ErrRegistryFrozen is returned when registering after startup.
	ErrRegistryFrozen = errors.New("registry is frozen")

	// ErrInitializer marks a failed handler config initializer.
	ErrInitializer = errors.New("handler config initialization failed")

	// ErrUnknownVariable is returned when assigning a name absent from the frame.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrInvalidVarName is returned for names that are not identifiers.
	ErrInvalidVarName = errors.New("invalid variable name")

	// ErrVarNameTaken is returned when a name is already visible.
	ErrVarNameTaken = errors.New("variable name already in use")

	// ErrUnboundVariable is returned by refiners for variables missing from the frame.
	ErrUnboundVariable = errors.New("unbound variable")

	// ErrNotDecomposable is returned by oracles for non-compound types.
	ErrNotDecomposable = errors.New("type is not decomposable")

	// ErrPathNotFound is returned when a node path does not exist.
	ErrPathNotFound = errors.New("node path not found")

	// ErrDocumentNotFound is returned when a document id cannot be found in the store.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrStaleResult is returned when committing a result superseded by a newer request.
	ErrStaleResult = errors.New("stale resolution result")

	// ErrNoCodec is returned when plain-data conversion needs an expression codec.
	ErrNoCodec = errors.New("no expression codec configured")
)

// InitializerError reports a handler initializer failure.
type InitializerError struct {
	HandlerID string
	Err       error
}

func (e *InitializerError) Error() string {
	return fmt.Sprintf("handler %q: config initialization failed: %v", e.HandlerID, e.Err)
}

func (e *InitializerError) Unwrap() error { return e.Err }

func (e *InitializerError) Is(target error) bool { return target == ErrInitializer }

// UnknownVariableError reports an assignment to a variable that is not in the frame.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("cannot assign %q: variable is not defined in this frame", e.Name)
}

func (e *UnknownVariableError) Is(target error) bool { return target == ErrUnknownVariable }
