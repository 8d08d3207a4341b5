package runtime

import "fmt"

// VarNameError reports a variable name that cannot be bound.
type VarNameError struct {
	Name string
	Err  error
}

func (e *VarNameError) Error() string {
	return fmt.Sprintf("variable name %q: %v", e.Name, e.Err)
}

func (e *VarNameError) Unwrap() error {
	return e.Err
}
