package mastering

import "fmt"

// GraphSetupError reports a chain stage that could not be constructed.
type GraphSetupError struct {
	Stage string
	Err   error
}

func (e *GraphSetupError) Error() string {
	return fmt.Sprintf("mastering: setup %s: %v", e.Stage, e.Err)
}

func (e *GraphSetupError) Unwrap() error { return e.Err }
