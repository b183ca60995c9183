package tools

import "fmt"

// ErrToolNotFound is returned by [Dispatcher.Resolve] when no executable
// for the named tool exists in the tools directory, or the name is not a
// valid tool name. It is a capability mismatch, not a transient failure.
type ErrToolNotFound struct {
	ToolName string
}

// Error implements the error interface.
func (e *ErrToolNotFound) Error() string {
	return fmt.Sprintf("tool %s not found", e.ToolName)
}
