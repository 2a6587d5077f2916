package fbp

import "fmt"

// Code identifies a class of error raised by the runtime. Components and
// callers switch on Code rather than comparing error strings.
type Code int

const (
	// CodeUnknown is never returned by this package; it is the zero value.
	CodeUnknown Code = iota
	// CodePortAlreadyConnected is raised at graph build time when a port
	// that already has a connection is connected again.
	CodePortAlreadyConnected
	// CodeUnknownPort is raised when a graph operation references a port
	// that was never declared by a component.
	CodeUnknownPort
	// CodeDuplicateComponent is raised when two components in the same
	// graph share a name.
	CodeDuplicateComponent
	// CodeUnbalancedClose is raised when a CLOSE control packet arrives
	// with no matching OPEN on top of the bracket stack.
	CodeUnbalancedClose
	// CodeUnbalancedMapClose is raised when a MAP_CLOSE control packet
	// arrives with no matching MAP_OPEN on top of the bracket stack.
	CodeUnbalancedMapClose
	// CodeSwitchOutsideMap is raised when a SWITCH control packet arrives
	// while the top of the bracket stack is not a map.
	CodeSwitchOutsideMap
	// CodeUnclosedBrackets is raised when END_OF_STREAM is observed while
	// a component's bracket stack is non-empty.
	CodeUnclosedBrackets
	// CodeConnectionClosed is returned by Send when the connection has
	// already been closed by its producer or by the scheduler.
	CodeConnectionClosed
	// CodeDeadlock is returned by Executor.Execute when no component can
	// make progress and at least one remains non-terminal.
	CodeDeadlock
	// CodeComponentFailed wraps an uncaught error or panic returned from a
	// component's Run method.
	CodeComponentFailed
)

func (c Code) String() string {
	switch c {
	case CodePortAlreadyConnected:
		return "PORT_ALREADY_CONNECTED"
	case CodeUnknownPort:
		return "UNKNOWN_PORT"
	case CodeDuplicateComponent:
		return "DUPLICATE_COMPONENT_NAME"
	case CodeUnbalancedClose:
		return "UNBALANCED_CLOSE"
	case CodeUnbalancedMapClose:
		return "UNBALANCED_MAP_CLOSE"
	case CodeSwitchOutsideMap:
		return "SWITCH_OUTSIDE_MAP"
	case CodeUnclosedBrackets:
		return "UNCLOSED_BRACKETS"
	case CodeConnectionClosed:
		return "CONNECTION_CLOSED"
	case CodeDeadlock:
		return "DEADLOCK"
	case CodeComponentFailed:
		return "COMPONENT_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Error is the error type returned throughout this package. It carries a
// Code so callers can use errors.As and switch on a stable taxonomy instead
// of matching error strings.
type Error struct {
	Code      Code
	Component string
	Port      string
	cause     error
}

func newError(code Code, component, port string, cause error) *Error {
	return &Error{Code: code, Component: component, Port: port, cause: cause}
}

func (e *Error) Error() string {
	switch {
	case e.Component != "" && e.Port != "":
		return fmt.Sprintf("%s: %s.%s: %v", e.Code, e.Component, e.Port, e.cause)
	case e.Component != "":
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Component, e.cause)
	default:
		return fmt.Sprintf("%s: %v", e.Code, e.cause)
	}
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code, so
// errors.Is(err, &fbp.Error{Code: fbp.CodeDeadlock}) matches any deadlock
// error regardless of component, port, or cause. Code does not implement
// error, so a bare Code cannot be passed to errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
