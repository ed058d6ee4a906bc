package engine

import "fmt"

// ErrorKind classifies backtest failures so callers can map them to a
// transport status without parsing messages.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindData             ErrorKind = "data"
	KindInsufficientData ErrorKind = "insufficient_data"
	KindSimulation       ErrorKind = "simulation"
)

// Error is the terminal failure of one backtest invocation. It is always
// returned, never panicked; the worst outcome of a run is one of these.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func validationErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func dataErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindData, Message: fmt.Sprintf(format, args...)}
}

func insufficientErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInsufficientData, Message: fmt.Sprintf(format, args...)}
}

func simulationErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindSimulation, Message: fmt.Sprintf(format, args...)}
}
