package strakerr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	BadConfig Kind = iota + 1
	MalformedPolar
	AnalysisFailed
	OutOfRange
	NoZeroCrossing
	InvalidInputFile
	MissingKey
	OptimizerFailed
)

func (k Kind) String() string {
	switch k {
	case BadConfig:
		return "BadConfig"
	case MalformedPolar:
		return "MalformedPolar"
	case AnalysisFailed:
		return "AnalysisFailed"
	case OutOfRange:
		return "OutOfRange"
	case NoZeroCrossing:
		return "NoZeroCrossing"
	case InvalidInputFile:
		return "InvalidInputFile"
	case MissingKey:
		return "MissingKey"
	case OptimizerFailed:
		return "OptimizerFailed"
	default:
		return "Unknown"
	}
}

// Error carries the kind, the index of the airfoil being processed (-1 if
// the error is not bound to an airfoil) and the offending value.
type Error struct {
	Kind    Kind
	Airfoil int
	Value   any
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Airfoil >= 0 {
		s += fmt.Sprintf(" (airfoil %d)", e.Airfoil)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Value != nil {
		s += fmt.Sprintf(" [value: %v]", e.Value)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, value any, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Airfoil: -1,
		Value:   value,
		Msg:     fmt.Sprintf(format, args...),
	}
}

func Wrap(kind Kind, value any, err error, format string, args ...any) *Error {
	e := New(kind, value, format, args...)
	e.Err = err
	return e
}

// WithAirfoil binds err to airfoil index i. Errors that are not an *Error
// are returned unchanged; an index already set is kept.
func WithAirfoil(err error, i int) error {
	var e *Error
	if errors.As(err, &e) && e.Airfoil < 0 {
		e.Airfoil = i
	}
	return err
}

func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
