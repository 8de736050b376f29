// Package faults defines the error kinds raised by the sensor pipeline.
package faults

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Sensor Kind = iota + 1
	Encoding
	Decoding
	Transport
)

func (k Kind) String() string {
	switch k {
	case Sensor:
		return "sensor"
	case Encoding:
		return "encoding"
	case Decoding:
		return "decoding"
	case Transport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error tags an underlying failure with the stage where it was first observed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s fault: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s fault: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether any error in err's chain is a fault of the given kind.
func IsKind(err error, kind Kind) bool {
	var fault *Error
	if errors.As(err, &fault) {
		return fault.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first fault in err's chain, or 0 if there is none.
func KindOf(err error) Kind {
	var fault *Error
	if errors.As(err, &fault) {
		return fault.Kind
	}
	return 0
}
