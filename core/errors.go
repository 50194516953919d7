package core

import (
	"errors"
	"fmt"
)

var (
	ErrResultReleased     = errors.New("result already released")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrNullValue          = errors.New("value is null")
	ErrUnsupportedType    = errors.New("unsupported type")
	ErrStatementSubmitted = errors.New("statement already submitted")
	ErrClientClosed       = errors.New("client closed")
	ErrPreparedReleased   = errors.New("prepared statement released")
	ErrTimeout            = errors.New("execution timed out")
	ErrNoSuchColumn       = errors.New("no such column")
)

// TypeMismatchError is returned when an accessor does not match the type tag
// of a value.
type TypeMismatchError struct {
	Requested []DataType
	Actual    DataType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: value is %s, accessor reads %v", e.Actual, e.Requested)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// UnsupportedTypeError is returned when a value of a type outside of the
// decode scope is decoded. The raw bytes stay available through Value.GetRaw.
type UnsupportedTypeError struct {
	Type   DataType
	Custom string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Custom != "" {
		return fmt.Sprintf("unsupported type: %s (%s)", e.Type, e.Custom)
	}
	return fmt.Sprintf("unsupported type: %s", e.Type)
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}
