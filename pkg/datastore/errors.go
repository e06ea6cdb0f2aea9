package datastore

import (
	"errors"
	"fmt"
)

// Code is a machine-readable data store error code.
type Code string

const (
	// CodeUndefined is returned when the payload of an undefined value is accessed.
	CodeUndefined Code = "UNDEFINED"

	// CodeInvalidConversion is returned when a value cannot be converted to the requested type.
	CodeInvalidConversion Code = "INVALID_CONVERSION"

	// CodeNamespaceNotFound is returned when writing to a namespace that was never created.
	CodeNamespaceNotFound Code = "NAMESPACE_NOT_FOUND"

	// CodeReserved is returned when untrusted code mutates a reserved namespace.
	CodeReserved Code = "RESERVED"

	// CodeNotOnRestrictedStore is returned for operations never allowed through the restricted proxy.
	CodeNotOnRestrictedStore Code = "NOT_ON_RESTRICTED_STORE"

	// CodeInvalidArgument is returned for malformed input such as empty names or bad DTOs.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrUndefined            = &Error{Code: CodeUndefined, Message: "value is undefined"}
	ErrInvalidConversion    = &Error{Code: CodeInvalidConversion, Message: "invalid conversion"}
	ErrNamespaceNotFound    = &Error{Code: CodeNamespaceNotFound, Message: "namespace not found"}
	ErrReserved             = &Error{Code: CodeReserved, Message: "namespace is reserved"}
	ErrNotOnRestrictedStore = &Error{Code: CodeNotOnRestrictedStore, Message: "operation not permitted on restricted store"}
	ErrInvalidArgument      = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
)

// Error is the data store error type. Every failure surfaced by the store,
// its values or its proxies is an *Error carrying one of the codes above.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human readable message
	Metadata map[string]string // Property type, namespace, name, data types involved
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func undefinedError(name string) *Error {
	return &Error{
		Code:     CodeUndefined,
		Message:  fmt.Sprintf("value %q is undefined", name),
		Metadata: map[string]string{"name": name},
	}
}

func conversionError(name string, from, to DataType) *Error {
	return &Error{
		Code:    CodeInvalidConversion,
		Message: fmt.Sprintf("cannot convert %q from %s to %s", name, from, to),
		Metadata: map[string]string{
			"name": name,
			"from": from.String(),
			"to":   to.String(),
		},
	}
}

func conversionErrorWithCause(name string, from, to DataType, cause error) *Error {
	e := conversionError(name, from, to)
	e.Cause = cause
	return e
}

func namespaceNotFoundError(propertyType, namespace string) *Error {
	return &Error{
		Code:    CodeNamespaceNotFound,
		Message: fmt.Sprintf("namespace %s/%s not found", propertyType, namespace),
		Metadata: map[string]string{
			"property_type": propertyType,
			"namespace":     namespace,
		},
	}
}

func reservedError(propertyType, namespace string) *Error {
	return &Error{
		Code:    CodeReserved,
		Message: fmt.Sprintf("namespace %s/%s is reserved", propertyType, namespace),
		Metadata: map[string]string{
			"property_type": propertyType,
			"namespace":     namespace,
		},
	}
}

func invalidArgument(format string, a ...any) *Error {
	return &Error{
		Code:    CodeInvalidArgument,
		Message: fmt.Sprintf(format, a...),
	}
}
