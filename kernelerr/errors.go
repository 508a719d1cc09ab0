// Package kernelerr implements the error taxonomy of spec §7. Every
// error names the operation, variant, and failing constraint so a caller
// never has to re-derive context from a bare message string.
package kernelerr

import "fmt"

// Kind identifies which branch of the taxonomy an error belongs to.
type Kind string

const (
	KindConfig        Kind = "config"
	KindCapability    Kind = "capability"
	KindDtypeMismatch Kind = "dtype_mismatch"
	KindShape         Kind = "shape"
	KindDispatchLimit Kind = "dispatch_limit"
	KindCompilation   Kind = "compilation"
	KindOverride      Kind = "override"
	KindDeviceLost    Kind = "device_lost"
)

// Error lets a bare Kind serve as an errors.Is target.
func (k Kind) Error() string { return string(k) }

// Error is the concrete error type returned by every package in this
// module. Operation and Variant are populated whenever the failure is
// attributable to a specific selector call; Constraint names the exact
// invariant that was violated.
type Error struct {
	Kind       Kind
	Operation  string
	Variant    string
	Constraint string
	Wrapped    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Operation != "" {
		msg += " op=" + e.Operation
	}
	if e.Variant != "" {
		msg += " variant=" + e.Variant
	}
	if e.Constraint != "" {
		msg += ": " + e.Constraint
	}
	if e.Wrapped != nil {
		msg += fmt.Sprintf(": %v", e.Wrapped)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is supports errors.Is(err, kernelerr.KindDispatchLimit) style checks
// against the bare Kind value, in addition to *Error target matching.
func (e *Error) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.Kind == k
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, op, variant, constraint string, wrapped error) *Error {
	return &Error{Kind: kind, Operation: op, Variant: variant, Constraint: constraint, Wrapped: wrapped}
}

// Config reports an unknown operation/variant or malformed kernel configuration.
func Config(op, variant, constraint string) *Error {
	return newErr(KindConfig, op, variant, constraint, nil)
}

// Capability reports a missing required feature or an exceeded device limit.
func Capability(op, variant, constraint string) *Error {
	return newErr(KindCapability, op, variant, constraint, nil)
}

// DtypeMismatch reports a variant's implied dtype contract violated by inputs.
func DtypeMismatch(op, variant, constraint string) *Error {
	return newErr(KindDtypeMismatch, op, variant, constraint, nil)
}

// Shape reports invalid dimensions, alignment violations, or divisibility constraints.
func Shape(op, variant, constraint string) *Error {
	return newErr(KindShape, op, variant, constraint, nil)
}

// DispatchLimit reports a workgroup count exceeding the device max on a single dimension.
func DispatchLimit(op, variant, constraint string) *Error {
	return newErr(KindDispatchLimit, op, variant, constraint, nil)
}

// Compilation reports a shader compile failure, with the driver's message preserved verbatim.
func Compilation(op, variant, label string, cause error) *Error {
	return newErr(KindCompilation, op, variant, "shader compilation failed for "+label, cause)
}

// Override reports an explicit override incompatible with inputs or capabilities.
func Override(op, variant, constraint string) *Error {
	return newErr(KindOverride, op, variant, constraint, nil)
}

// DeviceLost reports a device-lost condition surfaced by the GPU layer.
func DeviceLost(cause error) *Error {
	return newErr(KindDeviceLost, "", "", "device lost", cause)
}

// IsFatal reports whether, under the given strict-mode flag, this error
// must abort the call per spec §7's propagation policy. Only OverrideError
// and CapabilityError are ever eligible for non-strict degradation.
func (e *Error) IsFatal(strict bool) bool {
	if strict {
		return true
	}
	switch e.Kind {
	case KindOverride, KindCapability:
		return false
	default:
		return true
	}
}
