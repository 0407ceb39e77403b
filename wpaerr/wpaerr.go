// Package wpaerr defines the error taxonomy shared by every solver in
// this module: ConfigError, InvariantViolated, IOError and Budget, per
// the error handling design of the analysis core.
//
// ConfigError and IOError-on-read are recoverable by the caller; Budget
// cancels the current worklist cleanly at the next outer-loop boundary;
// InvariantViolated is never recoverable and should abort the run.
package wpaerr

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Category classifies an error returned by this module.
type Category int

const (
	// Config marks option combinations rejected before a run starts.
	Config Category = iota
	// Invariant marks an algorithmic precondition that failed to hold,
	// e.g. rename found no MRVer for a use. Never recoverable.
	Invariant
	// IO marks a failure reading or writing a serialized form.
	IO
	// BudgetExceeded marks a fired analysis alarm.
	BudgetExceeded
)

func (c Category) String() string {
	switch c {
	case Config:
		return "config"
	case Invariant:
		return "invariant"
	case IO:
		return "io"
	case BudgetExceeded:
		return "budget"
	default:
		return "unknown"
	}
}

// Error is the concrete error type produced by every package in this
// module. Component names its origin (e.g. "andersen", "memssa") so a
// fatal abort can report exactly where the precondition broke.
type Error struct {
	Category  Category
	Component string
	frame     xerrors.Frame
	msg       string
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Component, e.Category, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Component, e.Category, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

// FormatError implements xerrors.Formatter so %+v prints the capture
// site of an InvariantViolated error, which is otherwise the hardest
// of the four categories to debug post-mortem.
func (e *Error) FormatError(p xerrors.Printer) error {
	p.Print(e.Error())
	e.frame.Format(p)
	return nil
}

func newf(cat Category, component string, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Category:  cat,
		Component: component,
		frame:     xerrors.Caller(1),
		msg:       fmt.Sprintf(format, args...),
		cause:     cause,
	}
}

// NewConfig reports an option combination rejected before analyze().
func NewConfig(component, format string, args ...interface{}) *Error {
	return newf(Config, component, nil, format, args...)
}

// NewInvariant reports a broken algorithmic precondition. Callers
// should treat the returned error as fatal: abort the run rather than
// silently degrade.
func NewInvariant(component, format string, args ...interface{}) *Error {
	return newf(Invariant, component, nil, format, args...)
}

// NewIO wraps a serialization failure. On read, the caller may fall
// through and recompute instead of propagating the error.
func NewIO(component string, cause error, format string, args ...interface{}) *Error {
	return newf(IO, component, cause, format, args...)
}

// NewBudget reports a fired analysis alarm.
func NewBudget(component, format string, args ...interface{}) *Error {
	return newf(BudgetExceeded, component, nil, format, args...)
}

// Is reports whether err (or any error it wraps) belongs to cat.
func Is(err error, cat Category) bool {
	var e *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			e = as
			if e.Category == cat {
				return true
			}
		}
		err = xerrors.Unwrap(err)
	}
	return false
}
