// Package errs implements the error taxonomy of spec section 7: every
// error the CLI surfaces is classified so main can pick the right exit
// code, rather than the exit code being decided ad hoc at each call site.
package errs

import "fmt"

// Code is the process exit status spec section 7 assigns to a class of
// error.
type Code int

const (
	// OK is a successful run.
	OK Code = 0
	// UserErrorCode covers bad arguments, an unknown profile, a
	// malformed launcher command, or any other mistake the user can fix
	// without touching their environment.
	UserErrorCode Code = 1
	// EnvironmentErrorCode covers a missing backend binary, a
	// ptrace-unavailable host, or another host/environment precondition
	// the user cannot fix by changing their command line.
	EnvironmentErrorCode Code = 2
)

// UserError is a mistake in arguments, profile state, or command syntax
// (spec section 7): exit code 1.
type UserError struct {
	Reason string
	// Hint, if set, is a one-line remediation suggestion printed after
	// the error itself.
	Hint string
}

func (e *UserError) Error() string { return e.Reason }

// NewUserError builds a UserError, formatting Reason like fmt.Sprintf.
func NewUserError(hint string, format string, args ...any) *UserError {
	return &UserError{Reason: fmt.Sprintf(format, args...), Hint: hint}
}

// ConfigError is a malformed configuration file: a known key with a value
// of the wrong shape, or a config file that fails to parse as YAML (spec
// sections 6/7). It is a UserError for exit-code purposes: the user's
// config, not their environment, is at fault.
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Path, e.Reason)
}

// EnvironmentError is a host/runtime precondition failure the user cannot
// fix from their command line alone: a missing container backend binary,
// a daemon that isn't running, or a ptrace-unavailable host (spec section
// 7): exit code 2.
type EnvironmentError struct {
	Reason string
	Hint   string
}

func (e *EnvironmentError) Error() string { return e.Reason }

// NewEnvironmentError builds an EnvironmentError, formatting Reason like
// fmt.Sprintf.
func NewEnvironmentError(hint string, format string, args ...any) *EnvironmentError {
	return &EnvironmentError{Reason: fmt.Sprintf(format, args...), Hint: hint}
}

// ExitCode maps err's dynamic type to the process exit status of spec
// section 7. A nil err maps to OK; any error type not named here is
// treated as a UserError (exit 1), the conservative default.
func ExitCode(err error) Code {
	if err == nil {
		return OK
	}
	switch err.(type) {
	case *EnvironmentError:
		return EnvironmentErrorCode
	case *ConfigError, *UserError:
		return UserErrorCode
	default:
		return UserErrorCode
	}
}

// Hint extracts the remediation hint from err, if it carries one.
func Hint(err error) string {
	switch e := err.(type) {
	case *UserError:
		return e.Hint
	case *EnvironmentError:
		return e.Hint
	default:
		return ""
	}
}
