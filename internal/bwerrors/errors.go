// Package bwerrors defines Bellwether's closed error taxonomy. Every error
// the engine produces belongs to exactly one Category and carries one Code
// drawn from that category's closed set, following the same small
// code+message struct shape as the teacher's mcp.Error.
package bwerrors

import "fmt"

// Category partitions errors into the six families the engine distinguishes
// when deciding whether to end a run or capture-and-continue.
type Category string

const (
	CategoryTransport     Category = "transport"
	CategoryProtocol      Category = "protocol"
	CategoryCallLevel     Category = "call_level"
	CategoryConfiguration Category = "configuration"
	CategoryBaseline      Category = "baseline"
	CategoryInternal      Category = "internal"
)

// Code is a closed-set error code scoped within a Category. Codes are not
// unique across categories.
type Code string

const (
	// Transport
	CodeSpawnFailed    Code = "spawn_failed"
	CodeConnectRefused Code = "connect_refused"
	CodeTLSFailed      Code = "tls_failed"
	CodeAuthFailed     Code = "auth_failed"
	CodeClosed         Code = "closed"
	CodeFramingError   Code = "framing_error"

	// Protocol
	CodeInitializeFailed   Code = "initialize_failed"
	CodeProtocolError      Code = "protocol_error"
	CodeUnsupportedVersion Code = "unsupported_version"

	// Call-level
	CodeTimeout             Code = "timeout"
	CodeToolError           Code = "tool_error"
	CodeUnresolvedReference Code = "unresolved_reference"

	// Configuration
	CodeConfigNotFound Code = "config_not_found"
	CodeConfigInvalid  Code = "config_invalid"
	CodeSecretInConfig Code = "secret_in_config"

	// Baseline
	CodeVersionMismatch Code = "version_mismatch"
	CodeIntegrityFailed Code = "integrity_failed"
	CodeFormatInvalid   Code = "format_invalid"

	// Internal
	CodeCancelled      Code = "cancelled"
	CodeBudgetExceeded Code = "budget_exceeded"
)

// Error is the concrete error type for every failure the engine surfaces.
// It is deliberately flat (category + code + message + optional detail)
// so callers can branch on Category/Code without type-switching on a
// family of distinct Go types.
type Error struct {
	Category Category
	Code     Code
	Message  string

	// ProtocolCode carries the JSON-RPC error code for CodeProtocolError.
	ProtocolCode int
	// Payload carries the raw tool error payload for CodeToolError.
	Payload any

	// Cause is the wrapped underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return fmt.Sprintf("%s/%s: %s", e.Category, e.Code, e.Message)
	}
	return fmt.Sprintf("%s/%s", e.Category, e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error with the same Category and Code,
// so callers can use errors.Is(err, bwerrors.New(CategoryTransport, CodeClosed, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Category != "" && t.Category != e.Category {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return true
}

// New constructs an Error with no wrapped cause.
func New(category Category, code Code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

// Wrap constructs an Error wrapping cause.
func Wrap(category Category, code Code, message string, cause error) *Error {
	return &Error{Category: category, Code: code, Message: message, Cause: cause}
}

// Transport constructs a CategoryTransport error.
func Transport(code Code, message string, cause error) *Error {
	return Wrap(CategoryTransport, code, message, cause)
}

// Protocol constructs a CategoryProtocol error. For CodeProtocolError the
// JSON-RPC error code is attached as protocolCode.
func Protocol(code Code, protocolCode int, message string) *Error {
	return &Error{Category: CategoryProtocol, Code: code, Message: message, ProtocolCode: protocolCode}
}

// CallLevel constructs a CategoryCallLevel error. For CodeToolError the raw
// tool error payload is attached.
func CallLevel(code Code, message string, payload any) *Error {
	return &Error{Category: CategoryCallLevel, Code: code, Message: message, Payload: payload}
}

// Configuration constructs a CategoryConfiguration error.
func Configuration(code Code, message string) *Error {
	return New(CategoryConfiguration, code, message)
}

// Baseline constructs a CategoryBaseline error.
func Baseline(code Code, message string) *Error {
	return New(CategoryBaseline, code, message)
}

// Internal constructs a CategoryInternal error.
func Internal(code Code, message string) *Error {
	return New(CategoryInternal, code, message)
}

// IsCategory reports whether err is a *Error of the given category.
func IsCategory(err error, category Category) bool {
	e, ok := err.(*Error)
	return ok && e.Category == category
}

// Fatal reports whether err should end the run rather than be captured in a
// result, per the propagation policy in §7: transport and protocol errors
// are fatal, call-level and baseline errors are not.
func Fatal(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	switch e.Category {
	case CategoryTransport, CategoryProtocol:
		return true
	default:
		return false
	}
}
