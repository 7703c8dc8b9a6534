// Package errkind defines the error taxonomy shared by every RPC response
// in the cluster. Errors always travel as a Kind plus a message rather than
// a bare string, so callers can branch on errors.As instead of parsing text.
package errkind

import "fmt"

// Kind identifies the category of a protocol-level failure.
type Kind int

const (
	// None means no error occurred.
	None Kind = iota
	NoLeader
	IllegalMemberState
	UnknownSession
	UnknownStateMachine
	CommandFailure
	QueryFailure
	ApplicationError
	ProtocolError
	ConfigurationError
)

func (k Kind) String() string {
	switch k {
	case None:
		return "NONE"
	case NoLeader:
		return "NO_LEADER"
	case IllegalMemberState:
		return "ILLEGAL_MEMBER_STATE"
	case UnknownSession:
		return "UNKNOWN_SESSION"
	case UnknownStateMachine:
		return "UNKNOWN_STATE_MACHINE"
	case CommandFailure:
		return "COMMAND_FAILURE"
	case QueryFailure:
		return "QUERY_FAILURE"
	case ApplicationError:
		return "APPLICATION_ERROR"
	case ProtocolError:
		return "PROTOCOL_ERROR"
	case ConfigurationError:
		return "CONFIGURATION_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is the concrete error type carried on RPC responses.
type Error struct {
	Kind    Kind
	Message string
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is(err, errkind.NoLeader) work by comparing kinds when the
// target is itself a *Error with no message (a sentinel-style comparison).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel returns a zero-message error of the given kind, suitable for use
// with errors.Is.
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}
