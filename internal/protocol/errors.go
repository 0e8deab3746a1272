package protocol

import "fmt"

// ErrOutOfMemory denotes a failure to allocate a message or buffer. No
// function in this module currently returns it.
var ErrOutOfMemory = fmt.Errorf("protocol: out of memory")

// ErrInvalidMessage covers wrong-length payloads, unknown type bytes, or a
// record whose declared length is inconsistent with the remaining datagram.
var ErrInvalidMessage = fmt.Errorf("protocol: invalid message")

// ErrSocket covers bind/connect/send failures at startup. Runtime recv
// errors that look like "would block" are not surfaced as this error —
// callers should treat them as zero bytes read.
var ErrSocket = fmt.Errorf("protocol: socket error")

// ErrTimeout denotes a peer not heard from within its timeout window. No
// function in this module currently returns it; the server drops timed-out
// clients without surfacing an error.
var ErrTimeout = fmt.Errorf("protocol: timeout")

// ErrProtocolViolation covers a peer behaving outside the protocol: a
// server echoing a future client_frame, or a client sending a malformed
// command batch.
var ErrProtocolViolation = fmt.Errorf("protocol: protocol violation")

// JoinDenyReason enumerates why a server refused a join.
type JoinDenyReason uint8

const (
	JoinDenyBadProtocolReason JoinDenyReason = iota
	JoinDenyBadUsernameReason
	JoinDenyServerFullReason
)

func (r JoinDenyReason) String() string {
	switch r {
	case JoinDenyBadProtocolReason:
		return "bad protocol version"
	case JoinDenyBadUsernameReason:
		return "bad username"
	case JoinDenyServerFullReason:
		return "server full"
	default:
		return "unknown"
	}
}

// ErrJoinDenied describes a refused join attempt, carrying the reason and
// an optional human-readable message. The client session logs a JOIN_DENY
// and disconnects; it does not return this error.
type ErrJoinDenied struct {
	Reason  JoinDenyReason
	Message string
}

func (e *ErrJoinDenied) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("protocol: join denied: %s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("protocol: join denied: %s", e.Reason)
}
